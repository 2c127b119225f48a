package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseDisplayRenderProgress(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderProgress("Extracting archive")

	output := buf.String()
	assert.Contains(t, output, SymbolProgress)
	assert.Contains(t, output, "Extracting archive...")
}

func TestPhaseDisplayRenderSuccess(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		duration time.Duration
		want     []string
	}{
		{name: "Update SFTP host IP", detail: "3 tags", duration: 300 * time.Millisecond, want: []string{"3 tags", "(0.3s)"}},
		{name: "Repackaged archive", duration: 40 * time.Millisecond, want: []string{"(0.04s)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPhaseDisplay(&buf).RenderSuccess(tt.name, tt.detail, tt.duration)

			output := buf.String()
			assert.Contains(t, output, SymbolComplete)
			assert.Contains(t, output, tt.name)
			for _, w := range tt.want {
				assert.Contains(t, output, w)
			}
			assert.True(t, strings.HasSuffix(output, "\n"))
		})
	}
}

func TestPhaseDisplayRenderFailed(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).RenderFailed("Cleaning archive", 2300*time.Millisecond)

	output := buf.String()
	assert.Contains(t, output, SymbolFail)
	assert.Contains(t, output, "Cleaning archive")
	assert.Contains(t, output, "2.3s")
}

func TestPhaseDisplayRenderSkipped(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSkipped("Update SFTP username", "no matching tags")
	pd.RenderSkipped("Probe", "")

	output := buf.String()
	assert.Equal(t, 2, strings.Count(output, SymbolSkipped))
	assert.Contains(t, output, "(no matching tags)")
	assert.NotContains(t, output, "()")
}

func TestPhaseDisplayMisc(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderWarning("SFTP host did not answer")
	pd.RenderSubStatus(SymbolPending, "10.0.0.1:22", "SHA256:abc")
	pd.Divider()
	pd.Newline()

	output := buf.String()
	assert.Contains(t, output, "SFTP host did not answer")
	assert.Contains(t, output, "  "+SymbolPending)
	assert.Contains(t, output, "SHA256:abc")
	assert.Contains(t, output, strings.Repeat("━", DividerWidth))
}
