package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     zerolog.Level
		expectLog bool
	}{
		{name: "debug logged at debug level", level: zerolog.DebugLevel, expectLog: true},
		{name: "debug dropped at info level", level: zerolog.InfoLevel, expectLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.level)
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestNew_WritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel)

	l.Warn("No <%s> tags found", "ppsSFTPHostF")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "No <ppsSFTPHostF> tags found", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, zerolog.InfoLevel)

	l.Info("int: %d, string: %s", 42, "hello")

	output := buf.String()
	assert.Contains(t, output, "int: 42")
	assert.Contains(t, output, "string: hello")
}

func TestOpenFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2025, 5, 27, 14, 3, 9, 0, time.UTC)

	fl, err := OpenFile(dir, "Site: A/B", zerolog.InfoLevel, now, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Site_ A_B_20250527_140309.log"), fl.Path)

	fl.Info("hello %s", "file")
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close(), "second close should be a no-op")

	data, err := os.ReadFile(fl.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestOpenFile_EmptyLabel(t *testing.T) {
	dir := t.TempDir()
	fl, err := OpenFile(dir, "  ", zerolog.InfoLevel, time.Now(), nil)
	require.NoError(t, err)
	defer fl.Close()

	assert.True(t, strings.HasPrefix(filepath.Base(fl.Path), "localizer_"))
}

func TestOpenFile_MirrorsToConsole(t *testing.T) {
	var console bytes.Buffer
	fl, err := OpenFile(t.TempDir(), "run", zerolog.InfoLevel, time.Now(), &console)
	require.NoError(t, err)
	defer fl.Close()

	fl.Info("mirrored")
	assert.Contains(t, console.String(), "mirrored")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSessionStart(t *testing.T) {
	l := NewBufferLogger()
	SessionStart(l, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	require.Len(t, l.Messages, 1)
	assert.Contains(t, l.Messages[0].Message, "Session started - User: ")
	assert.Contains(t, l.Messages[0].Message, "Time: 2025-01-02 03:04:05")
}

func TestOperation(t *testing.T) {
	l := NewBufferLogger()

	done := Operation(l, "CAR extraction")
	done("completed")

	require.Len(t, l.Messages, 2)
	assert.Contains(t, l.Messages[0].Message, "Starting CAR extraction")
	assert.Contains(t, l.Messages[1].Message, "CAR extraction completed")
}

func TestNoopLogger(t *testing.T) {
	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %s", "msg")
	l.Info("info %s", "msg")
	l.Warn("warn %s", "msg")
	l.Error("error %s", "msg")

	require.Len(t, l.Messages, 4)

	assert.Equal(t, "debug", l.Messages[0].Level)
	assert.Equal(t, "debug msg", l.Messages[0].Message)
	assert.Equal(t, "info", l.Messages[1].Level)
	assert.Equal(t, "warn", l.Messages[2].Level)
	assert.Equal(t, "error", l.Messages[3].Level)
}

func TestBufferLogger_HasLevelAndContains(t *testing.T) {
	l := NewBufferLogger()

	assert.False(t, l.HasLevel("warn"))

	l.Warn("No tags found in %s", "a.xml")
	assert.True(t, l.HasLevel("warn"))
	assert.True(t, l.Contains("warn", "a.xml"))
	assert.False(t, l.Contains("info", "a.xml"))
}

func TestBufferLogger_Clear(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("test1")
	l.Info("test2")
	require.Len(t, l.Messages, 2)

	l.Clear()
	assert.Empty(t, l.Messages)
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = New(&bytes.Buffer{}, zerolog.InfoLevel)
	var _ Logger = Noop()
	var _ Logger = NewBufferLogger()
	var _ Logger = &FileLogger{}
}
