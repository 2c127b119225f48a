package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		def   string
		want  string
	}{
		{name: "nil uses default", items: nil, def: "none selected", want: "none selected"},
		{name: "empty uses default", items: []string{}, def: "", want: ""},
		{name: "single operation", items: []string{"host"}, def: "-", want: "host"},
		{name: "operations in order", items: []string{"paths", "host", "flags"}, def: "-", want: "paths, host, flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinOrDefault(tt.items, tt.def))
		})
	}
}

func TestJoinOrNone(t *testing.T) {
	assert.Equal(t, "(none)", JoinOrNone(nil))
	assert.Equal(t, "paths, host", JoinOrNone([]string{"paths", "host"}))
}

func TestCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{n: 0, want: "0 tags"},
		{n: 1, want: "1 tag"},
		{n: 2, want: "2 tags"},
		{n: -1, want: "-1 tags"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.n, "tag", "tags"))
		})
	}
	assert.Equal(t, "1 CAR file", Count(1, "CAR file", "CAR files"))
	assert.Equal(t, "matches", Pluralize(5, "match", "matches"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain name unchanged", in: "Site A", want: "Site A"},
		{name: "slashes replaced", in: `Plant/Line\2`, want: "Plant_Line_2"},
		{name: "windows reserved characters", in: `a*b?c:d"e<f>g|h`, want: "a_b_c_d_e_f_g_h"},
		{name: "surrounding spaces trimmed", in: "  Site: A  ", want: "Site_ A"},
		{name: "empty stays empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}
