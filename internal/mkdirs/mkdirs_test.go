package mkdirs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/mnt/new", want: "/mnt/new"},
		{in: "mnt/new", want: "/mnt/new"},
		{in: "/mnt/new/", want: "/mnt/new"},
		{in: "  mnt/new//  ", want: "/mnt/new"},
		{in: "/", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePrefix(tt.in))
		})
	}
}

func TestPrefixPath(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		original string
		want     string
	}{
		{name: "absolute path", prefix: "/mnt/new", original: "/data/logs", want: "/mnt/new/data/logs"},
		{name: "relative path", prefix: "/mnt/new", original: "data", want: "/mnt/new/data"},
		{name: "backslashes normalised after join", prefix: "/x", original: `\in\bound`, want: "/x//in/bound"},
		{name: "mixed separators", prefix: "/x", original: `/in\bound/a`, want: "/x/in/bound/a"},
		{name: "root prefix", prefix: "/", original: "/a/b", want: "/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrefixPath(tt.prefix, tt.original))
		})
	}
}

func TestExtractLine(t *testing.T) {
	line := `<scPathF>/s</scPathF><ppsDiskPathF><![CDATA[/d]]></ppsDiskPathF><matcherPathF><![CDATA[]]></matcherPathF>`

	entries := ExtractLine(line)

	assert.Equal(t, []PathEntry{
		{Tag: "ppsDiskPathF", Path: "/d"},
		{Tag: "scPathF", Path: "/s"},
	}, entries)
}

func TestExtract(t *testing.T) {
	input := strings.Join([]string{
		`<root>`,
		`  <neDiskPathF>/a</neDiskPathF>`,
		`  <ppsSFTPHostF>10.0.0.1</ppsSFTPHostF>`,
		`  <ppsSFTPPathF><![CDATA[/b c]]></ppsSFTPPathF>`,
		`  <neSFTPClientPathF>/last</neSFTPClientPathF>`, // no trailing newline
	}, "\r\n")

	entries, err := Extract(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []PathEntry{
		{Tag: "neDiskPathF", Path: "/a"},
		{Tag: "ppsSFTPPathF", Path: "/b c"},
		{Tag: "neSFTPClientPathF", Path: "/last"},
	}, entries)
}

func TestExtract_MultiLineValueIgnored(t *testing.T) {
	input := "<scPathF>/a\n/b</scPathF>\n"

	entries, err := Extract(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xml")
	require.NoError(t, os.WriteFile(path, []byte("<scPathF>/x</scPathF>\n"), 0644))

	entries, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, []PathEntry{{Tag: "scPathF", Path: "/x"}}, entries)
}

func TestExtractFile_Missing(t *testing.T) {
	_, err := ExtractFile(filepath.Join(t.TempDir(), "nope.xml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrIO))
}

func TestBuildScript_SharedPathDeduplicated(t *testing.T) {
	entries := []PathEntry{
		{Tag: "ppsDiskPathF", Path: "/a/b"},
		{Tag: "scPathF", Path: "/a/b"},
	}

	s := BuildScript(entries, "/x")

	assert.Equal(t, []string{`mkdir -p "/x/a/b"`}, s.Commands)
	assert.Equal(t, 1, s.Duplicates)
}

func TestBuildCommands_Sorted(t *testing.T) {
	entries := []PathEntry{
		{Tag: "scPathF", Path: "/zeta"},
		{Tag: "neDiskPathF", Path: "alpha"},
		{Tag: "matcherPathF", Path: "/mid dle"},
	}

	assert.Equal(t, []string{
		`mkdir -p "/x/alpha"`,
		`mkdir -p "/x/mid dle"`,
		`mkdir -p "/x/zeta"`,
	}, BuildCommands(entries, "/x"))
}

func TestBuildCommands_IdempotentUnderDuplication(t *testing.T) {
	entries := []PathEntry{
		{Tag: "scPathF", Path: "/b"},
		{Tag: "neDiskPathF", Path: "/a"},
	}
	doubled := append(append([]PathEntry{}, entries...), entries...)

	assert.Equal(t, BuildCommands(entries, "/p"), BuildCommands(doubled, "/p"))
}

func TestBuildCommands_Empty(t *testing.T) {
	assert.Empty(t, BuildCommands(nil, "/p"))
}

func TestWriteScript(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteScript(&buf, []string{`mkdir -p "/a"`, `mkdir -p "/b"`}))
	assert.Equal(t, "mkdir -p \"/a\"\nmkdir -p \"/b\"\n", buf.String())
}
