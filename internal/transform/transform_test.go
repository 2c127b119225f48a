package transform

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
	"github.com/rileyhilliard/bldm-localizer/internal/mkdirs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = "<?xml version=\"1.0\"?>\r\n" +
	"<config>\r\n" +
	"  <name>Plant A</name>\r\n" +
	"  <ppsSFTPHostF>10.0.0.1</ppsSFTPHostF><neSFTPClientHostF><![CDATA[10.0.0.2]]></neSFTPClientHostF>\r\n" +
	"  <ppsSFTPUserF></ppsSFTPUserF>\r\n" +
	"  <neSFTPClientPasswordF><![CDATA[old]]></neSFTPClientPasswordF>\r\n" +
	"  <ppsSFTPPassFlagF>1</ppsSFTPPassFlagF>\r\n" +
	"  <defaultStoppedState>0</defaultStoppedState>\r\n" +
	"  <ppsDiskPathF><![CDATA[/data/logs]]></ppsDiskPathF>\r\n" +
	"  <scPathF>\\in\\bound</scPathF>\r\n" +
	"</config>" // final line without terminator

func writeInput(t *testing.T, content string) (in, out string) {
	t.Helper()
	dir := t.TempDir()
	in = filepath.Join(dir, "export.xml")
	out = filepath.Join(dir, "export.out.xml")
	require.NoError(t, os.WriteFile(in, []byte(content), 0644))
	return in, out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFile_HostScenario(t *testing.T) {
	in, out := writeInput(t, "<ppsSFTPHostF>10.0.0.1</ppsSFTPHostF>\n")

	res, err := File(context.Background(), in, out, []Rule{HostRule("192.168.1.5")}, nil)
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, "<ppsSFTPHostF>192.168.1.5</ppsSFTPHostF>\n", readFile(t, out))
}

func TestFile_PathScenario(t *testing.T) {
	in, out := writeInput(t, "<ppsDiskPathF><![CDATA[/data/logs]]></ppsDiskPathF>")

	_, err := File(context.Background(), in, out, []Rule{PathPrefixRule("/mnt/new")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "<ppsDiskPathF><![CDATA[/mnt/new/data/logs]]></ppsDiskPathF>", readFile(t, out))
}

func TestFile_AllRules(t *testing.T) {
	in, out := writeInput(t, sampleExport)

	rules := []Rule{
		PathPrefixRule("/mnt/new"),
		HostRule("192.168.1.5"),
		UsernameRule("bldm"),
		PasswordRule("ENC(x)"),
		PassFlagRule(),
		DefaultStoppedRule(),
	}

	log := logger.NewBufferLogger()
	res, err := File(context.Background(), in, out, rules, log)
	require.NoError(t, err)

	want := "<?xml version=\"1.0\"?>\r\n" +
		"<config>\r\n" +
		"  <name>Plant A</name>\r\n" +
		"  <ppsSFTPHostF>192.168.1.5</ppsSFTPHostF><neSFTPClientHostF><![CDATA[192.168.1.5]]></neSFTPClientHostF>\r\n" +
		"  <ppsSFTPUserF>bldm</ppsSFTPUserF>\r\n" +
		"  <neSFTPClientPasswordF><![CDATA[ENC(x)]]></neSFTPClientPasswordF>\r\n" +
		"  <ppsSFTPPassFlagF>0</ppsSFTPPassFlagF>\r\n" +
		"  <defaultStoppedState>1</defaultStoppedState>\r\n" +
		"  <ppsDiskPathF><![CDATA[/mnt/new/data/logs]]></ppsDiskPathF>\r\n" +
		"  <scPathF>/mnt/new//in/bound</scPathF>\r\n" +
		"</config>"

	assert.Equal(t, want, readFile(t, out))
	assert.True(t, res.Found)
	assert.Equal(t, 8, res.Matches)
	assert.Equal(t, 11, res.Lines)
	assert.Equal(t, 1, res.PerTag["neSFTPClientHostF"])
	assert.Equal(t, 1, res.PerTag["ppsSFTPUserF"])
	assert.True(t, log.HasLevel("debug"))
}

func TestFile_NoMatchesStillCopies(t *testing.T) {
	content := "<config>\n  <other>1</other>\n</config>\n"
	in, out := writeInput(t, content)

	res, err := File(context.Background(), in, out, []Rule{HostRule("h")}, nil)
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.Zero(t, res.Matches)
	assert.Equal(t, content, readFile(t, out))
}

func TestFile_RequiredTagsIgnoreEmptyValues(t *testing.T) {
	tests := []struct {
		name string
		line string
		rule Rule
	}{
		{name: "empty host", line: "<ppsSFTPHostF></ppsSFTPHostF>\n", rule: HostRule("h")},
		{name: "empty cdata host", line: "<neSFTPClientHostF><![CDATA[]]></neSFTPClientHostF>\n", rule: HostRule("h")},
		{name: "empty cdata path", line: "<ppsDiskPathF><![CDATA[]]></ppsDiskPathF>\n", rule: PathPrefixRule("/mnt/new")},
		{name: "empty plain path", line: "<scPathF></scPathF>\n", rule: PathPrefixRule("/mnt/new")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := writeInput(t, tt.line)

			res, err := File(context.Background(), in, out, []Rule{tt.rule}, nil)
			require.NoError(t, err)

			assert.False(t, res.Found)
			assert.Zero(t, res.Matches)
			assert.Equal(t, tt.line, readFile(t, out))
		})
	}
}

func TestFile_InputUntouched(t *testing.T) {
	in, out := writeInput(t, sampleExport)

	_, err := File(context.Background(), in, out, []Rule{HostRule("h")}, nil)
	require.NoError(t, err)

	assert.Equal(t, sampleExport, readFile(t, in))
}

func TestFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.xml")

	_, err := File(context.Background(), filepath.Join(dir, "missing.xml"), out, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrIO))
	assert.NoFileExists(t, out)
}

func TestFile_UnwritableOutput(t *testing.T) {
	in, _ := writeInput(t, "x\n")
	out := filepath.Join(t.TempDir(), "no-such-dir", "out.xml")

	_, err := File(context.Background(), in, out, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrIO))
}

func TestFile_CancelledContextRemovesOutput(t *testing.T) {
	in, out := writeInput(t, sampleExport)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := File(ctx, in, out, []Rule{HostRule("h")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func TestFileFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/export.xml", []byte("<ppsSFTPHostF>10.0.0.1</ppsSFTPHostF>\n"), 0644))

	res, err := FileFs(context.Background(), fs, "/in/export.xml", "/in/export.out.xml", []Rule{HostRule("h")}, nil)
	require.NoError(t, err)
	assert.True(t, res.Found)

	data, err := afero.ReadFile(fs, "/in/export.out.xml")
	require.NoError(t, err)
	assert.Equal(t, "<ppsSFTPHostF>h</ppsSFTPHostF>\n", string(data))

	_, err = FileFs(context.Background(), afero.NewReadOnlyFs(fs), "/in/export.xml", "/in/other.xml", []Rule{HostRule("h")}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrIO))
}

func TestFile_RulesSeeEarlierRewrites(t *testing.T) {
	in, out := writeInput(t, "<ppsSFTPHostF>a</ppsSFTPHostF>\n")

	first := Rule{Name: "first", Tags: []string{"ppsSFTPHostF"}, Replace: func(old string) string { return old + "b" }}
	second := Rule{Name: "second", Tags: []string{"ppsSFTPHostF"}, Replace: func(old string) string { return old + "c" }}

	_, err := File(context.Background(), in, out, []Rule{first, second}, nil)
	require.NoError(t, err)

	assert.Equal(t, "<ppsSFTPHostF>abc</ppsSFTPHostF>\n", readFile(t, out))
}

func TestFile_PrefixRoundTrip(t *testing.T) {
	in, out := writeInput(t, sampleExport)

	_, err := File(context.Background(), in, out, []Rule{PathPrefixRule("/mnt/new")}, nil)
	require.NoError(t, err)

	entries, err := mkdirs.ExtractFile(out)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Path, "/mnt/new/"), "path %q should carry the prefix", e.Path)
	}
}

func TestRuleConstructors(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		optional bool
		in       string
		want     string
	}{
		{name: "host", rule: HostRule("h"), in: "old", want: "h"},
		{name: "username", rule: UsernameRule("u"), optional: true, in: "", want: "u"},
		{name: "password", rule: PasswordRule("p"), optional: true, in: "x", want: "p"},
		{name: "flags", rule: PassFlagRule(), optional: true, in: "1", want: "0"},
		{name: "default_stopped", rule: DefaultStoppedRule(), optional: true, in: "0", want: "1"},
		{name: "paths", rule: PathPrefixRule("/p"), in: "/a", want: "/p/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.rule.Name)
			assert.Equal(t, tt.optional, tt.rule.Optional)
			assert.NotEmpty(t, tt.rule.Tags)
			assert.Equal(t, tt.want, tt.rule.Replace(tt.in))
		})
	}
}
