package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree writes files (slash-separated relative names) under a new temp dir.
func buildTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

// buildCAR packs files into <tmp>/<name> and returns its path.
func buildCAR(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	src := buildTree(t, files)
	out := filepath.Join(t.TempDir(), name)
	require.NoError(t, PackDir(context.Background(), src, out))
	return out
}

// listZip returns the entry names of a ZIP file, sorted.
func listZip(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestPackDirExtractTo_RoundTrip(t *testing.T) {
	files := map[string]string{
		"config/export.xml": "<name>A</name>\n",
		"bin/blob.dat":      string([]byte{0x00, 0xff, 0x10, 0x7f, 0x00}),
	}
	car := buildCAR(t, "round.car", files)

	assert.Equal(t, []string{"bin/blob.dat", "config/export.xml"}, listZip(t, car))
	assert.NoFileExists(t, car+".partial")

	dest := t.TempDir()
	var calls []int
	n, err := ExtractTo(context.Background(), car, dest, func(done, total int, _ string) {
		calls = append(calls, done)
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, calls)
	assert.Equal(t, files, readTree(t, dest))
}

func TestExtractTo_RejectsTraversal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.car")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../escape.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.Mkdir(dest, 0755))

	// Depending on GODEBUG the zip reader or safeJoin refuses the entry;
	// either way nothing may be written outside dest.
	_, _ = ExtractTo(context.Background(), path, dest, nil)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape.xml"))
}

func TestSafeJoin(t *testing.T) {
	root := filepath.FromSlash("/tmp/root")

	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr bool
	}{
		{name: "nested file", entry: "a/b.xml", want: filepath.Join(root, "a", "b.xml")},
		{name: "dot segments inside root", entry: "a/../b.xml", want: filepath.Join(root, "b.xml")},
		{name: "triple dot file name", entry: "...xml", want: filepath.Join(root, "...xml")},
		{name: "parent escape", entry: "../b.xml", wantErr: true},
		{name: "nested escape", entry: "a/../../b.xml", wantErr: true},
		{name: "absolute", entry: "/etc/passwd", wantErr: true},
		{name: "empty", entry: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safeJoin(root, tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_SelectsFirstXML(t *testing.T) {
	car := buildCAR(t, "site.car", map[string]string{
		"b/zeta.xml":  "z",
		"a/alpha.XML": "a",
		"readme.txt":  "r",
	})

	log := logger.NewBufferLogger()
	job, err := Open(context.Background(), car, Options{TempRoot: t.TempDir()}, log)
	require.NoError(t, err)
	defer job.Close()

	assert.Equal(t, StateExtracted, job.State)
	assert.Equal(t, filepath.Join(job.TempDir, "a", "alpha.XML"), job.XMLPath)
	assert.Equal(t, filepath.Join(job.TempDir, "a", "alpha_modified.xml"), job.ModifiedXMLPath)
	assert.True(t, strings.HasPrefix(filepath.Base(job.TempDir), "car_extract_"))
	assert.True(t, log.Contains("warn", "2 XML files"))
}

func TestOpen_NoXML(t *testing.T) {
	car := buildCAR(t, "empty.car", map[string]string{"data.bin": "x"})
	tempRoot := t.TempDir()

	_, err := Open(context.Background(), car, Options{TempRoot: tempRoot}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoXMLInArchive)

	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp dir must be removed on failure")
}

func TestOpen_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.car")
	require.NoError(t, os.WriteFile(path, []byte("not a zip at all"), 0644))
	tempRoot := t.TempDir()

	_, err := Open(context.Background(), path, Options{TempRoot: tempRoot}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrArchive))

	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.car"), Options{TempRoot: t.TempDir()}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
}

func TestJob_FullLifecycle(t *testing.T) {
	car := buildCAR(t, "plant.car", map[string]string{
		"export.xml":   "<ppsSFTPHostF>10.0.0.1</ppsSFTPHostF>\n",
		"assets/a.bin": "\x01\x02",
	})

	var states []State
	opts := Options{
		TempRoot: t.TempDir(),
		OnTransition: func(to State, _ time.Duration) {
			states = append(states, to)
		},
	}

	job, err := Open(context.Background(), car, opts, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(job.ModifiedXMLPath, []byte("<ppsSFTPHostF>192.168.1.5</ppsSFTPHostF>\n"), 0644))
	require.NoError(t, job.MarkTransformed())

	out, err := job.Repackage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(car, ".car")+"_modified.car", out)
	assert.Equal(t, []string{"assets/a.bin", "export.xml", "export_modified.xml"}, listZip(t, out))

	report, err := job.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.XMLFound)
	assert.Equal(t, []string{"export.xml"}, report.Deleted)
	assert.Equal(t, []string{"export.xml"}, report.Renamed)
	assert.Equal(t, []string{"assets/a.bin", "export.xml"}, listZip(t, out))

	tempDirs := []string{job.TempDir, job.CleanupDir}
	require.NoError(t, job.Close())
	require.NoError(t, job.Close())
	for _, d := range tempDirs {
		assert.NoDirExists(t, d)
	}

	dest := t.TempDir()
	_, err = ExtractTo(context.Background(), out, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"export.xml":   "<ppsSFTPHostF>192.168.1.5</ppsSFTPHostF>\n",
		"assets/a.bin": "\x01\x02",
	}, readTree(t, dest))

	assert.Equal(t, []State{StateExtracted, StateXMLTransformed, StateRepackaged, StateCleaned}, states)
	assert.Equal(t, StateCleaned, job.State)
}

func TestStripMarker_Scenario(t *testing.T) {
	dir := buildTree(t, map[string]string{
		"a.xml":          "old",
		"a_modified.xml": "new",
		"keep.bin":       "b",
	})

	report, err := stripMarker(dir, "_modified")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a.xml": "new", "keep.bin": "b"}, readTree(t, dir))
	assert.Equal(t, []string{"a.xml"}, report.Deleted)
	assert.Equal(t, []string{"a.xml"}, report.Renamed)
}

func TestJob_OutOfOrderTransitions(t *testing.T) {
	car := buildCAR(t, "x.car", map[string]string{"x.xml": "x"})
	job, err := Open(context.Background(), car, Options{TempRoot: t.TempDir()}, nil)
	require.NoError(t, err)
	defer job.Close()

	_, err = job.Repackage(context.Background())
	assert.Error(t, err)
	_, err = job.Clean(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateExtracted, job.State)
}

func TestJob_MarkTransformedWithoutOutput(t *testing.T) {
	car := buildCAR(t, "x.car", map[string]string{"x.xml": "x"})
	job, err := Open(context.Background(), car, Options{TempRoot: t.TempDir()}, nil)
	require.NoError(t, err)
	defer job.Close()

	err = job.MarkTransformed()
	require.Error(t, err)
	assert.Equal(t, StateFailed, job.State)
}

func TestJob_RepackageFailureLeavesNoArchive(t *testing.T) {
	car := buildCAR(t, "site.car", map[string]string{"site.xml": "x"})
	job, err := Open(context.Background(), car, Options{TempRoot: t.TempDir()}, nil)
	require.NoError(t, err)

	// A directory squatting on the output name makes the final rename fail.
	out := strings.TrimSuffix(car, ".car") + "_modified.car"
	require.NoError(t, os.MkdirAll(out, 0755))

	require.NoError(t, os.WriteFile(job.ModifiedXMLPath, []byte("y"), 0644))
	require.NoError(t, job.MarkTransformed())

	_, err = job.Repackage(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrArchive))
	assert.Equal(t, StateFailed, job.State)
	assert.NoFileExists(t, out+".partial")
	assert.DirExists(t, out)

	tempDir := job.TempDir
	require.NoError(t, job.Close())
	assert.NoDirExists(t, tempDir)
}

func TestJob_CleanFailureRemovesArchive(t *testing.T) {
	car := buildCAR(t, "site.car", map[string]string{"site.xml": "x"})
	job, err := Open(context.Background(), car, Options{TempRoot: t.TempDir()}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(job.ModifiedXMLPath, []byte("y"), 0644))
	require.NoError(t, job.MarkTransformed())
	out, err := job.Repackage(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(out, []byte("not a zip"), 0644))

	_, err = job.Clean(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrArchive))
	assert.Equal(t, StateFailed, job.State)
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, out+".partial")

	require.NotEmpty(t, job.CleanupDir)
	tempDirs := []string{job.TempDir, job.CleanupDir}
	require.NoError(t, job.Close())
	for _, d := range tempDirs {
		assert.NoDirExists(t, d)
	}
}

func TestProcess_RepackageFailure(t *testing.T) {
	car := buildCAR(t, "site.car", map[string]string{"site.xml": "x"})
	tempRoot := t.TempDir()
	out := strings.TrimSuffix(car, ".car") + "_modified.car"
	require.NoError(t, os.MkdirAll(out, 0755))

	got, err := Process(context.Background(), car, Options{TempRoot: tempRoot}, nil,
		func(_ context.Context, _, modified string) (bool, error) {
			return true, os.WriteFile(modified, []byte("y"), 0644)
		})
	require.Error(t, err)
	assert.Empty(t, got)
	assert.NoFileExists(t, out+".partial")

	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcess(t *testing.T) {
	car := buildCAR(t, "site.car", map[string]string{"cfg/site.xml": "<name>A</name>\n"})
	tempRoot := t.TempDir()

	out, err := Process(context.Background(), car, Options{TempRoot: tempRoot}, nil,
		func(_ context.Context, in, out string) (bool, error) {
			data, err := os.ReadFile(in)
			if err != nil {
				return false, err
			}
			return true, os.WriteFile(out, []byte(strings.ReplaceAll(string(data), "A", "B")), 0644)
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"cfg/site.xml"}, listZip(t, out))
	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcess_Unchanged(t *testing.T) {
	car := buildCAR(t, "site.car", map[string]string{"site.xml": "x"})

	out, err := Process(context.Background(), car, Options{TempRoot: t.TempDir()}, nil,
		func(context.Context, string, string) (bool, error) { return false, nil })
	require.NoError(t, err)

	assert.Empty(t, out)
	assert.NoFileExists(t, strings.TrimSuffix(car, ".car")+"_modified.car")
}

func TestProcess_TransformError(t *testing.T) {
	car := buildCAR(t, "site.car", map[string]string{"site.xml": "x"})
	tempRoot := t.TempDir()

	_, err := Process(context.Background(), car, Options{TempRoot: tempRoot}, nil,
		func(context.Context, string, string) (bool, error) {
			return false, errors.New(errors.ErrIO, "boom", "")
		})
	require.Error(t, err)

	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "extracted", StateExtracted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", State(42).String())
}
