// Package clean discovers and removes intermediate files left behind by a
// pipeline run.
package clean

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Pattern describes the intermediates of one run:
// <Dir>/<Base>.<RunID>.<n><Ext>.
type Pattern struct {
	Dir   string
	Base  string
	RunID string
	Ext   string
}

// NewPattern derives the intermediate pattern for an output path.
func NewPattern(output, runID string) Pattern {
	ext := filepath.Ext(output)
	return Pattern{
		Dir:   filepath.Dir(output),
		Base:  strings.TrimSuffix(filepath.Base(output), ext),
		RunID: runID,
		Ext:   ext,
	}
}

// Path returns the intermediate path for stage n.
func (p Pattern) Path(n int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("%s.%s.%d%s", p.Base, p.RunID, n, p.Ext))
}

// Match reports whether name (a base name) is an intermediate of this run
// and returns its stage number.
func (p Pattern) Match(name string) (int, bool) {
	if p.RunID == "" {
		return 0, false
	}
	prefix := p.Base + "." + p.RunID + "."
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, p.Ext) {
		return 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, prefix), p.Ext)
	if middle == "" {
		return 0, false
	}
	n, err := strconv.Atoi(middle)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Leftover is an intermediate found on disk.
type Leftover struct {
	Path  string
	Stage int
	Size  int64
}

// Discover lists the intermediates of p in p.Dir, ordered by stage.
func Discover(fs afero.Fs, p Pattern) ([]Leftover, error) {
	infos, err := afero.ReadDir(fs, p.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []Leftover
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		n, ok := p.Match(info.Name())
		if !ok {
			continue
		}
		found = append(found, Leftover{
			Path:  filepath.Join(p.Dir, info.Name()),
			Stage: n,
			Size:  info.Size(),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Stage < found[j].Stage })
	return found, nil
}

// Remove deletes the given intermediates. Each path is checked against p
// first; only paths that demonstrably belong to this run are eligible, and
// paths listed in keep are never touched.
// Returns the paths that were removed and any errors.
func Remove(fs afero.Fs, p Pattern, files []Leftover, keep ...string) (removed []string, errs []error) {
	protected := make(map[string]bool, len(keep))
	for _, k := range keep {
		protected[filepath.Clean(k)] = true
	}

	for _, f := range files {
		if err := validateRemovalTarget(f.Path, p); err != nil {
			errs = append(errs, fmt.Errorf("refusing to delete %q: %s", f.Path, err))
			continue
		}
		if protected[filepath.Clean(f.Path)] {
			continue
		}
		if err := fs.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", f.Path, err))
			continue
		}
		removed = append(removed, f.Path)
	}
	return removed, errs
}

// Sweep discovers and removes every intermediate of p except keep.
func Sweep(fs afero.Fs, p Pattern, keep ...string) ([]string, []error) {
	files, err := Discover(fs, p)
	if err != nil {
		return nil, []error{err}
	}
	return Remove(fs, p, files, keep...)
}

// validateRemovalTarget is an allowlist: a path may be deleted only when it
// sits directly in the run's directory and its name parses as one of the
// run's intermediates.
func validateRemovalTarget(path string, p Pattern) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}
	if p.RunID == "" {
		return fmt.Errorf("pattern has no run id")
	}
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(p.Dir) {
		return fmt.Errorf("path is outside %s", p.Dir)
	}
	if _, ok := p.Match(filepath.Base(path)); !ok {
		return fmt.Errorf("path does not match the intermediate pattern")
	}
	return nil
}
