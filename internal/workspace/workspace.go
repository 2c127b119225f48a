// Package workspace owns where inputs are found and where results land:
// the modified-files folder, the mkdir command scripts, and discovery of
// exports under a search directory.
package workspace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/mkdirs"
	"github.com/rileyhilliard/bldm-localizer/internal/tagrewrite"
	"github.com/rileyhilliard/bldm-localizer/internal/util"
	"github.com/spf13/afero"
)

const (
	DefaultModifiedDir = "Modified files"
	DefaultCommandsDir = "Manual commands for creating path"
)

// Workspace resolves output locations. Directories are created on demand.
type Workspace struct {
	Fs          afero.Fs
	ModifiedDir string
	CommandsDir string
}

// New returns a workspace rooted at the given directories on the OS filesystem.
func New(modifiedDir, commandsDir string) *Workspace {
	return &Workspace{Fs: afero.NewOsFs(), ModifiedDir: modifiedDir, CommandsDir: commandsDir}
}

// Found lists the exports discovered under a directory.
type Found struct {
	CAR []string
	XML []string
}

// All returns CAR files first, then XML files.
func (f Found) All() []string {
	all := make([]string, 0, len(f.CAR)+len(f.XML))
	all = append(all, f.CAR...)
	return append(all, f.XML...)
}

// Empty reports whether nothing was found.
func (f Found) Empty() bool {
	return len(f.CAR) == 0 && len(f.XML) == 0
}

// Discover walks root for .car and .xml files, matching the extension
// case-insensitively. Each list is sorted by base name, then full path.
func Discover(fs afero.Fs, root string) (Found, error) {
	info, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return Found{}, errors.New(errors.ErrInput,
				fmt.Sprintf("Directory %s does not exist", root),
				"Check the path and try again")
		}
		return Found{}, errors.WrapWithCode(err, errors.ErrInput,
			fmt.Sprintf("Couldn't access %s", root),
			"Check that you have permission to read this directory")
	}
	if !info.IsDir() {
		return Found{}, errors.New(errors.ErrInput,
			fmt.Sprintf("%s is not a directory", root),
			"Enter the folder that contains your exports")
	}

	var found Found
	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(fi.Name())) {
		case ".car":
			found.CAR = append(found.CAR, path)
		case ".xml":
			found.XML = append(found.XML, path)
		}
		return nil
	})
	if err != nil {
		return Found{}, errors.WrapWithCode(err, errors.ErrInput,
			fmt.Sprintf("Couldn't search %s", root),
			"Check that you have permission to read every folder inside it")
	}

	sortByBase(found.CAR)
	sortByBase(found.XML)
	return found, nil
}

func sortByBase(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		bi, bj := filepath.Base(paths[i]), filepath.Base(paths[j])
		if bi != bj {
			return bi < bj
		}
		return paths[i] < paths[j]
	})
}

// EnsureDirs creates the output directories.
func (w *Workspace) EnsureDirs() error {
	for _, dir := range []string{w.ModifiedDir, w.CommandsDir} {
		if err := w.Fs.MkdirAll(dir, 0755); err != nil {
			return errors.WrapWithCode(err, errors.ErrIO,
				fmt.Sprintf("Couldn't create %s", dir),
				"Check that the current folder is writable")
		}
	}
	return nil
}

// ModifiedXMLPath returns a free path for the modified copy of an XML export:
// <modified dir>/<base>_modified.xml, then <base>_modified_1.xml and so on.
func (w *Workspace) ModifiedXMLPath(input string) (string, error) {
	if err := w.Fs.MkdirAll(w.ModifiedDir, 0755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't create %s", w.ModifiedDir), "")
	}
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	stem := filepath.Join(w.ModifiedDir, base+"_modified")

	return w.free(stem+ext, func(n int) string {
		return fmt.Sprintf("%s_%d%s", stem, n, ext)
	})
}

// PlaceArchive moves a finished archive into the modified dir, naming it
// name(1).car, name(2).car, ... if the plain name is taken.
func (w *Workspace) PlaceArchive(src string) (string, error) {
	if err := w.Fs.MkdirAll(w.ModifiedDir, 0755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't create %s", w.ModifiedDir), "")
	}
	ext := filepath.Ext(src)
	stem := filepath.Join(w.ModifiedDir, strings.TrimSuffix(filepath.Base(src), ext))

	dst, err := w.free(stem+ext, func(n int) string {
		return fmt.Sprintf("%s(%d)%s", stem, n, ext)
	})
	if err != nil {
		return "", err
	}
	if err := w.move(src, dst); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't move %s to %s", src, dst),
			"Check that the modified files folder is writable")
	}
	return dst, nil
}

// CommandsPath is where the mkdir script for label is written.
func (w *Workspace) CommandsPath(label string) string {
	return filepath.Join(w.CommandsDir, "Commands for "+label+".txt")
}

// WriteCommands writes commands to the script for label and returns its path.
func (w *Workspace) WriteCommands(label string, commands []string) (string, error) {
	if err := w.Fs.MkdirAll(w.CommandsDir, 0755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't create %s", w.CommandsDir), "")
	}
	path := w.CommandsPath(label)
	f, err := w.Fs.Create(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't create %s", path),
			"Check that the commands folder is writable")
	}
	if err := mkdirs.WriteScript(f, commands); err != nil {
		f.Close()
		return "", errors.WrapWithCode(err, errors.ErrIO, fmt.Sprintf("Couldn't write %s", path), "")
	}
	if err := f.Close(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrIO, fmt.Sprintf("Couldn't write %s", path), "")
	}
	return path, nil
}

// Label names a run's log and script: the first <name> value of an XML
// export, otherwise the file's base name. Unsafe filename characters become _.
// fallback is used when neither yields anything.
func (w *Workspace) Label(path, fallback string) string {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		if name := w.firstName(path); name != "" {
			if label := util.SanitizeFilename(name); label != "" {
				return label
			}
		}
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if label := util.SanitizeFilename(base); label != "" && label != "." {
		return label
	}
	return fallback
}

func (w *Workspace) firstName(path string) string {
	f, err := w.Fs.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if v, ok := tagrewrite.FirstValue(line, tagrewrite.TagName); ok {
			return strings.TrimSpace(v)
		}
		if err != nil {
			return ""
		}
	}
}

// free returns first if it does not exist, otherwise the first alt(n) that
// does not, starting at n=1.
func (w *Workspace) free(first string, alt func(n int) string) (string, error) {
	candidate := first
	for n := 1; ; n++ {
		exists, err := afero.Exists(w.Fs, candidate)
		if err != nil {
			return "", errors.WrapWithCode(err, errors.ErrIO,
				fmt.Sprintf("Couldn't check %s", candidate), "")
		}
		if !exists {
			return candidate, nil
		}
		candidate = alt(n)
	}
}

// move renames src to dst, copying across devices when rename fails.
func (w *Workspace) move(src, dst string) error {
	if err := w.Fs.Rename(src, dst); err == nil {
		return nil
	}

	in, err := w.Fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := w.Fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = w.Fs.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = w.Fs.Remove(dst)
		return err
	}
	in.Close()
	return w.Fs.Remove(src)
}
