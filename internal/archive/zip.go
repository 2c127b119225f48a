package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archives"
)

// ProgressFunc is called after each file is written during extraction.
type ProgressFunc func(done, total int, name string)

// ExtractTo expands the ZIP archive at archivePath into dir and returns the
// number of files written. Entries that would land outside dir are rejected.
func ExtractTo(ctx context.Context, archivePath, dir string, progress ProgressFunc) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	total := 0
	if progress != nil {
		if total, err = countFiles(ctx, f); err != nil {
			return 0, err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
	}

	done := 0
	err = archives.Zip{}.Extract(ctx, f, func(ctx context.Context, fi archives.FileInfo) error {
		target, err := safeJoin(dir, fi.NameInArchive)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if fi.LinkTarget != "" {
			return fmt.Errorf("%s: links are not supported in configuration archives", fi.NameInArchive)
		}

		if err := writeEntry(target, fi); err != nil {
			return err
		}
		done++
		if progress != nil {
			progress(done, total, fi.NameInArchive)
		}
		return nil
	})
	return done, err
}

func countFiles(ctx context.Context, f *os.File) (int, error) {
	n := 0
	err := archives.Zip{}.Extract(ctx, f, func(_ context.Context, fi archives.FileInfo) error {
		if !fi.IsDir() {
			n++
		}
		return nil
	})
	return n, err
}

func writeEntry(target string, fi archives.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	in, err := fi.Open()
	if err != nil {
		return fmt.Errorf("%s: opening entry: %w", fi.NameInArchive, err)
	}
	defer in.Close()

	// Archives written by some tools carry no permission bits.
	perm := fi.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%s: writing entry: %w", fi.NameInArchive, err)
	}
	return out.Close()
}

// safeJoin resolves an archive entry name under root, refusing absolute
// names and any name that climbs out of root.
func safeJoin(root, name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("invalid entry name %q in archive", name)
	}

	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" ||
		strings.HasPrefix(clean, string(filepath.Separator)) {
		return "", fmt.Errorf("absolute path %q not allowed in archive", name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the extraction directory", name)
	}
	return filepath.Join(root, clean), nil
}

// PackDir writes every regular file under dir into a ZIP archive at outPath,
// keyed by its slash-separated path relative to dir. Entries are added in
// sorted order so identical trees produce identical listings. The archive is
// built in a ".partial" file that only replaces outPath once complete.
func PackDir(ctx context.Context, dir, outPath string) error {
	files, err := filesUnder(dir)
	if err != nil {
		return err
	}

	infos, err := archives.FilesFromDisk(ctx, nil, files)
	if err != nil {
		return err
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].NameInArchive < infos[j].NameInArchive
	})

	partial := outPath + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return err
	}

	z := archives.Zip{Compression: zip.Deflate}
	if err := z.Archive(ctx, out, infos); err != nil {
		out.Close()
		os.Remove(partial)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return err
	}

	if err := os.Rename(partial, outPath); err != nil {
		os.Remove(partial)
		return err
	}
	return nil
}

func filesUnder(dir string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[path] = filepath.ToSlash(rel)
		return nil
	})
	return files, err
}

// findXML returns every .xml file under dir, sorted, matching the extension
// case-insensitively.
func findXML(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && isXML(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	sort.Strings(found)
	return found, err
}

func isXML(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
