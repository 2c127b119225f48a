// Package mkdirs collects the directory paths an export refers to and turns
// them into `mkdir -p` commands for the operator to run on the target host.
package mkdirs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/tagrewrite"
)

// PathEntry is a path value found in one of the path-bearing tags.
type PathEntry struct {
	Tag  string
	Path string
}

// NormalizePrefix trims whitespace, ensures a leading slash and drops any
// trailing slashes. The root prefix stays "/".
func NormalizePrefix(prefix string) string {
	p := strings.TrimRight(strings.TrimSpace(prefix), "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// PrefixPath places original under prefix. Leading slashes of original are
// dropped before joining and backslashes become forward slashes afterwards,
// so mixed-separator values always come out as forward-slash paths.
func PrefixPath(prefix, original string) string {
	joined := strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(original, "/")
	return strings.ReplaceAll(joined, `\`, "/")
}

// ExtractLine returns the non-empty path values on line, grouped by tag in
// vocabulary order.
func ExtractLine(line string) []PathEntry {
	var entries []PathEntry
	for _, tag := range tagrewrite.PathTags {
		for _, m := range tagrewrite.Find(line, tag, false) {
			if m.Value == "" {
				continue
			}
			entries = append(entries, PathEntry{Tag: tag, Path: m.Value})
		}
	}
	return entries
}

// Extract scans r line by line and returns every path entry in encounter order.
func Extract(r io.Reader) ([]PathEntry, error) {
	br := bufio.NewReader(r)
	var entries []PathEntry
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			entries = append(entries, ExtractLine(line)...)
		}
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
	}
}

// ExtractFile is Extract over the file at path.
func ExtractFile(path string) ([]PathEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't open %s to collect paths", path),
			"Check the file exists and is readable")
	}
	defer f.Close()

	entries, err := Extract(f)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't read %s while collecting paths", path),
			"Check the file is not locked by another program")
	}
	return entries, nil
}

// Command renders the mkdir command for a single path under prefix.
func Command(prefix, path string) string {
	return fmt.Sprintf(`mkdir -p "%s/%s"`, strings.TrimRight(prefix, "/"), strings.TrimLeft(path, "/"))
}

// Script is a deduplicated, sorted set of mkdir commands.
type Script struct {
	Commands   []string
	Duplicates int // commands dropped because an identical one already existed
}

// BuildScript renders one command per entry, removes duplicate commands and
// sorts the rest so the output does not depend on tag order.
func BuildScript(entries []PathEntry, prefix string) Script {
	seen := make(map[string]struct{}, len(entries))
	commands := make([]string, 0, len(entries))
	for _, e := range entries {
		cmd := Command(prefix, e.Path)
		if _, ok := seen[cmd]; ok {
			continue
		}
		seen[cmd] = struct{}{}
		commands = append(commands, cmd)
	}
	sort.Strings(commands)

	return Script{
		Commands:   commands,
		Duplicates: len(entries) - len(commands),
	}
}

// BuildCommands returns only the commands of BuildScript.
func BuildCommands(entries []PathEntry, prefix string) []string {
	return BuildScript(entries, prefix).Commands
}

// WriteScript writes one command per line, each terminated by "\n".
func WriteScript(w io.Writer, commands []string) error {
	bw := bufio.NewWriter(w)
	for _, c := range commands {
		if _, err := bw.WriteString(c + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
