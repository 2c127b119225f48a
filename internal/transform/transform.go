// Package transform streams a file line by line through a list of tag rewrite
// rules, writing each processed line to the output as it goes.
package transform

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
	"github.com/rileyhilliard/bldm-localizer/internal/tagrewrite"
	"github.com/rileyhilliard/bldm-localizer/internal/util"
	"github.com/spf13/afero"
)

// Rule rewrites the content of a group of tags.
type Rule struct {
	Name     string
	Tags     []string
	Optional bool // allow <tag></tag> to match
	Replace  func(old string) string
}

// Result summarises one pass over a file.
type Result struct {
	Found   bool
	Matches int
	Lines   int
	PerTag  map[string]int
}

// File reads inPath, applies rules to every line and writes outPath.
//
// Rules run in order and each sees the line as rewritten by the rules before
// it. A file without any matching tag still produces a full copy at outPath
// and returns Found=false with a nil error; deciding whether that matters is
// up to the caller. On error the partial output is removed.
func File(ctx context.Context, inPath, outPath string, rules []Rule, log logger.Logger) (Result, error) {
	return FileFs(ctx, afero.NewOsFs(), inPath, outPath, rules, log)
}

// FileFs is File with both paths resolved in fs.
func FileFs(ctx context.Context, fs afero.Fs, inPath, outPath string, rules []Rule, log logger.Logger) (Result, error) {
	if log == nil {
		log = logger.Noop()
	}
	res := Result{PerTag: make(map[string]int)}

	in, err := fs.Open(inPath)
	if err != nil {
		return res, errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't open %s", inPath),
			"Check the file exists and is readable")
	}
	defer in.Close()

	out, err := fs.Create(outPath)
	if err != nil {
		return res, errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't create %s", outPath),
			"Check the output directory is writable")
	}

	if err := stream(ctx, in, out, rules, &res, log); err != nil {
		out.Close()
		fs.Remove(outPath)
		return res, err
	}

	if err := out.Close(); err != nil {
		fs.Remove(outPath)
		return res, errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't finish writing %s", outPath),
			"Check free disk space")
	}

	res.Found = res.Matches > 0
	log.Debug("Processed %d lines of %s, %d replacements", res.Lines, inPath, res.Matches)
	return res, nil
}

func stream(ctx context.Context, in io.Reader, out io.Writer, rules []Rule, res *Result, log logger.Logger) error {
	br := bufio.NewReader(in)
	bw := bufio.NewWriter(out)

	for {
		if err := ctx.Err(); err != nil {
			return errors.WrapWithCode(err, errors.ErrIO, "Processing interrupted", "")
		}

		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return errors.WrapWithCode(readErr, errors.ErrIO,
				"Couldn't read input line",
				"Check the file is not locked by another program")
		}

		if len(line) > 0 {
			res.Lines++
			line = apply(line, rules, res, log)
			if _, err := bw.WriteString(line); err != nil {
				return errors.WrapWithCode(err, errors.ErrIO,
					"Couldn't write output line",
					"Check free disk space")
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	if err := bw.Flush(); err != nil {
		return errors.WrapWithCode(err, errors.ErrIO,
			"Couldn't flush output",
			"Check free disk space")
	}
	return nil
}

func apply(line string, rules []Rule, res *Result, log logger.Logger) string {
	for _, r := range rules {
		for _, tag := range r.Tags {
			var n int
			line, n = tagrewrite.RewriteFunc(line, tag, r.Optional, r.Replace)
			if n == 0 {
				continue
			}
			res.Matches += n
			res.PerTag[tag] += n
			log.Debug("Line %d: updated %d <%s> %s", res.Lines, n, tag, util.Pluralize(n, "tag", "tags"))
		}
	}
	return line
}
