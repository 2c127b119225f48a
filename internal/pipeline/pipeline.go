// Package pipeline runs the selected operations one after another against a
// single working copy of an export.
//
// Every stage reads the current file and writes a new, uniquely named
// intermediate next to the output. A stage that finds nothing to rewrite is
// skipped and its copy discarded, so the current file only moves forward when
// something changed. The original input is never modified.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/bldm-localizer/internal/clean"
	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
	"github.com/rileyhilliard/bldm-localizer/internal/transform"
	"github.com/spf13/afero"
)

// Stage is one operation in a run.
type Stage struct {
	Op    Operation
	Rules []transform.Rule
	// Before, if set, runs against the current file before it is rewritten.
	Before func(ctx context.Context, current string) error
}

// Status is the outcome of a stage.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StageResult reports how one stage went.
type StageResult struct {
	Op       Operation
	Status   Status
	Matches  int
	Duration time.Duration
	Err      error // NO_TAGS for skipped stages, the cause for failed ones
}

// Report summarises a run.
type Report struct {
	Stages  []StageResult
	Changed bool
	Output  string
	RunID   string
}

// Applied returns the operations that changed the file.
func (r Report) Applied() []Operation {
	var ops []Operation
	for _, s := range r.Stages {
		if s.Status == StatusApplied {
			ops = append(ops, s.Op)
		}
	}
	return ops
}

// Runner executes stages. The zero value is usable.
type Runner struct {
	Log logger.Logger
	// Fs holds input, output and every intermediate; defaults to the OS.
	// Stage Before hooks get paths in Fs.
	Fs afero.Fs
	// NewRunID names the intermediates of one run; defaults to a short uuid.
	NewRunID func() string
	// OnStage is called after every stage.
	OnStage func(StageResult)
}

func (r *Runner) log() logger.Logger {
	if r.Log == nil {
		return logger.Noop()
	}
	return r.Log
}

func (r *Runner) fs() afero.Fs {
	if r.Fs == nil {
		return afero.NewOsFs()
	}
	return r.Fs
}

func (r *Runner) runID() string {
	if r.NewRunID != nil {
		return r.NewRunID()
	}
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Run applies stages to input and, if anything changed, leaves the result at
// output (replacing any existing file). When no stage changes the file,
// nothing is written and Report.Changed is false.
//
// A stage that fails aborts the run. Every intermediate of the run is removed
// before Run returns, whichever way it ends.
func (r *Runner) Run(ctx context.Context, input, output string, stages []Stage) (report Report, err error) {
	log := r.log()
	fs := r.fs()

	report.RunID = r.runID()
	pattern := clean.NewPattern(output, report.RunID)

	defer func() {
		removed, errs := clean.Sweep(fs, pattern)
		for _, p := range removed {
			log.Debug("Removed intermediate %s", p)
		}
		for _, e := range errs {
			log.Warn("Couldn't remove intermediate: %v", e)
		}
	}()

	log.Info("Initial input file: %s", input)

	current := input
	for i, st := range stages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, errors.WrapWithCode(ctxErr, errors.ErrIO, "Processing interrupted", "")
		}

		done := logger.Operation(log, string(st.Op))
		start := time.Now()
		result := StageResult{Op: st.Op}

		if st.Before != nil {
			if err := st.Before(ctx, current); err != nil {
				result.Status, result.Err = StatusFailed, err
				report.record(r, result, start)
				done("failed")
				return report, err
			}
		}

		next := pattern.Path(i + 1)
		res, err := transform.FileFs(ctx, fs, current, next, st.Rules, log)
		if err != nil {
			result.Status, result.Err = StatusFailed, err
			report.record(r, result, start)
			done("failed")
			return report, err
		}
		result.Matches = res.Matches

		if !res.Found {
			if rmErr := fs.Remove(next); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("Couldn't discard %s: %v", next, rmErr)
			}
			result.Status = StatusSkipped
			result.Err = errors.New(errors.ErrNoTags,
				fmt.Sprintf("No %s tags found", st.Op),
				"The file was left unchanged for this operation")
			log.Warn("No tags found for %s; keeping %s", st.Op, current)
			report.record(r, result, start)
			done("skipped")
			continue
		}

		if current != input {
			if rmErr := fs.Remove(current); rmErr != nil {
				log.Warn("Couldn't remove superseded %s: %v", current, rmErr)
			}
		}
		current = next
		result.Status = StatusApplied
		report.record(r, result, start)
		log.Info("Updated %d tags for %s", res.Matches, st.Op)
		done("completed")
	}

	if current == input {
		log.Warn("No operation changed %s", input)
		return report, nil
	}

	if err := fs.Rename(current, output); err != nil {
		return report, errors.WrapWithCode(err, errors.ErrIO,
			fmt.Sprintf("Couldn't write %s", output),
			"Check the output folder is writable and the file is not open elsewhere")
	}
	report.Changed = true
	report.Output = output
	log.Info("Output saved to: %s", output)
	return report, nil
}

func (rep *Report) record(r *Runner, res StageResult, start time.Time) {
	res.Duration = time.Since(start)
	rep.Stages = append(rep.Stages, res)
	if r.OnStage != nil {
		r.OnStage(res)
	}
}
