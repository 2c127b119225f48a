// Package archive unpacks a CAR (a ZIP container holding a configuration
// export), hands its XML payload to a caller supplied transform and packs the
// result into a new CAR.
//
// A Job moves through New, Extracted, XMLTransformed, Repackaged and Cleaned.
// Any failed transition leaves the job Failed. Temporary directories belong
// to the job and are removed by Close, whatever state the job ended in.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
)

// State is the position of a Job in its lifecycle.
type State int

const (
	StateNew State = iota
	StateExtracted
	StateXMLTransformed
	StateRepackaged
	StateCleaned
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateExtracted:
		return "extracted"
	case StateXMLTransformed:
		return "xml_transformed"
	case StateRepackaged:
		return "repackaged"
	case StateCleaned:
		return "cleaned"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Defaults for Options.
const (
	DefaultMarker    = "_modified"
	DefaultExtension = ".car"
)

// Options control where a job works and how it names its output.
type Options struct {
	// Marker is appended to modified file names and stripped again during
	// cleanup.
	Marker string
	// Extension of the produced archive.
	Extension string
	// TempRoot is where temporary directories are created; empty means the
	// system default.
	TempRoot string
	// Progress receives file counts during the first extraction.
	Progress ProgressFunc
	// OnTransition is called after every successful state change.
	OnTransition func(to State, elapsed time.Duration)
}

func (o Options) withDefaults() Options {
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	return o
}

// Job is one CAR being localised.
type Job struct {
	ArchivePath     string
	TempDir         string
	XMLPath         string
	ModifiedXMLPath string
	CleanupDir      string
	OutputPath      string
	State           State

	opts     Options
	log      logger.Logger
	tempDirs []string
	started  time.Time
}

// CleanReport lists what the cleanup pass did.
type CleanReport struct {
	XMLFound int
	Deleted  []string
	Renamed  []string
}

// Open extracts carPath into a fresh temporary directory and selects the
// lexicographically first XML file in it. The directory is removed again if
// anything goes wrong.
func Open(ctx context.Context, carPath string, opts Options, log logger.Logger) (*Job, error) {
	if log == nil {
		log = logger.Noop()
	}
	j := &Job{
		ArchivePath: carPath,
		State:       StateNew,
		opts:        opts.withDefaults(),
		log:         log,
		started:     time.Now(),
	}

	dir, err := j.mkTemp("car_extract_*")
	if err != nil {
		return nil, err
	}
	j.TempDir = dir
	log.Info("[INIT] Temporary extraction directory created: %s", dir)

	n, err := ExtractTo(ctx, carPath, dir, j.opts.Progress)
	if err != nil {
		j.Close()
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrInput,
				fmt.Sprintf("The file '%s' does not exist", carPath),
				"Check the path and try again")
		}
		return nil, errors.WrapWithCode(err, errors.ErrArchive,
			fmt.Sprintf("Couldn't extract %s", filepath.Base(carPath)),
			"Make sure the file is a CAR export and is not damaged")
	}
	log.Info("[EXTRACT] Extracted %d files from '%s' to '%s'", n, carPath, dir)

	xmls, err := findXML(dir)
	if err != nil {
		j.Close()
		return nil, errors.WrapWithCode(err, errors.ErrIO,
			"Couldn't scan the extracted archive", "")
	}
	if len(xmls) == 0 {
		log.Error("[ERROR] No XML files found in the extracted CAR archive")
		j.Close()
		return nil, errors.ErrNoXMLInArchive
	}
	if len(xmls) > 1 {
		log.Warn("Archive holds %d XML files, using the first: %s", len(xmls), xmls[0])
	}

	j.XMLPath = xmls[0]
	base := strings.TrimSuffix(filepath.Base(j.XMLPath), filepath.Ext(j.XMLPath))
	j.ModifiedXMLPath = filepath.Join(filepath.Dir(j.XMLPath), base+j.opts.Marker+".xml")
	log.Info("[SELECT] Using XML file: %s", j.XMLPath)

	j.transition(StateExtracted)
	return j, nil
}

// MarkTransformed records that the caller has written ModifiedXMLPath.
func (j *Job) MarkTransformed() error {
	if err := j.expect(StateExtracted); err != nil {
		return err
	}
	if _, err := os.Stat(j.ModifiedXMLPath); err != nil {
		return j.fail(errors.WrapWithCode(err, errors.ErrArchive,
			"The modified XML was not written",
			"Run at least one operation that changes the file"))
	}
	j.transition(StateXMLTransformed)
	return nil
}

// Repackage swaps the modified XML into the original XML's place and writes
// the whole extracted tree to <archive base><marker><ext> beside the source.
func (j *Job) Repackage(ctx context.Context) (string, error) {
	if err := j.expect(StateXMLTransformed); err != nil {
		return "", err
	}

	if err := os.Remove(j.XMLPath); err != nil {
		j.log.Warn("Couldn't delete original XML %s: %v", j.XMLPath, err)
	} else {
		j.log.Info("Deleted original XML file: %s", j.XMLPath)
	}

	if err := copyFile(j.ModifiedXMLPath, j.XMLPath); err != nil {
		return "", j.fail(errors.WrapWithCode(err, errors.ErrIO,
			"Couldn't place the modified XML in the archive tree", ""))
	}
	j.log.Info("Placed modified XML at: %s", j.XMLPath)

	base := strings.TrimSuffix(j.ArchivePath, filepath.Ext(j.ArchivePath))
	j.OutputPath = base + j.opts.Marker + j.opts.Extension

	if err := PackDir(ctx, j.TempDir, j.OutputPath); err != nil {
		return "", j.fail(errors.WrapWithCode(err, errors.ErrArchive,
			fmt.Sprintf("Couldn't write %s", filepath.Base(j.OutputPath)),
			"Check the folder holding the CAR file is writable"))
	}
	j.log.Info("Created modified CAR archive: %s", j.OutputPath)

	j.transition(StateRepackaged)
	return j.OutputPath, nil
}

// Clean re-extracts the repackaged archive, deletes every XML whose name
// lacks the marker, strips the marker from the rest and writes the archive
// again in place. If cleanup fails the repackaged archive is removed too,
// since it still holds both copies of the XML.
func (j *Job) Clean(ctx context.Context) (CleanReport, error) {
	var report CleanReport
	if err := j.expect(StateRepackaged); err != nil {
		return report, err
	}

	dir, err := j.mkTemp("car_cleanup_*")
	if err != nil {
		os.Remove(j.OutputPath)
		return report, j.fail(err)
	}
	j.CleanupDir = dir
	j.log.Info("Created cleanup temporary directory: %s", dir)

	if _, err := ExtractTo(ctx, j.OutputPath, dir, nil); err != nil {
		os.Remove(j.OutputPath)
		return report, j.fail(errors.WrapWithCode(err, errors.ErrArchive,
			"Couldn't re-open the repackaged archive", ""))
	}

	report, err = stripMarker(dir, j.opts.Marker)
	if err != nil {
		os.Remove(j.OutputPath)
		return report, j.fail(errors.WrapWithCode(err, errors.ErrIO,
			"Couldn't tidy the XML files in the archive", ""))
	}
	j.log.Info("Cleanup: %d XML found, %d deleted, %d renamed",
		report.XMLFound, len(report.Deleted), len(report.Renamed))

	if err := PackDir(ctx, dir, j.OutputPath); err != nil {
		os.Remove(j.OutputPath)
		return report, j.fail(errors.WrapWithCode(err, errors.ErrArchive,
			fmt.Sprintf("Couldn't write %s", filepath.Base(j.OutputPath)), ""))
	}
	j.log.Info("Created cleaned CAR archive: %s", j.OutputPath)

	j.transition(StateCleaned)
	return report, nil
}

func stripMarker(dir, marker string) (CleanReport, error) {
	var report CleanReport

	xmls, err := findXML(dir)
	if err != nil {
		return report, err
	}
	report.XMLFound = len(xmls)

	var keep []string
	for _, p := range xmls {
		name := filepath.Base(p)
		if strings.Contains(name, marker) {
			keep = append(keep, p)
			continue
		}
		if err := os.Remove(p); err != nil {
			return report, err
		}
		report.Deleted = append(report.Deleted, name)
	}

	for _, p := range keep {
		name := filepath.Base(p)
		renamed := strings.ReplaceAll(name, marker, "")
		if err := os.Rename(p, filepath.Join(filepath.Dir(p), renamed)); err != nil {
			return report, err
		}
		report.Renamed = append(report.Renamed, renamed)
	}
	return report, nil
}

// Close removes every temporary directory the job created. It is safe to
// call more than once.
func (j *Job) Close() error {
	var firstErr error
	for _, dir := range j.tempDirs {
		if err := os.RemoveAll(dir); err != nil {
			j.log.Error("Couldn't remove temporary directory %s: %v", dir, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.log.Info("Removed temporary directory: %s", dir)
	}
	j.tempDirs = nil
	return firstErr
}

func (j *Job) mkTemp(pattern string) (string, error) {
	dir, err := os.MkdirTemp(j.opts.TempRoot, pattern)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrIO,
			"Couldn't create a temporary directory",
			"Check free disk space in the temporary folder")
	}
	j.tempDirs = append(j.tempDirs, dir)
	return dir, nil
}

func (j *Job) expect(s State) error {
	if j.State != s {
		return errors.New(errors.ErrArchive,
			fmt.Sprintf("Archive job is %s, expected %s", j.State, s), "")
	}
	return nil
}

func (j *Job) fail(err error) error {
	j.State = StateFailed
	j.log.Error("CAR processing failed: %v", err)
	return err
}

func (j *Job) transition(to State) {
	j.State = to
	if j.opts.OnTransition != nil {
		j.opts.OnTransition(to, time.Since(j.started))
	}
	j.started = time.Now()
}

// TransformFunc produces out from in and reports whether anything changed.
type TransformFunc func(ctx context.Context, in, out string) (changed bool, err error)

// Process runs a whole job for carPath: extract, transform, repackage and
// clean. It returns the path of the finished archive, or "" when fn changed
// nothing. Temporary directories are always removed before it returns.
func Process(ctx context.Context, carPath string, opts Options, log logger.Logger, fn TransformFunc) (string, error) {
	job, err := Open(ctx, carPath, opts, log)
	if err != nil {
		return "", err
	}
	defer job.Close()

	changed, err := fn(ctx, job.XMLPath, job.ModifiedXMLPath)
	if err != nil {
		return "", job.fail(err)
	}
	if !changed {
		job.log.Warn("No changes were made to %s; no archive written", filepath.Base(job.XMLPath))
		return "", nil
	}

	if err := job.MarkTransformed(); err != nil {
		return "", err
	}
	if _, err := job.Repackage(ctx); err != nil {
		return "", err
	}
	if _, err := job.Clean(ctx); err != nil {
		return "", err
	}
	return job.OutputPath, nil
}
