package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/bldm-localizer/internal/archive"
	"github.com/rileyhilliard/bldm-localizer/internal/config"
	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
	"github.com/rileyhilliard/bldm-localizer/internal/mkdirs"
	"github.com/rileyhilliard/bldm-localizer/internal/pipeline"
	"github.com/rileyhilliard/bldm-localizer/internal/sftp"
	"github.com/rileyhilliard/bldm-localizer/internal/ui"
	"github.com/rileyhilliard/bldm-localizer/internal/util"
	"github.com/rileyhilliard/bldm-localizer/internal/workspace"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Input kinds accepted by Localize.
const (
	KindAny = ""
	KindXML = "xml"
	KindCAR = "car"
)

// LocalizeOptions configures one interactive run.
type LocalizeOptions struct {
	// Dir is searched for exports; prompted for when empty.
	Dir string
	// File skips discovery and processes this export directly.
	File string
	// Kind restricts File to XML or CAR exports.
	Kind string

	Config   *config.Config
	Prompter Prompter
	Out      io.Writer
	// Fs defaults to the OS. CAR extraction and mkdir scripts always use disk.
	Fs  afero.Fs
	Now func() time.Time

	Version string
	Verbose bool
	NoLog   bool
}

// LocalizeResult lists what a run produced.
type LocalizeResult struct {
	Input   string
	Output  string
	Script  string
	LogPath string
	Applied []pipeline.Operation
}

// Localize runs the interactive workflow: acknowledge the compatibility
// notice, pick an export, pick operations, enter their values, then write the
// modified export into the modified-files folder.
func Localize(ctx context.Context, opts LocalizeOptions) (*LocalizeResult, error) {
	opts = opts.withDefaults()
	cfg := opts.Config
	out := opts.Out
	pd := ui.NewPhaseDisplay(out)

	ui.PrintBanner(out, formatVersion(opts.Version))
	printSessionLine(out, opts.Now())

	if cfg.Prompt.CompatNotice {
		fmt.Fprint(out, ui.RenderCompatNotice())
		ok, err := opts.Prompter.Confirm(
			"Do you confirm that your file complies with the compatibility requirements?", "")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Cancelled("Please export an XML file without dependencies from BLDM before proceeding.")
		}
		fmt.Fprintln(out, "Proceeding with file processing...")
	}

	ws := workspace.New(cfg.Output.ModifiedDir, cfg.Output.CommandsDir)
	ws.Fs = opts.Fs

	input, err := chooseInput(opts, ws)
	if err != nil {
		return nil, err
	}
	kind := kindOf(input)
	if opts.Kind != KindAny && kind != opts.Kind {
		return nil, errors.New(errors.ErrInput,
			fmt.Sprintf("%s is not a .%s file", input, opts.Kind),
			"Pick a file with the right extension, or use 'bldm-localizer localize'")
	}

	label := ws.Label(input, "localizer")
	log, logPath, closeLog, err := openLog(opts, label)
	if err != nil {
		return nil, err
	}
	defer closeLog()
	logger.SessionStart(log, opts.Now())
	log.Info("=== Initializing XML/CAR Path Processor ===")
	log.Info("Processing %s file: %s", strings.ToUpper(kind), input)
	fmt.Fprintf(out, "\nProcessing %s file: %s\n", strings.ToUpper(kind), input)

	result := &LocalizeResult{Input: input, LogPath: logPath}

	ops, err := chooseOperations(opts.Prompter)
	if err != nil {
		return result, err
	}
	if len(ops) == 0 {
		log.Warn("No operations selected. Exiting.")
		fmt.Fprintln(out, "\nNo operations selected. Exiting.")
		return result, nil
	}
	log.Info("Selected operations: %s", joinOps(ops))

	if err := ws.EnsureDirs(); err != nil {
		return result, err
	}

	params, err := askParams(ctx, opts, ops, pd, log)
	if err != nil {
		return result, err
	}

	scriptLabel := label
	sink := func(script mkdirs.Script) (string, error) {
		path, err := ws.WriteCommands(scriptLabel, script.Commands)
		if err != nil {
			return "", err
		}
		result.Script = path
		return path, nil
	}

	stages, err := pipeline.BuildStages(ops, params, sink, log)
	if err != nil {
		return result, err
	}

	runner := &pipeline.Runner{
		Log: log,
		Fs:  opts.Fs,
		OnStage: func(res pipeline.StageResult) {
			renderStage(pd, res)
		},
	}

	pd.Newline()
	var report pipeline.Report
	switch kind {
	case KindCAR:
		output, err := localizeCAR(ctx, opts, ws, input, log, pd, func(ctx context.Context, in, dst string) (bool, error) {
			scriptLabel = ws.Label(in, label)
			rep, err := runner.Run(ctx, in, dst, stages)
			report = rep
			return rep.Changed, err
		})
		if err != nil {
			return result, err
		}
		result.Output = output
	default:
		output, err := ws.ModifiedXMLPath(input)
		if err != nil {
			return result, err
		}
		log.Info("Output will be saved to: %s", output)
		report, err = runner.Run(ctx, input, output, stages)
		if err != nil {
			return result, err
		}
		result.Output = report.Output
	}
	result.Applied = report.Applied()

	logSummary(log, result)
	pd.Divider()
	fmt.Fprint(out, ui.RenderSummary(opLabels(result.Applied), []ui.Artifact{
		{Label: "Modified file", Path: result.Output},
		{Label: "mkdir script", Path: result.Script},
		{Label: "Log file", Path: result.LogPath},
	}))
	log.Info("Processing complete!")
	return result, nil
}

func (o LocalizeOptions) withDefaults() LocalizeOptions {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func printSessionLine(w io.Writer, now time.Time) {
	userName := "unknown"
	if u, err := user.Current(); err == nil {
		userName = u.Username
	}
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "unknown"
	}
	style := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	fmt.Fprintf(w, "%s\n", style.Render(fmt.Sprintf("User: %s | Host: %s | Time: %s",
		userName, hostName, now.Format("2006-01-02 15:04:05"))))
}

func kindOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".car":
		return KindCAR
	case ".xml":
		return KindXML
	default:
		return ""
	}
}

// chooseInput returns the export to process: opts.File when given, otherwise
// the operator's pick from the exports found under a directory.
func chooseInput(opts LocalizeOptions, ws *workspace.Workspace) (string, error) {
	if opts.File != "" {
		info, err := opts.Fs.Stat(opts.File)
		if err != nil || info.IsDir() {
			return "", errors.New(errors.ErrInput,
				fmt.Sprintf("File '%s' does not exist", opts.File),
				"Check the path and try again")
		}
		if kindOf(opts.File) == "" {
			return "", errors.New(errors.ErrInput,
				fmt.Sprintf("Unsupported file type: %s", opts.File),
				"Only .xml and .car exports can be processed")
		}
		return opts.File, nil
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = opts.Prompter.Input(InputSpec{
			Title:       "Enter the directory path to search for files",
			Placeholder: ".",
			Validate:    validateDirectory,
		})
		if err != nil {
			return "", err
		}
	} else if err := validateDirectory(dir); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrInput,
			fmt.Sprintf("Can't search %s", dir),
			"Pass a readable directory")
	}

	found, err := workspace.Discover(ws.Fs, dir)
	if err != nil {
		return "", err
	}
	if found.Empty() {
		fmt.Fprintln(opts.Out, "No .car or .xml files found in the specified directory.")
		return "", errors.Cancelled("No files to process. Exiting.")
	}

	all := found.All()
	options := make([]Option, 0, len(all)+1)
	for _, p := range all {
		options = append(options, Option{Label: fileLabel(strings.ToUpper(kindOf(p)), dir, p), Value: p})
	}
	options = append(options, Option{Label: "Quit", Value: ""})

	fmt.Fprintf(opts.Out, "\nFound %s and %s\n",
		util.Count(len(found.CAR), "CAR file", "CAR files"),
		util.Count(len(found.XML), "XML file", "XML files"))

	selected, err := opts.Prompter.Select("Select a file to process", options)
	if err != nil {
		return "", err
	}
	if selected == "" {
		return "", errors.Cancelled("Exiting program.")
	}
	return selected, nil
}

func fileLabel(kind, root, path string) string {
	label := fmt.Sprintf("[%s] %s", kind, filepath.Base(path))
	if rel, err := filepath.Rel(root, filepath.Dir(path)); err == nil && rel != "." {
		label += "  (" + rel + ")"
	}
	return label
}

// openLog opens the run's log file. --verbose raises the level to debug and
// mirrors entries to stderr.
func openLog(opts LocalizeOptions, label string) (logger.Logger, string, func(), error) {
	if opts.NoLog || !opts.Config.Logging.Enabled {
		if opts.Verbose {
			return logger.NewConsole(os.Stderr, zerolog.DebugLevel), "", func() {}, nil
		}
		return logger.Noop(), "", func() {}, nil
	}
	var console io.Writer
	level, err := logger.ParseLevel(opts.Config.Logging.Level)
	if err != nil {
		return nil, "", nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Unknown log level %q", opts.Config.Logging.Level),
			"Use one of debug, info, warn, error")
	}
	if opts.Verbose {
		level = zerolog.DebugLevel
		console = os.Stderr
	}
	fl, err := logger.OpenFile(opts.Config.Logging.Dir, label, level, opts.Now(), console)
	if err != nil {
		return nil, "", nil, errors.WrapWithCode(err, errors.ErrIO,
			"Couldn't open the log file",
			"Check that the logs folder is writable, or run with --no-log")
	}
	return fl, fl.Path, func() { fl.Close() }, nil
}

func chooseOperations(p Prompter) ([]pipeline.Operation, error) {
	options := make([]Option, len(pipeline.Operations))
	for i, op := range pipeline.Operations {
		options[i] = Option{Label: op.Label(), Value: string(op)}
	}
	picked, err := p.MultiSelect("Select operations to perform", options)
	if err != nil {
		return nil, err
	}
	ops := make([]pipeline.Operation, 0, len(picked))
	for _, s := range picked {
		op, err := pipeline.ParseOperation(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return pipeline.Canonical(ops), nil
}

// askParams prompts for the values the selected operations need, in stage
// order.
func askParams(ctx context.Context, opts LocalizeOptions, ops []pipeline.Operation, pd *ui.PhaseDisplay, log logger.Logger) (pipeline.Params, error) {
	var params pipeline.Params
	p := opts.Prompter
	sshConfig := opts.Config.SFTP.SSHConfig
	if sshConfig == "" {
		sshConfig = sftp.DefaultSSHConfigPath()
	}

	for _, op := range ops {
		switch op {
		case pipeline.OpPaths:
			prefix, err := p.Input(InputSpec{
				Title:       "Enter the full path prefix to prepend",
				Description: "A leading '/' is added and a trailing '/' removed",
				Placeholder: "/mnt/bldm",
				Validate:    validatePrefix,
			})
			if err != nil {
				return params, err
			}
			params.Prefix = mkdirs.NormalizePrefix(prefix)
			log.Info("User provided path prefix: %s", params.Prefix)

		case pipeline.OpHost:
			raw, err := p.Input(InputSpec{
				Title:       "Enter the new SFTP host IP address (or 'localhost')",
				Description: "An ssh config alias that points to an IP also works",
				Validate:    validateHost(sshConfig),
			})
			if err != nil {
				return params, err
			}
			target, err := sftp.ResolveHost(raw, sshConfig)
			if err != nil {
				return params, err
			}
			params.Host = target.Host
			if target.Alias != "" {
				log.Info("[SFTP] Resolved alias %s to %s", target.Alias, target.Host)
			} else {
				log.Info("[SFTP] Valid host entered: %s", target.Host)
			}
			if opts.Config.SFTP.Probe {
				probeHost(ctx, opts.Config, target, pd, log)
			}

		case pipeline.OpUsername:
			name, err := p.Input(InputSpec{
				Title:    "Enter the SFTP username",
				Validate: validateRequired("username"),
			})
			if err != nil {
				return params, err
			}
			params.Username = name
			log.Info("[SFTP] Username provided: '%s'", name)

		case pipeline.OpPassword:
			password, err := p.Input(InputSpec{
				Title:       "Enter the SFTP password",
				Description: "Paste the value already encrypted by BLDM",
				Secret:      true,
				Validate:    validateRequired("password"),
			})
			if err != nil {
				return params, err
			}
			params.Password = password
			log.Info("[SFTP] Encrypted password received (not logged for security)")
		}
	}
	return params, nil
}

// probeHost checks the SFTP host answers SSH. Failure is only a warning.
func probeHost(ctx context.Context, cfg *config.Config, target sftp.Target, pd *ui.PhaseDisplay, log logger.Logger) {
	port := cfg.SFTP.Port
	if target.Port > 0 {
		port = target.Port
	}
	res, err := sftp.Probe(ctx, target.Host, port, cfg.SFTP.ProbeTimeout)
	if err != nil {
		log.Warn("[SFTP] Probe of %s failed: %s", target.Host, sftp.ReasonOf(err))
		pd.RenderWarning(fmt.Sprintf("SFTP host %s did not answer (%s); continuing anyway", target.Host, sftp.ReasonOf(err)))
		return
	}
	log.Info("[SFTP] %s answered in %s, host key %s", res.Address, res.Latency.Round(time.Millisecond), res.Fingerprint)
	pd.RenderSubStatus(ui.SymbolSuccess, res.Address, res.Fingerprint)
}

// localizeCAR extracts the archive, runs fn on its XML, rebuilds it and moves
// the result into the modified-files folder.
func localizeCAR(ctx context.Context, opts LocalizeOptions, ws *workspace.Workspace, input string, log logger.Logger, pd *ui.PhaseDisplay, fn archive.TransformFunc) (string, error) {
	progress := ui.NewExtractProgress(opts.Out, "Extracting archive")
	extracted := false

	archiveOpts := archive.Options{
		Marker:    opts.Config.Archive.ModifiedMarker,
		Extension: opts.Config.Archive.Extension,
		Progress:  progress.Update,
		OnTransition: func(to archive.State, elapsed time.Duration) {
			switch to {
			case archive.StateExtracted:
				extracted = true
				progress.Finish(true)
			case archive.StateRepackaged:
				pd.RenderSuccess("Repackaged archive", "", elapsed)
			case archive.StateCleaned:
				pd.RenderSuccess("Cleaned archive", "", elapsed)
			}
		},
	}

	done := logger.Operation(log, "CAR processing")
	output, err := archive.Process(ctx, input, archiveOpts, log, fn)
	if err != nil {
		if !extracted {
			progress.Finish(false)
		}
		done("failed")
		return "", err
	}
	done("completed")
	if output == "" {
		return "", nil
	}

	placed, err := ws.PlaceArchive(output)
	if err != nil {
		return "", err
	}
	log.Info("Moved cleaned CAR file to: %s", placed)
	return placed, nil
}

func renderStage(pd *ui.PhaseDisplay, res pipeline.StageResult) {
	switch res.Status {
	case pipeline.StatusApplied:
		pd.RenderSuccess(res.Op.Label(), util.Count(res.Matches, "tag", "tags"), res.Duration)
	case pipeline.StatusSkipped:
		pd.RenderSkipped(res.Op.Label(), "no matching tags")
	case pipeline.StatusFailed:
		pd.RenderFailed(res.Op.Label(), res.Duration)
	}
}

func logSummary(log logger.Logger, r *LocalizeResult) {
	log.Info("=== Summary of operations performed ===")
	if len(r.Applied) == 0 {
		log.Info("No operations changed the file")
	}
	for i, op := range r.Applied {
		log.Info("%d. %s", i+1, op.Label())
	}
	if r.Output != "" {
		log.Info("Modified file: %s", r.Output)
	}
	if r.Script != "" {
		log.Info("mkdir script: %s", r.Script)
	}
}

func opLabels(ops []pipeline.Operation) []string {
	labels := make([]string, len(ops))
	for i, op := range ops {
		labels[i] = op.Label()
	}
	return labels
}

func joinOps(ops []pipeline.Operation) string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return util.JoinOrNone(names)
}
