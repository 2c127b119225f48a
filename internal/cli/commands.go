package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rileyhilliard/bldm-localizer/internal/config"
	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/sftp"
	"github.com/rileyhilliard/bldm-localizer/internal/ui"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	configInitForce  bool
	configInitGlobal bool
	probePortFlag    int
	probeTimeoutFlag time.Duration
)

// newPrompter is swapped out in tests.
var newPrompter = newTerminalPrompter

var localizeCmd = &cobra.Command{
	Use:   "localize [dir]",
	Short: "Pick an export from a directory and localize it",
	Long: `Search a directory for .car and .xml exports, pick one, choose the
operations to apply, and write the localized copy to the "Modified files"
folder.

Examples:
  bldm-localizer localize
  bldm-localizer localize ./exports`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return localizeCommand(cmd, firstArg(args), "", KindAny)
	},
}

var xmlCmd = &cobra.Command{
	Use:   "xml <file>",
	Short: "Localize one XML export",
	Long: `Localize an XML export without searching a directory first.

The XML must be exported from BLDM without dependencies.

Examples:
  bldm-localizer xml ./exports/collectors.xml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return localizeCommand(cmd, "", args[0], KindXML)
	},
}

var carCmd = &cobra.Command{
	Use:   "car <file>",
	Short: "Localize one CAR archive",
	Long: `Extract a CAR archive, localize the XML inside it, and rebuild the
archive without the intermediate files.

Examples:
  bldm-localizer car ./exports/site-a.car`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return localizeCommand(cmd, "", args[0], KindCAR)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe <host>",
	Short: "Check that an SFTP host answers SSH",
	Long: `Resolve a host the same way the SFTP host prompt does (IP address,
'localhost', or an ssh config alias) and check that it answers an SSH
handshake. No credentials are sent.

Examples:
  bldm-localizer probe 10.0.4.12
  bldm-localizer probe sftp-prod --timeout 2s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return probeCommand(cmd, args[0])
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the bldm-localizer config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long: `Write .bldm-localizer.yaml in the current directory (or the user
config file with --global) holding every setting at its default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitCommand(cmd, configInitGlobal, configInitForce)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(localizeCmd, xmlCmd, carCmd, probeCmd, configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configInitCmd.Flags().BoolVar(&configInitGlobal, "global", false, "write the user config file instead of ./"+config.ConfigFileName)

	probeCmd.Flags().IntVar(&probePortFlag, "port", 0, "SSH port (default: from ssh config, then sftp.port)")
	probeCmd.Flags().DurationVar(&probeTimeoutFlag, "timeout", 0, "probe timeout (default: sftp.probe_timeout)")
}

// loadConfig finds, loads, and validates config, then resolves its
// directories against the working directory.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	cfg.Resolve(cwd)
	return cfg, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func localizeCommand(cmd *cobra.Command, dir, file, kind string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	prompter, err := newPrompter()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	_, err = Localize(ctx, LocalizeOptions{
		Dir:      dir,
		File:     file,
		Kind:     kind,
		Config:   cfg,
		Prompter: prompter,
		Out:      cmd.OutOrStdout(),
		Version:  version,
		Verbose:  verbose,
		NoLog:    noLog,
	})
	if err != nil && ctx.Err() != nil && !errors.IsCode(err, errors.ErrCancelled) {
		return errInterrupted
	}
	return err
}

func probeCommand(cmd *cobra.Command, host string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sshConfig := cfg.SFTP.SSHConfig
	if sshConfig == "" {
		sshConfig = sftp.DefaultSSHConfigPath()
	}

	target, err := sftp.ResolveHost(host, sshConfig)
	if err != nil {
		return err
	}

	port := cfg.SFTP.Port
	if target.Port > 0 {
		port = target.Port
	}
	if probePortFlag > 0 {
		port = probePortFlag
	}
	timeout := cfg.SFTP.ProbeTimeout
	if probeTimeoutFlag > 0 {
		timeout = probeTimeoutFlag
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	pd := ui.NewPhaseDisplay(cmd.OutOrStdout())
	name := target.Host
	if target.Alias != "" {
		name = fmt.Sprintf("%s (%s)", target.Alias, target.Host)
	}
	pd.RenderProgress("Probing " + name)

	start := time.Now()
	res, err := sftp.Probe(ctx, target.Host, port, timeout)
	if err != nil {
		pd.RenderFailed("Probing "+name, time.Since(start))
		return err
	}
	pd.RenderSuccess("Probing "+name, res.Address, res.Latency)
	pd.RenderSubStatus(ui.SymbolSuccess, res.KeyType, res.Fingerprint)
	return nil
}

func configInitCommand(cmd *cobra.Command, global, force bool) error {
	path := filepath.Join(".", config.ConfigFileName)
	if global {
		path = config.GlobalPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't create the config directory",
				"Check permissions on "+filepath.Dir(path))
		}
	}

	if err := config.WriteFile(path, config.DefaultConfig(), force); err != nil {
		return err
	}
	cmd.Printf("%s Wrote %s\n", ui.SymbolSuccess, path)
	return nil
}

func configShowCommand(cmd *cobra.Command) error {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	if path == "" {
		cmd.Println("# no config file found, showing defaults and environment overrides")
	} else {
		cmd.Printf("# loaded from %s\n", path)
	}
	cmd.Print(string(data))
	return nil
}
