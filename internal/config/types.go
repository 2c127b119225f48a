package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
const CurrentConfigVersion = 1

// Config represents the .bldm-localizer.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
	SFTP    SFTPConfig    `yaml:"sftp" mapstructure:"sftp"`
	Prompt  PromptConfig  `yaml:"prompt" mapstructure:"prompt"`
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	// ModifiedDir receives modified XML exports and repackaged archives.
	ModifiedDir string `yaml:"modified_dir" mapstructure:"modified_dir"`

	// CommandsDir receives the generated mkdir scripts.
	CommandsDir string `yaml:"commands_dir" mapstructure:"commands_dir"`
}

// LoggingConfig controls the per-run log file.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`
}

// ArchiveConfig controls CAR handling.
type ArchiveConfig struct {
	// ModifiedMarker is appended to the base name of rewritten files.
	ModifiedMarker string `yaml:"modified_marker" mapstructure:"modified_marker"`
	Extension      string `yaml:"extension" mapstructure:"extension"`
}

// SFTPConfig controls the optional reachability check on the SFTP host.
type SFTPConfig struct {
	// Probe checks the host answers SSH after it is entered.
	Probe        bool          `yaml:"probe" mapstructure:"probe"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	Port         int           `yaml:"port" mapstructure:"port"`
	// SSHConfig is the ssh config file searched for host aliases.
	// Empty means ~/.ssh/config.
	SSHConfig string `yaml:"ssh_config,omitempty" mapstructure:"ssh_config"`
}

// PromptConfig controls the interactive flow.
type PromptConfig struct {
	// CompatNotice shows the export compatibility notice before processing.
	CompatNotice bool `yaml:"compat_notice" mapstructure:"compat_notice"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Output: OutputConfig{
			ModifiedDir: "Modified files",
			CommandsDir: "Manual commands for creating path",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Dir:     "logs",
			Level:   "info",
		},
		Archive: ArchiveConfig{
			ModifiedMarker: "_modified",
			Extension:      ".car",
		},
		SFTP: SFTPConfig{
			Probe:        false,
			ProbeTimeout: 5 * time.Second,
			Port:         22,
		},
		Prompt: PromptConfig{
			CompatNotice: true,
		},
	}
}
