package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = ".bldm-localizer.yaml"
	// AppDir is the directory under $XDG_CONFIG_HOME for global config.
	AppDir = "bldm-localizer"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. BLDM_LOCALIZER_LOGGING_LEVEL.
	EnvPrefix = "BLDM_LOCALIZER"
)

// GlobalPath returns $XDG_CONFIG_HOME/bldm-localizer/config.yaml.
func GlobalPath() string {
	return filepath.Join(xdg.ConfigHome, AppDir, GlobalConfigFile)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .bldm-localizer.yaml in the current directory
// 3. $XDG_CONFIG_HOME/bldm-localizer/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	local := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	if global := GlobalPath(); global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// Load reads config from path, layered over the defaults and under
// BLDM_LOCALIZER_* environment overrides. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'bldm-localizer config init' to create one, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}
	return cfg, nil
}

// LoadOrDefault finds and loads config, falling back to defaults when no
// file exists. It returns the path it loaded, if any.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("output.modified_dir", d.Output.ModifiedDir)
	v.SetDefault("output.commands_dir", d.Output.CommandsDir)
	v.SetDefault("logging.enabled", d.Logging.Enabled)
	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("archive.modified_marker", d.Archive.ModifiedMarker)
	v.SetDefault("archive.extension", d.Archive.Extension)
	v.SetDefault("sftp.probe", d.SFTP.Probe)
	v.SetDefault("sftp.probe_timeout", d.SFTP.ProbeTimeout.String())
	v.SetDefault("sftp.port", d.SFTP.Port)
	v.SetDefault("sftp.ssh_config", d.SFTP.SSHConfig)
	v.SetDefault("prompt.compat_notice", d.Prompt.CompatNotice)
}

// Resolve expands variables in the configured directories and makes relative
// ones absolute against base.
func (c *Config) Resolve(base string) {
	c.Output.ModifiedDir = resolveDir(base, c.Output.ModifiedDir)
	c.Output.CommandsDir = resolveDir(base, c.Output.CommandsDir)
	c.Logging.Dir = resolveDir(base, c.Logging.Dir)
	c.SFTP.SSHConfig = ExpandTilde(Expand(c.SFTP.SSHConfig))
}

func resolveDir(base, dir string) string {
	dir = ExpandTilde(Expand(dir))
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
