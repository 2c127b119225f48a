package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
)

// Validate checks the config for errors and returns a structured CONFIG error
// for the first problem found.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but bldm-localizer only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade bldm-localizer or lower the version field")
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section in your "+ConfigFileName)
	}
	if err := validateLogging(cfg.Logging); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'logging' section in your "+ConfigFileName)
	}
	if err := validateArchive(cfg.Archive); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'archive' section in your "+ConfigFileName)
	}
	if err := validateSFTP(cfg.SFTP); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'sftp' section in your "+ConfigFileName)
	}
	return nil
}

func validateOutput(o OutputConfig) error {
	if strings.TrimSpace(o.ModifiedDir) == "" {
		return fmt.Errorf("output.modified_dir can't be empty")
	}
	if strings.TrimSpace(o.CommandsDir) == "" {
		return fmt.Errorf("output.commands_dir can't be empty")
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("logging.level %q isn't one of debug, info, warn, error", l.Level)
	}
	if l.Enabled && strings.TrimSpace(l.Dir) == "" {
		return fmt.Errorf("logging.dir can't be empty while logging is enabled")
	}
	return nil
}

func validateArchive(a ArchiveConfig) error {
	if a.ModifiedMarker == "" {
		return fmt.Errorf("archive.modified_marker can't be empty")
	}
	if strings.ContainsAny(a.ModifiedMarker, `/\`) {
		return fmt.Errorf("archive.modified_marker %q can't contain path separators", a.ModifiedMarker)
	}
	if !strings.HasPrefix(a.Extension, ".") || len(a.Extension) < 2 {
		return fmt.Errorf("archive.extension %q must start with '.', like .car", a.Extension)
	}
	return nil
}

func validateSFTP(s SFTPConfig) error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("sftp.port %d is out of range (1-65535)", s.Port)
	}
	if s.ProbeTimeout <= 0 {
		return fmt.Errorf("sftp.probe_timeout must be positive, got %s", s.ProbeTimeout)
	}
	return nil
}
