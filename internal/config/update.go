package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"gopkg.in/yaml.v3"
)

const fileHeader = `# BLDM config localizer configuration
# Environment variables override any value, e.g. BLDM_LOCALIZER_LOGGING_LEVEL=debug

`

// Marshal renders cfg as YAML with durations written the way people type them
// ("5s" rather than nanoseconds).
func Marshal(cfg *Config) ([]byte, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	if sftp := findMapValue(&root, "sftp"); sftp != nil {
		if timeout := findMapValue(sftp, "probe_timeout"); timeout != nil {
			timeout.Tag = "!!str"
			timeout.Value = cfg.SFTP.ProbeTimeout.String()
		}
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	return []byte(buf.String()), nil
}

// WriteFile writes cfg to path with a header comment. An existing file is
// only replaced when overwrite is set.
func WriteFile(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s already exists", path),
				"Use --force to overwrite it")
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to create %s", filepath.Dir(path)),
			"Check directory permissions")
	}
	if err := os.WriteFile(path, []byte(fileHeader+string(data)), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", path),
			"Check directory permissions")
	}
	return nil
}

// findMapValue finds a value in a mapping node by key name. A document node
// is looked through to its root mapping.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}
