// Package sftp validates the SFTP host an operator enters and, optionally,
// checks that something answers SSH there before the export is rewritten.
package sftp

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/bldm-localizer/internal/errors"
)

const DefaultPort = 22

// Target is a resolved SFTP host.
type Target struct {
	// Host is the value written into the export: an IP literal or localhost.
	Host string
	// Alias is the ssh_config alias the host came from, if any.
	Alias string
	// Port comes from ssh_config when set there, otherwise 0.
	Port int
}

// DefaultSSHConfigPath returns ~/.ssh/config.
func DefaultSSHConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".ssh", "config")
}

// ResolveHost accepts localhost (any case), an IPv4 or IPv6 literal, or an
// alias from the ssh config at sshConfigPath whose HostName is one of those.
// Anything else is an INPUT error.
func ResolveHost(input, sshConfigPath string) (Target, error) {
	host := strings.TrimSpace(input)
	if literal, ok := hostLiteral(host); ok {
		return Target{Host: literal}, nil
	}

	if host != "" && sshConfigPath != "" {
		target, found, err := lookupAlias(host, sshConfigPath)
		if err != nil {
			return Target{}, err
		}
		if found {
			return target, nil
		}
	}

	return Target{}, errors.New(errors.ErrInput,
		fmt.Sprintf("%q is not a valid SFTP host", input),
		"Enter a valid IP address (xxx.xxx.xxx.xxx), 'localhost', or an ssh config alias that points to one")
}

func hostLiteral(host string) (string, bool) {
	if strings.EqualFold(host, "localhost") {
		return "localhost", true
	}
	if ip := net.ParseIP(host); ip != nil {
		return host, true
	}
	return "", false
}

func lookupAlias(alias, configPath string) (Target, bool, error) {
	content, err := readSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Target{}, false, nil
		}
		return Target{}, false, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't read ssh config %s", configPath), "")
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return Target{}, false, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't parse ssh config %s", configPath),
			"Fix the syntax error or pick a host by IP address")
	}
	if !declared(cfg, alias) {
		return Target{}, false, nil
	}

	hostname, _ := cfg.Get(alias, "HostName")
	literal, ok := hostLiteral(strings.TrimSpace(hostname))
	if !ok {
		return Target{}, false, errors.New(errors.ErrInput,
			fmt.Sprintf("ssh config alias %q points to %q", alias, hostname),
			"BLDM needs an IP address or localhost; set HostName to an IP for this alias")
	}

	target := Target{Host: literal, Alias: alias}
	if p, _ := cfg.Get(alias, "Port"); p != "" {
		if port, err := strconv.Atoi(p); err == nil && port > 0 {
			target.Port = port
		}
	}
	return target, true, nil
}

// declared reports whether alias appears literally in a Host line.
func declared(cfg *ssh_config.Config, alias string) bool {
	for _, h := range cfg.Hosts {
		for _, p := range h.Patterns {
			s := p.String()
			if strings.ContainsAny(s, "*?!") {
				continue
			}
			if s == alias {
				return true
			}
		}
	}
	return false
}

// readSSHConfig reads the config up to the first Match block, which
// ssh_config can't decode.
func readSSHConfig(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			lines = lines[:i]
			break
		}
	}
	return []byte(strings.Join(lines, "\n")), nil
}
