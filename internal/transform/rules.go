package transform

import (
	"github.com/rileyhilliard/bldm-localizer/internal/mkdirs"
	"github.com/rileyhilliard/bldm-localizer/internal/tagrewrite"
)

// Values forced by the flag rules.
const (
	PassNotRequired  = "0"
	StoppedByDefault = "1"
)

func constant(v string) func(string) string {
	return func(string) string { return v }
}

// HostRule points both SFTP host tags at host.
func HostRule(host string) Rule {
	return Rule{Name: "host", Tags: tagrewrite.HostTags, Replace: constant(host)}
}

// UsernameRule sets both SFTP user tags, filling empty ones too.
func UsernameRule(user string) Rule {
	return Rule{Name: "username", Tags: tagrewrite.UserTags, Optional: true, Replace: constant(user)}
}

// PasswordRule sets both SFTP password tags to an already encrypted password.
func PasswordRule(encrypted string) Rule {
	return Rule{Name: "password", Tags: tagrewrite.PasswordTags, Optional: true, Replace: constant(encrypted)}
}

// PassFlagRule marks the SFTP password as required on both sides.
func PassFlagRule() Rule {
	return Rule{Name: "flags", Tags: tagrewrite.PassFlagTags, Optional: true, Replace: constant(PassNotRequired)}
}

// DefaultStoppedRule makes every collector start in the stopped state.
func DefaultStoppedRule() Rule {
	return Rule{Name: "default_stopped", Tags: tagrewrite.DefaultStoppedTags, Optional: true, Replace: constant(StoppedByDefault)}
}

// PathPrefixRule moves every path-bearing tag under prefix.
func PathPrefixRule(prefix string) Rule {
	return Rule{
		Name: "paths",
		Tags: tagrewrite.PathTags,
		Replace: func(old string) string {
			return mkdirs.PrefixPath(prefix, old)
		},
	}
}
