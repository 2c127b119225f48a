package pipeline

import (
	"context"
	"strings"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/logger"
	"github.com/rileyhilliard/bldm-localizer/internal/mkdirs"
	"github.com/rileyhilliard/bldm-localizer/internal/transform"
)

// Params are the user supplied values the operations need.
type Params struct {
	Prefix   string
	Host     string
	Username string
	Password string // already encrypted by the operator
}

// ScriptSink stores a generated mkdir script and returns where it went.
type ScriptSink func(script mkdirs.Script) (string, error)

// BuildStages turns selected operations into stages in canonical order.
// The paths stage collects path entries from its input before rewriting and
// hands the resulting mkdir script to sink.
func BuildStages(ops []Operation, p Params, sink ScriptSink, log logger.Logger) ([]Stage, error) {
	if log == nil {
		log = logger.Noop()
	}

	var stages []Stage
	for _, op := range Canonical(ops) {
		switch op {
		case OpPaths:
			if strings.TrimSpace(p.Prefix) == "" {
				return nil, missing("path prefix")
			}
			prefix := mkdirs.NormalizePrefix(p.Prefix)
			stages = append(stages, Stage{
				Op:     op,
				Rules:  []transform.Rule{transform.PathPrefixRule(prefix)},
				Before: collectPaths(prefix, sink, log),
			})
		case OpHost:
			if p.Host == "" {
				return nil, missing("SFTP host")
			}
			stages = append(stages, Stage{Op: op, Rules: []transform.Rule{transform.HostRule(p.Host)}})
		case OpUsername:
			if p.Username == "" {
				return nil, missing("SFTP username")
			}
			stages = append(stages, Stage{Op: op, Rules: []transform.Rule{transform.UsernameRule(p.Username)}})
		case OpPassword:
			if p.Password == "" {
				return nil, missing("SFTP password")
			}
			stages = append(stages, Stage{Op: op, Rules: []transform.Rule{transform.PasswordRule(p.Password)}})
		case OpFlags:
			stages = append(stages, Stage{Op: op, Rules: []transform.Rule{transform.PassFlagRule()}})
		case OpDefaultStopped:
			stages = append(stages, Stage{Op: op, Rules: []transform.Rule{transform.DefaultStoppedRule()}})
		}
	}
	return stages, nil
}

func missing(what string) error {
	return errors.New(errors.ErrInput, "No "+what+" was given", "Enter a value when prompted")
}

func collectPaths(prefix string, sink ScriptSink, log logger.Logger) func(ctx context.Context, current string) error {
	return func(ctx context.Context, current string) error {
		entries, err := mkdirs.ExtractFile(current)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			log.Warn("No matching path tags found in %s", current)
			return nil
		}
		log.Info("Found %d paths to process", len(entries))

		script := mkdirs.BuildScript(entries, prefix)
		log.Info("Generated %d mkdir commands (removed %d duplicates)", len(script.Commands), script.Duplicates)
		if sink == nil {
			return nil
		}

		path, err := sink(script)
		if err != nil {
			return err
		}
		log.Info("Wrote mkdir commands to %s", path)
		return nil
	}
}
