package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"github.com/rileyhilliard/bldm-localizer/internal/mkdirs"
	"github.com/rileyhilliard/bldm-localizer/internal/sftp"
	"golang.org/x/term"
)

// Option is one choice in a select prompt.
type Option struct {
	Label string
	Value string
}

// InputSpec describes a free-text prompt.
type InputSpec struct {
	Title       string
	Description string
	Placeholder string
	// Secret hides the typed value.
	Secret   bool
	Validate func(string) error
}

// Prompter asks the operator questions. The huh implementation drives a
// terminal; tests use a scripted one.
type Prompter interface {
	Confirm(title, description string) (bool, error)
	Input(spec InputSpec) (string, error)
	Select(title string, options []Option) (string, error)
	MultiSelect(title string, options []Option) ([]string, error)
}

// errInterrupted is returned when the operator aborts a prompt with Ctrl+C.
var errInterrupted = errors.New(errors.ErrIO,
	"Processing interrupted by user",
	"Nothing was written for the current step; run the tool again to start over")

// huhPrompter runs each question as its own huh form.
type huhPrompter struct{}

// newTerminalPrompter returns the huh prompter, or a CONFIG error when stdin
// is not a terminal.
func newTerminalPrompter() (Prompter, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New(errors.ErrConfig,
			"This tool needs an interactive terminal",
			"Run it directly in a terminal window rather than piping input into it")
	}
	return huhPrompter{}, nil
}

func (huhPrompter) Confirm(title, description string) (bool, error) {
	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if description != "" {
		field = field.Description(description)
	}
	err := huh.NewForm(huh.NewGroup(field)).Run()
	return ok, formError(err)
}

func (huhPrompter) Input(spec InputSpec) (string, error) {
	var value string
	field := huh.NewInput().
		Title(spec.Title).
		Value(&value)
	if spec.Description != "" {
		field = field.Description(spec.Description)
	}
	if spec.Placeholder != "" {
		field = field.Placeholder(spec.Placeholder)
	}
	if spec.Secret {
		field = field.EchoMode(huh.EchoModePassword)
	}
	if spec.Validate != nil {
		field = field.Validate(spec.Validate)
	}
	err := huh.NewForm(huh.NewGroup(field)).Run()
	return strings.TrimSpace(value), formError(err)
}

func (huhPrompter) Select(title string, options []Option) (string, error) {
	var selected string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(huhOptions(options)...).
				Value(&selected),
		),
	).Run()
	return selected, formError(err)
}

func (huhPrompter) MultiSelect(title string, options []Option) ([]string, error) {
	var selected []string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Description("Space to toggle, enter to confirm").
				Options(huhOptions(options)...).
				Value(&selected),
		),
	).Run()
	return selected, formError(err)
}

func huhOptions(options []Option) []huh.Option[string] {
	out := make([]huh.Option[string], len(options))
	for i, o := range options {
		out[i] = huh.NewOption(o.Label, o.Value)
	}
	return out
}

func formError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, huh.ErrUserAborted) {
		return errInterrupted
	}
	return errors.WrapWithCode(err, errors.ErrInput,
		"Couldn't get your answer",
		"Try again in a regular terminal window")
}

// Validators shared by the workflow prompts.

func validateDirectory(s string) error {
	dir := strings.TrimSpace(s)
	if dir == "" {
		return fmt.Errorf("enter a directory")
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory '%s' does not exist", dir)
		}
		return fmt.Errorf("can't access '%s': %v", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("'%s' is not a directory", dir)
	}
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("no read permission for directory '%s'", dir)
	}
	f.Close()
	return nil
}

func validatePrefix(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("enter the path prefix to prepend")
	}
	if p := mkdirs.NormalizePrefix(s); strings.ContainsAny(p, "\"\n") {
		return fmt.Errorf("the prefix can't contain quotes or line breaks")
	}
	return nil
}

func validateRequired(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", what)
		}
		return nil
	}
}

func validateHost(sshConfigPath string) func(string) error {
	return func(s string) error {
		if _, err := sftp.ResolveHost(s, sshConfigPath); err != nil {
			return fmt.Errorf("enter a valid IP address (xxx.xxx.xxx.xxx), 'localhost', or an ssh config alias")
		}
		return nil
	}
}
