// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text, offering defaultValue. A non-nil validate is run
// on every keystroke.
func Input(label, defaultValue string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputPort prompts for a TCP port.
func InputPort(label string, defaultValue int) (int, error) {
	result, err := Input(label, strconv.Itoa(defaultValue), ValidatePort)
	if err != nil {
		return 0, err
	}
	port, _ := strconv.Atoi(result)
	return port, nil
}

// Required rejects empty input.
func Required(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("value is required")
	}
	return nil
}

// ValidatePort accepts integers in 1..65535.
func ValidatePort(input string) error {
	port, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return errors.New("must be a valid integer")
	}
	if port < 1 || port > 65535 {
		return errors.New("must be a valid port (1-65535)")
	}
	return nil
}

// Option is one entry of a Select prompt.
type Option struct {
	Label       string
	Value       string
	Description string
}

// Select prompts the user to pick one of options and returns its Value.
func Select(label string, options []Option) (string, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "* {{ .Label | green }}",
		Details:  `{{ if .Description }}{{ "Description:" | faint }}	{{ .Description }}{{ end }}`,
	}
	p := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      len(options),
	}
	i, _, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}

// Confirm asks a yes/no question. Pressing Enter selects defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	p := promptui.Prompt{Label: fmt.Sprintf("%s [%s]", label, hint)}
	result, err := p.Run()
	if err != nil {
		return false, wrapError(err)
	}
	return parseYesNo(result, defaultYes), nil
}

func parseYesNo(s string, defaultYes bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}
