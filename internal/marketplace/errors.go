package marketplace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingField   = errors.New("required field missing")
	ErrNoInstanceInfo = errors.New("no instance information available")
)

// CommandError is returned when the CLI cannot be started or exits non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(redact(e.Args), " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ParseError is returned when CLI output is not the expected JSON shape.
type ParseError struct {
	Op    string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("failed to parse %s output: %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("failed to parse %s output: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CreateError is returned when `create instance` answers success=false.
type CreateError struct {
	Response string
}

func (e *CreateError) Error() string {
	return "instance creation rejected: " + e.Response
}

func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--api-key" {
			out[i+1] = "***"
		}
	}
	return out
}
