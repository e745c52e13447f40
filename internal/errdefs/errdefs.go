// Package errdefs defines the error kinds shared by the player core.
//
// Every failure surfaced to a caller wraps exactly one of the sentinel kinds
// below so transports can map it with errors.Is. The structured carriers
// (ValidationError, LaunchError, VolumeError, StopError) hold the detail a
// caller needs to act on the failure.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a bad or missing field, unknown provider or out of range value.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an operation on a player that is not configured.
	ErrNotFound = errors.New("player not found")

	// ErrAlreadyExists marks a create or rename onto a name that is taken.
	// It is always carried by a ValidationError.
	ErrAlreadyExists = errors.New("player already exists")

	// ErrAlreadyRunning marks a start of a player whose process is alive.
	ErrAlreadyRunning = errors.New("player already running")

	// ErrToolUnavailable marks a missing or failing OS audio tool.
	ErrToolUnavailable = errors.New("tool unavailable")

	// ErrLaunch marks a process that could not be started or exited immediately.
	ErrLaunch = errors.New("process launch failed")

	// ErrStopTimeout marks a graceful stop that exceeded its timeout.
	ErrStopTimeout = errors.New("process stop timed out")

	// ErrStopFailure marks a process whose death could not be confirmed.
	ErrStopFailure = errors.New("process stop failed")

	// ErrVolumeControl marks a volume read or write no backend could serve.
	ErrVolumeControl = errors.New("volume control failed")

	// ErrPersistence marks a failed write of the players file.
	ErrPersistence = errors.New("persistence failed")
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

// ValidationError collects every field error found for one request. Kind,
// when set, is a more specific sentinel such as ErrAlreadyExists.
type ValidationError struct {
	Fields []FieldError
	Kind   error
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

// Duplicate reports a name that is already taken.
func Duplicate(name string) *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Field: "name", Message: fmt.Sprintf("player %q already exists", name)}},
		Kind:   ErrAlreadyExists,
	}
}

// Validation returns nil when fields is empty, otherwise a ValidationError.
func Validation(fields []FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid player configuration: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Kind}
}

// LaunchError reports a process that did not come up. Output holds whatever
// the process wrote before it exited.
type LaunchError struct {
	Player  string
	Command []string
	Output  string
	Err     error
}

func (e *LaunchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "player %q failed to start", e.Player)
	if len(e.Command) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Command, " "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, ": %s", out)
	}
	return b.String()
}

func (e *LaunchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLaunch}
	}
	return []error{ErrLaunch, e.Err}
}

// StopError reports a stop whose outcome is not a clean exit.
type StopError struct {
	Player string
	PID    int
	Kind   error // ErrStopTimeout or ErrStopFailure
	Err    error
}

func (e *StopError) Error() string {
	msg := fmt.Sprintf("player %q (pid %d): %v", e.Player, e.PID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StopError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// VolumeError names everything that was tried before giving up.
type VolumeError struct {
	Device    string
	Attempted []string // mixer controls, in the order tried
	Endpoint  string   // remote control endpoint, when remote
	Err       error
}

func (e *VolumeError) Error() string {
	var b strings.Builder
	b.WriteString("volume control failed")
	if e.Device != "" {
		fmt.Fprintf(&b, " for device %s", e.Device)
	}
	if len(e.Attempted) > 0 {
		fmt.Fprintf(&b, " (tried controls: %s)", strings.Join(e.Attempted, ", "))
	}
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " (endpoint %s)", e.Endpoint)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *VolumeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrVolumeControl}
	}
	return []error{ErrVolumeControl, e.Err}
}
