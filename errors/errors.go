package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes a simulation error. Every fallible runtime operation
// returns an *Error whose Kind callers can match with errors.Is.
type Kind string

const (
	KindLoad              Kind = "load"               // artifact missing or malformed
	KindInit              Kind = "init"               // native init failed
	KindVariableNotFound  Kind = "variable_not_found" // name absent from variable table
	KindTypeMismatch      Kind = "type_mismatch"      // declared type differs from requested
	KindWrongDirection    Kind = "wrong_direction"    // slot direction forbids the access
	KindInvalidTimestep   Kind = "invalid_timestep"   // dt <= 0
	KindNumericDivergence Kind = "numeric_divergence" // step produced NaN/Inf
	KindStepFailure       Kind = "step_failure"       // native solver reported non-convergence
	KindTerminalState     Kind = "terminal_state"     // instance is Failed until reset
	KindReleased          Kind = "released"           // instance was already released
	KindNativeFault       Kind = "native_fault"       // native code trapped outside init/step
)

// Error is the structured error type used throughout the runtime.
// Native failures never cross the module boundary as traps or panics;
// they are translated into this type at the boundary.
type Error struct {
	Kind     Kind
	Instance string // instance id, when the error is tied to one instance
	Variable string // variable name, for binding errors
	Detail   string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))
	if e.Instance != "" {
		b.WriteString(" instance=")
		b.WriteString(e.Instance)
	}
	if e.Variable != "" {
		b.WriteString(" var=")
		b.WriteString(e.Variable)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two *Errors match
// when their Kinds are equal, so sentinel values like
// &Error{Kind: KindTypeMismatch} work with stdlib errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithInstance returns a copy of e annotated with the instance id.
// Used by layers that know the instance while inner layers do not.
func (e *Error) WithInstance(id string) *Error {
	c := *e
	c.Instance = id
	return &c
}

// Convenience constructors for the runtime's error taxonomy.

// LoadFailed creates a load error for a module artifact.
func LoadFailed(detail string, cause error) *Error {
	return &Error{Kind: KindLoad, Detail: detail, Cause: cause}
}

// InitFailed creates an instantiation error.
func InitFailed(detail string, cause error) *Error {
	return &Error{Kind: KindInit, Detail: detail, Cause: cause}
}

// VariableNotFound creates an error for a name absent from a variable table.
func VariableNotFound(component, name string) *Error {
	return &Error{
		Kind:     KindVariableNotFound,
		Variable: name,
		Detail:   fmt.Sprintf("no variable %q declared by %q", name, component),
	}
}

// TypeMismatch creates an error for a request whose type differs from the
// declared one.
func TypeMismatch(name string, declared, requested fmt.Stringer) *Error {
	return &Error{
		Kind:     KindTypeMismatch,
		Variable: name,
		Detail:   fmt.Sprintf("declared %s, requested %s", declared, requested),
	}
}

// WrongDirection creates an error for an access a slot's direction forbids.
func WrongDirection(name string, declared fmt.Stringer, access string) *Error {
	return &Error{
		Kind:     KindWrongDirection,
		Variable: name,
		Detail:   fmt.Sprintf("%s access on %s variable", access, declared),
	}
}

// InvalidTimestep creates an error for a non-positive dt.
func InvalidTimestep(dt float64) *Error {
	return &Error{
		Kind:   KindInvalidTimestep,
		Detail: fmt.Sprintf("dt must be > 0, got %g", dt),
	}
}

// Divergence creates an error for a step that produced non-finite values.
func Divergence(instance string, variables []string) *Error {
	return &Error{
		Kind:     KindNumericDivergence,
		Instance: instance,
		Detail:   "non-finite values in " + strings.Join(variables, ", "),
	}
}

// StepFailed creates an error for a native solver failure.
func StepFailed(instance string, code int32) *Error {
	return &Error{
		Kind:     KindStepFailure,
		Instance: instance,
		Detail:   fmt.Sprintf("solver reported status %d", code),
	}
}

// Terminal creates an error for an operation on a Failed instance.
func Terminal(instance string) *Error {
	return &Error{
		Kind:     KindTerminalState,
		Instance: instance,
		Detail:   "instance failed; reset required",
	}
}

// NativeFault creates an error for a trap raised by native code outside the
// init and step entry points, typically during variable access.
func NativeFault(instance, detail string, cause error) *Error {
	return &Error{
		Kind:     KindNativeFault,
		Instance: instance,
		Detail:   detail,
		Cause:    cause,
	}
}

// Released creates an error for an operation on a released instance.
func Released(instance string) *Error {
	return &Error{
		Kind:     KindReleased,
		Instance: instance,
		Detail:   "instance released",
	}
}
