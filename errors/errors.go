package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEnqueue  Phase = "enqueue"  // validation request capture
	PhaseDrain    Phase = "drain"    // safepoint queue processing
	PhaseValidate Phase = "validate" // heap object checks
	PhaseResolve  Phase = "resolve"  // foreign interface query
	PhaseDispatch Phase = "dispatch" // call target computation
	PhaseHost     Phase = "host"     // foreign object model hosting
)

// Kind categorizes the error
type Kind string

const (
	KindOverflow     Kind = "overflow"
	KindNotFound     Kind = "not_found"
	KindNoInterface  Kind = "no_interface"
	KindBadSlot      Kind = "bad_slot"
	KindInvalidInput Kind = "invalid_input"
	KindReleased     Kind = "released"
	KindExhausted    Kind = "exhausted"
	KindForeignError Kind = "foreign_error"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Site   string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Site != "" {
		b.WriteString(" at ")
		b.WriteString(e.Site)
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

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Site sets the originating call-site name
func (b *Builder) Site(name string) *Builder {
	b.err.Site = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Overflow creates a capacity arithmetic overflow error
func Overflow(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NoInterface creates an unsupported-interface error for a failed
// foreign interface query
func NoInterface(obj uint64, iface uint32) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindNoInterface,
		Detail: fmt.Sprintf("foreign object %d does not expose interface %d", obj, iface),
		Value:  iface,
	}
}

// BadSlot creates a dispatch-slot validation error
func BadSlot(iface uint32, slot, slotCount uint32) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindBadSlot,
		Detail: fmt.Sprintf("slot %d out of range for interface %d (table has %d slots)", slot, iface, slotCount),
		Value:  slot,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// ForeignError creates the catchable error for a failed foreign call
func ForeignError(code int32, site, detail string) *Error {
	e := &Error{
		Phase:  PhaseDispatch,
		Kind:   KindForeignError,
		Site:   site,
		Detail: fmt.Sprintf("foreign call failed with code %#x", uint32(code)),
		Value:  code,
	}
	if detail != "" {
		e.Detail += ": " + detail
	}
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
