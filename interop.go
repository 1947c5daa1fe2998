package interop

import (
	"github.com/lewing/interop-runtime/errors"
)

// Ref is a raw by-reference argument crossing the managed/foreign
// boundary. It is an opaque token outside this module; only the Heap
// can interpret it.
type Ref uintptr

// Object is an opaque token for a managed heap object. Only the Heap
// can mint or dereference one.
type Object uintptr

// TypeID identifies a foreign interface type. TypeID 0 is reserved and
// never names a real interface.
type TypeID uint32

// ContextID identifies an execution context (a thread/apartment-like
// affinity domain some foreign objects are bound to).
type ContextID uint64

// ForeignObject is the opaque identity of a foreign object inside a
// foreign object model. Identity 0 is reserved and always invalid.
type ForeignObject uint64

// Ptr is a resolved foreign interface pointer. Its first word points at
// the interface's dispatch table.
type Ptr uintptr

// Target is a single call target taken from a dispatch table. Target 0
// means "no target".
type Target uintptr

// CallSite describes one generated call stub. Instances are immutable
// and shared; a nil *CallSite denotes an indirect call with no per-site
// metadata.
type CallSite struct {
	// Iface is the interface type the stub calls through.
	Iface TypeID

	// Slot is the dispatch-table slot of the stub's method, cached at
	// stub-generation time.
	Slot uint32

	// Method is the qualified method name used in diagnostics. Empty
	// means unknown.
	Method string
}

// VerifyOptions controls a single structural heap object check.
type VerifyOptions struct {
	// VerifySync includes the object's sync/header word in the check.
	// Skipped for heap-adjacent neighbors, which may already have been
	// finalized.
	VerifySync bool
}

// Heap is the managed heap as seen by the validation subsystem. All
// methods are implemented by the embedding runtime's collector.
type Heap interface {
	// Contains reports whether ref points into the managed heap's
	// address range.
	Contains(ref Ref) bool

	// ObjectAt resolves the heap object containing ref. Valid only
	// while mutator threads are paused.
	ObjectAt(ref Ref) (Object, bool)

	// NextObject returns the heap-adjacent object following obj, if
	// any.
	NextObject(obj Object) (Object, bool)

	// TypeWord returns obj's type descriptor word. Implementations
	// must perform a single atomic read; the word may be concurrently
	// rewritten by a background collection.
	TypeWord(obj Object) uintptr

	// FreeSentinel returns the reserved type descriptor word that
	// marks reclaimed (free) heap space.
	FreeSentinel() uintptr

	// Validate performs a deep structural check of obj.
	Validate(obj Object, opts VerifyOptions) error

	// CollectionInProgress reports whether a concurrent/background
	// collection is currently running.
	CollectionInProgress() bool
}

// Runtime is the process-control surface the validation subsystem
// depends on.
type Runtime interface {
	// RequestCollection asks the collector for a collection of the
	// given generation. Best-effort; may coalesce or ignore.
	RequestCollection(generation int)

	// Terminate ends the process with a fatal, unrecoverable error.
	// Production implementations do not return; test doubles may.
	Terminate(code errors.FatalCode, msg string)
}

// ContextSource reports the caller's current execution context.
type ContextSource interface {
	Current() ContextID
}

// Resolved is the result of a slow-path interface resolution. The
// pointer is owned: the receiver must call Release exactly once when
// done with it.
type Resolved struct {
	Ptr Ptr

	// SlotCount is the number of valid dispatch-table slots behind
	// Ptr. Slot indices are validated against it at cache-population
	// time.
	SlotCount uint32

	// Release drops the ownership reference backing Ptr.
	Release func()
}

// Resolver performs the full foreign-object-model interface query. It
// may allocate, suspend at a safepoint, and run arbitrary foreign code.
// Failures are ordinary, catchable errors.
type Resolver interface {
	ResolveInterface(obj ForeignObject, iface TypeID) (Resolved, error)
}
