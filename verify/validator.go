package verify

import (
	"go.uber.org/zap"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/errors"
)

const (
	corruptionPreamble = "detected managed heap corruption, likely culprit is interop call through "
	indirectCallPhrase = "an indirect call"

	// genericCorruption is the degraded diagnostic used when the
	// detailed one cannot be produced.
	genericCorruption = "detected managed heap corruption"
)

// Validator checks the structural integrity of individual heap objects
// and turns a failed check into process termination.
type Validator struct {
	heap    interop.Heap
	control interop.Runtime
}

// NewValidator creates a validator over the given heap. control
// receives the Terminate call when corruption is found.
func NewValidator(heap interop.Heap, control interop.Runtime) *Validator {
	return &Validator{heap: heap, control: control}
}

// ValidateNow synchronously validates obj, typically right after a
// foreign call returns. When neighbor is set the heap-adjacent next
// object is validated too, unless a collection is concurrently in
// progress: the background sweep can reclaim the neighbor underneath
// the check.
//
// A non-nil Abort means corruption was found and Terminate was invoked;
// the caller must not continue past it.
func (v *Validator) ValidateNow(obj interop.Object, site *interop.CallSite, neighbor bool) *errors.Abort {
	if neighbor && v.heap.CollectionInProgress() {
		neighbor = false
	}
	if err := v.validateObject(obj, neighbor); err != nil {
		return v.fatal(site, err)
	}
	return nil
}

// validateObject checks obj and, when requested, its heap-adjacent
// neighbor.
func (v *Validator) validateObject(obj interop.Object, neighbor bool) error {
	if obj != 0 {
		if err := v.heap.Validate(obj, interop.VerifyOptions{VerifySync: true}); err != nil {
			return err
		}
	}
	if !neighbor {
		return nil
	}

	next, ok := v.heap.NextObject(obj)
	if !ok {
		return nil
	}

	// The neighbor's type word can transition between the free
	// sentinel, zero, and a live descriptor while a background
	// collection runs. Read it exactly once and trust only a settled
	// value; two reads could observe two different transient states.
	tw := v.heap.TypeWord(next)
	if tw == 0 || tw == v.heap.FreeSentinel() {
		return nil
	}

	// The neighbor is not guaranteed to be alive, so its sync word may
	// already have been released by the finalizer thread.
	return v.heap.Validate(next, interop.VerifyOptions{VerifySync: false})
}

// fatal formats the corruption diagnostic and terminates the runtime.
// A failure while formatting the diagnostic degrades to the generic
// message rather than propagating.
func (v *Validator) fatal(site *interop.CallSite, cause error) *errors.Abort {
	msg := genericCorruption
	func() {
		defer func() {
			if r := recover(); r != nil {
				msg = genericCorruption
			}
		}()
		msg = formatCorruption(site)
	}()

	Logger().Error("heap corruption detected",
		zap.String("culprit", culpritName(site)),
		zap.Error(cause))

	abort := &errors.Abort{Code: errors.FatalExecutionEngine, Message: msg}
	v.control.Terminate(abort.Code, abort.Message)
	return abort
}

func formatCorruption(site *interop.CallSite) string {
	if site == nil || site.Method == "" {
		return corruptionPreamble + indirectCallPhrase + "."
	}
	return corruptionPreamble + "method '" + site.Method + "'."
}

func culpritName(site *interop.CallSite) string {
	if site == nil || site.Method == "" {
		return indirectCallPhrase
	}
	return site.Method
}
