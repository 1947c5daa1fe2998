package stub

import (
	"go.uber.org/zap"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/dispatch"
	"github.com/lewing/interop-runtime/errors"
	"github.com/lewing/interop-runtime/verify"
)

// TransitionProfiler observes managed-to-foreign transitions. Both
// callbacks run on the calling goroutine and must be cheap.
type TransitionProfiler interface {
	BeginTransition(site *interop.CallSite)
	EndTransition(site *interop.CallSite)
}

// DelegateSource resolves the invoke target for a call made through a
// managed delegate object.
type DelegateSource interface {
	InvokeTarget(obj interop.Object) (interop.Target, bool)
}

// ErrorInfoSource supplies richer per-interface detail for a failed
// foreign call, when the foreign object supports it.
type ErrorInfoSource interface {
	ErrorInfo(obj interop.ForeignObject, iface interop.TypeID) (string, bool)
}

// ObjectSizer is implemented by heaps that can report object sizes for
// diagnostics.
type ObjectSizer interface {
	SizeOf(obj interop.Object) (uintptr, bool)
}

// Config holds the optional collaborators of a Helpers.
type Config struct {
	Profiler  TransitionProfiler
	Delegates DelegateSource
	ErrorInfo ErrorInfoSource
}

// Helpers is the support surface handed to call-stub generators. One
// instance serves the whole process; every method is safe for
// concurrent use except DrainQueue, which only the collector's
// safepoint integration may call.
type Helpers struct {
	heap       interop.Heap
	queue      *verify.Queue
	dispatcher *dispatch.Dispatcher

	profiler  TransitionProfiler
	delegates DelegateSource
	errInfo   ErrorInfoSource
}

// New bundles the interop services behind the stub-facing surface.
func New(heap interop.Heap, queue *verify.Queue, dispatcher *dispatch.Dispatcher, cfg *Config) *Helpers {
	h := &Helpers{heap: heap, queue: queue, dispatcher: dispatcher}
	if cfg != nil {
		h.profiler = cfg.Profiler
		h.delegates = cfg.Delegates
		h.errInfo = cfg.ErrorInfo
	}
	return h
}

// EnqueueValidation records a by-reference argument for validation at
// the next collection safepoint.
func (h *Helpers) EnqueueValidation(ref interop.Ref, site *interop.CallSite) error {
	return h.queue.Enqueue(ref, site)
}

// ValidateNow synchronously validates obj right after a foreign call
// returns.
func (h *Helpers) ValidateNow(obj interop.Object, site *interop.CallSite, neighbor bool) *errors.Abort {
	return h.queue.ValidateNow(obj, site, neighbor)
}

// DrainQueue processes the pending validation backlog. Called only by
// the collector's integration point, inside a stop-the-world window.
func (h *Helpers) DrainQueue() *errors.Abort {
	return h.queue.Drain()
}

// ResolveAndCache resolves the foreign interface pointer and call
// target for a proxy call through site on w.
func (h *Helpers) ResolveAndCache(w *dispatch.Wrapper, site *interop.CallSite) (dispatch.Resolution, error) {
	return h.dispatcher.ResolveAndCache(w, site)
}

// LogPinnedArgument records an object pinned for the duration of a
// foreign call.
func (h *Helpers) LogPinnedArgument(site *interop.CallSite, obj interop.Object) {
	fields := []zap.Field{zap.Uint64("object", uint64(obj))}
	if sizer, ok := h.heap.(ObjectSizer); ok {
		if size, ok := sizer.SizeOf(obj); ok {
			fields = append(fields, zap.Uint64("size", uint64(size)))
		}
	}
	if site != nil && site.Method != "" {
		fields = append(fields, zap.String("method", site.Method))
	}
	Logger().Debug("object pinned for interop", fields...)
}

// BeginTransition notifies the profiler, if any, that a foreign call
// is about to start.
func (h *Helpers) BeginTransition(site *interop.CallSite) {
	if h.profiler != nil {
		h.profiler.BeginTransition(site)
	}
}

// EndTransition notifies the profiler, if any, that a foreign call
// returned.
func (h *Helpers) EndTransition(site *interop.CallSite) {
	if h.profiler != nil {
		h.profiler.EndTransition(site)
	}
}

// DelegateTarget resolves the invoke target behind a managed delegate.
func (h *Helpers) DelegateTarget(obj interop.Object) (interop.Target, error) {
	if h.delegates == nil {
		return 0, errors.InvalidInput(errors.PhaseDispatch, "no delegate source configured")
	}
	t, ok := h.delegates.InvokeTarget(obj)
	if !ok {
		return 0, errors.New(errors.PhaseDispatch, errors.KindNotFound).
			Detail("object %#x is not a delegate with an invoke target", uint64(obj)).
			Build()
	}
	return t, nil
}

// ErrorFor builds the catchable error object for a failed foreign
// call, consulting the error-info source when the wrapper's object
// can provide per-interface detail.
func (h *Helpers) ErrorFor(code int32, w *dispatch.Wrapper, site *interop.CallSite) error {
	name := ""
	if site != nil {
		name = site.Method
	}
	detail := ""
	if h.errInfo != nil && w != nil && site != nil {
		if info, ok := h.errInfo.ErrorInfo(w.Foreign(), site.Iface); ok {
			detail = info
		}
	}
	return errors.ForeignError(code, name, detail)
}
