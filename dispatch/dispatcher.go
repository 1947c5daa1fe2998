package dispatch

import (
	"go.uber.org/zap"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/errors"
	"github.com/lewing/interop-runtime/internal/vtab"
)

// Config holds optional dispatcher configuration.
type Config struct {
	// ClearFPState, when set, runs before every successful return.
	// The embedding runtime injects it on architectures whose foreign
	// call convention requires a clean floating-point status word.
	ClearFPState func()
}

// Dispatcher resolves a foreign interface pointer and call target for
// every managed-to-foreign proxy call.
type Dispatcher struct {
	contexts interop.ContextSource
	resolver interop.Resolver
	clearFP  func()
}

// New creates a dispatcher. contexts reports the caller's execution
// context; resolver is the foreign object model's full interface
// query, used only when the wrapper cache cannot answer.
func New(contexts interop.ContextSource, resolver interop.Resolver, cfg *Config) *Dispatcher {
	d := &Dispatcher{contexts: contexts, resolver: resolver}
	if cfg != nil {
		d.clearFP = cfg.ClearFPState
	}
	return d
}

// Resolution is the outcome of ResolveAndCache. When Owned is set the
// caller holds an extra reference on Ptr and must call Release exactly
// once after the foreign call completes; a fast-path Resolution is
// borrowed and Release is a no-op.
type Resolution struct {
	Ptr    interop.Ptr
	Target interop.Target
	Owned  bool

	release func()
}

// Release drops the ownership reference, if any. Safe to call more
// than once.
func (r *Resolution) Release() {
	if r.release != nil {
		r.release()
		r.release = nil
	}
}

// ResolveAndCache resolves the foreign interface pointer and call
// target for a call through site on w.
//
// The fast path is allocation-free, lock-free and non-suspending: a
// context check (bypassed for free-threaded wrappers), a linear scan
// of the wrapper cache, and a dispatch-table load. Anything it cannot
// answer defers to the slow path, which performs the full interface
// query, refreshes the cache, and may allocate, suspend at a
// safepoint, or run arbitrary foreign code.
func (d *Dispatcher) ResolveAndCache(w *Wrapper, site *interop.CallSite) (Resolution, error) {
	if w == nil || site == nil {
		return Resolution{}, errors.InvalidInput(errors.PhaseDispatch, "nil wrapper or call site")
	}

	// Context match is tested before free-threadedness: apartment-bound
	// objects are the common case on this path.
	if d.contexts.Current() == w.ctx || w.freeThreaded {
		if p, slots, ok := w.lookup(site.Iface); ok && site.Slot < slots {
			if t := vtab.Load(p, site.Slot); t != 0 {
				if d.clearFP != nil {
					d.clearFP()
				}
				return Resolution{Ptr: p, Target: t}, nil
			}
		}
	}

	return d.resolveSlow(w, site)
}

// resolveSlow performs the full interface query and cache refresh. The
// returned pointer carries an ownership reference the caller must
// release, unlike the borrowed fast-path result.
func (d *Dispatcher) resolveSlow(w *Wrapper, site *interop.CallSite) (Resolution, error) {
	res, err := d.resolver.ResolveInterface(w.obj, site.Iface)
	if err != nil {
		return Resolution{}, errors.Wrap(errors.PhaseResolve, errors.KindNoInterface, err,
			"resolve interface for foreign call")
	}

	if err := w.CacheRefresh(site, res); err != nil {
		if res.Release != nil {
			res.Release()
		}
		return Resolution{}, err
	}

	t := vtab.Load(res.Ptr, site.Slot)
	if t == 0 {
		if res.Release != nil {
			res.Release()
		}
		return Resolution{}, errors.New(errors.PhaseDispatch, errors.KindNotFound).
			Site(site.Method).
			Detail("dispatch table slot %d holds no target", site.Slot).
			Build()
	}

	Logger().Debug("slow-path interface resolution",
		zap.Uint64("object", uint64(w.obj)),
		zap.Uint32("iface", uint32(site.Iface)),
		zap.Uint32("slot", site.Slot))

	if d.clearFP != nil {
		d.clearFP()
	}
	return Resolution{Ptr: res.Ptr, Target: t, Owned: true, release: res.Release}, nil
}
