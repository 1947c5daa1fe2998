package dispatch

import (
	"sync/atomic"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/errors"
)

// CacheSize is the number of interface entries cached per wrapper.
// Small enough that a linear scan stays cheaper than any indexed
// structure on this path.
const CacheSize = 8

// cacheEntry is one (interface, pointer) hint. Fields are written
// individually with pointer-width atomic stores; concurrent writers to
// the same slot are benign because resolution is a pure function of
// (object, interface) and a mismatched pairing only costs a slow-path
// trip.
type cacheEntry struct {
	iface atomic.Uint32
	slots atomic.Uint32
	ptr   atomic.Uintptr
}

// Wrapper is the managed proxy state for one foreign object: its
// identity in the foreign object model, the execution context it was
// created in, and a small fixed-size interface-resolution cache.
// Cache entries are hints; staleness is permitted and never
// correctness-critical.
type Wrapper struct {
	obj          interop.ForeignObject
	ctx          interop.ContextID
	freeThreaded bool

	cache [CacheSize]cacheEntry
	clock atomic.Uint32 // round-robin refresh cursor
}

// NewWrapper creates a wrapper for obj recorded against ctx. A
// free-threaded wrapper is usable from any execution context.
func NewWrapper(obj interop.ForeignObject, ctx interop.ContextID, freeThreaded bool) *Wrapper {
	return &Wrapper{obj: obj, ctx: ctx, freeThreaded: freeThreaded}
}

// Foreign returns the wrapped foreign object's identity.
func (w *Wrapper) Foreign() interop.ForeignObject { return w.obj }

// Context returns the execution context the wrapper is bound to.
func (w *Wrapper) Context() interop.ContextID { return w.ctx }

// FreeThreaded reports whether the wrapper may be used from any
// execution context.
func (w *Wrapper) FreeThreaded() bool { return w.freeThreaded }

// lookup scans the cache for iface and returns the cached pointer and
// its validated slot count.
func (w *Wrapper) lookup(iface interop.TypeID) (interop.Ptr, uint32, bool) {
	for i := range w.cache {
		e := &w.cache[i]
		if interop.TypeID(e.iface.Load()) == iface {
			if p := e.ptr.Load(); p != 0 {
				return interop.Ptr(p), e.slots.Load(), true
			}
		}
	}
	return 0, 0, false
}

// CacheRefresh records a freshly resolved interface pointer, reusing
// an entry that already names iface or evicting round-robin. The call
// site's slot index is validated against the table's slot count here,
// at population time, so the fast path never loads past the table.
//
// The cached pointer is a borrowed alias of res.Ptr; the wrapper's
// owner keeps the underlying reference alive for the wrapper's
// lifetime.
func (w *Wrapper) CacheRefresh(site *interop.CallSite, res interop.Resolved) error {
	if site.Slot >= res.SlotCount {
		return errors.BadSlot(uint32(site.Iface), site.Slot, res.SlotCount)
	}

	e := w.entryFor(site.Iface)
	// Clear the pointer first so a concurrent reader never pairs the
	// new interface id with the old pointer.
	e.ptr.Store(0)
	e.iface.Store(uint32(site.Iface))
	e.slots.Store(res.SlotCount)
	e.ptr.Store(uintptr(res.Ptr))
	return nil
}

func (w *Wrapper) entryFor(iface interop.TypeID) *cacheEntry {
	for i := range w.cache {
		if interop.TypeID(w.cache[i].iface.Load()) == iface {
			return &w.cache[i]
		}
	}
	n := w.clock.Add(1) - 1
	return &w.cache[n%CacheSize]
}
