package foreign

import (
	stderrors "errors"
	"sync"

	"go.uber.org/zap"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/errors"
	"github.com/lewing/interop-runtime/internal/vtab"
)

var (
	ErrUnknownObject   = stderrors.New("foreign object not registered")
	ErrUnknownPointer  = stderrors.New("pointer does not name a resolved interface")
	ErrOutstandingRefs = stderrors.New("cannot drop object with outstanding interface references")
)

// Registry is an in-memory foreign object registry with per-interface
// reference counting. Object identities are reused through a free
// list; identity 0 is reserved and always invalid.
//
// The registry owns the dispatch-table blocks behind every pointer it
// hands out, which keeps those pointers valid until the object is
// dropped.
type Registry struct {
	mu       sync.Mutex
	entries  []objectEntry
	freeList []interop.ForeignObject
	byPtr    map[interop.Ptr]*ifaceState
}

type objectEntry struct {
	ifaces map[interop.TypeID]*ifaceState
	valid  bool
}

type ifaceState struct {
	block *vtab.Block
	refs  uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]objectEntry, 0, 64),
		byPtr:   make(map[interop.Ptr]*ifaceState),
	}
}

// Register adds a foreign object exposing the given interfaces, each a
// dispatch table of call targets, and returns its identity.
func (r *Registry) Register(ifaces map[interop.TypeID][]interop.Target) (interop.ForeignObject, error) {
	if len(ifaces) == 0 {
		return 0, errors.InvalidInput(errors.PhaseHost, "foreign object exposes no interfaces")
	}

	e := objectEntry{
		ifaces: make(map[interop.TypeID]*ifaceState, len(ifaces)),
		valid:  true,
	}
	for iface, targets := range ifaces {
		if iface == 0 {
			return 0, errors.InvalidInput(errors.PhaseHost, "interface type id 0 is reserved")
		}
		e.ifaces[iface] = &ifaceState{block: vtab.NewBlock(targets)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.freeList) > 0 {
		obj := r.freeList[len(r.freeList)-1]
		r.freeList = r.freeList[:len(r.freeList)-1]
		r.entries[obj-1] = e
		r.indexLocked(e)
		return obj, nil
	}

	r.entries = append(r.entries, e)
	obj := interop.ForeignObject(len(r.entries))
	r.indexLocked(e)
	return obj, nil
}

func (r *Registry) indexLocked(e objectEntry) {
	for _, st := range e.ifaces {
		r.byPtr[st.block.Ptr()] = st
	}
}

// ResolveInterface performs the full interface query: it returns an
// owned pointer to obj's dispatch table for iface, with its slot
// count. The reference must be released exactly once.
func (r *Registry) ResolveInterface(obj interop.ForeignObject, iface interop.TypeID) (interop.Resolved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.stateLocked(obj, iface)
	if err != nil {
		return interop.Resolved{}, err
	}

	st.refs++
	p := st.block.Ptr()

	Logger().Debug("interface resolved",
		zap.Uint64("object", uint64(obj)),
		zap.Uint32("iface", uint32(iface)),
		zap.Uint32("refs", st.refs))

	return interop.Resolved{
		Ptr:       p,
		SlotCount: st.block.SlotCount(),
		Release:   func() { r.Release(p) },
	}, nil
}

func (r *Registry) stateLocked(obj interop.ForeignObject, iface interop.TypeID) (*ifaceState, error) {
	if obj == 0 || int(obj) > len(r.entries) || !r.entries[obj-1].valid {
		return nil, ErrUnknownObject
	}
	st, ok := r.entries[obj-1].ifaces[iface]
	if !ok {
		return nil, errors.NoInterface(uint64(obj), uint32(iface))
	}
	return st, nil
}

// AddRef takes an additional reference on p.
func (r *Registry) AddRef(p interop.Ptr) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.byPtr[p]
	if !ok {
		return 0
	}
	st.refs++
	return st.refs
}

// Release drops one reference from p and returns the remaining count.
func (r *Registry) Release(p interop.Ptr) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.byPtr[p]
	if !ok {
		Logger().Warn("release of unknown interface pointer", zap.Uint64("ptr", uint64(p)))
		return 0
	}
	if st.refs == 0 {
		Logger().Warn("interface reference count underflow", zap.Uint64("ptr", uint64(p)))
		return 0
	}
	st.refs--
	return st.refs
}

// Refs returns the current reference count behind p.
func (r *Registry) Refs(p interop.Ptr) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.byPtr[p]; ok {
		return st.refs
	}
	return 0
}

// Drop retires obj and recycles its identity. Fails with
// ErrOutstandingRefs while any interface pointer is still referenced.
func (r *Registry) Drop(obj interop.ForeignObject) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if obj == 0 || int(obj) > len(r.entries) || !r.entries[obj-1].valid {
		return ErrUnknownObject
	}
	e := &r.entries[obj-1]
	for _, st := range e.ifaces {
		if st.refs > 0 {
			return ErrOutstandingRefs
		}
	}
	for _, st := range e.ifaces {
		delete(r.byPtr, st.block.Ptr())
	}
	e.valid = false
	e.ifaces = nil
	r.freeList = append(r.freeList, obj)
	return nil
}

// Len returns the number of live objects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.entries {
		if r.entries[i].valid {
			n++
		}
	}
	return n
}
