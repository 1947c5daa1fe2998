package dispatch

import (
	stderrors "errors"
	"testing"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/errors"
	"github.com/lewing/interop-runtime/internal/vtab"
)

type stubContexts struct {
	cur interop.ContextID
}

func (s *stubContexts) Current() interop.ContextID { return s.cur }

// mockResolver hands out a vtab block per interface and counts
// queries and releases.
type mockResolver struct {
	blocks   map[interop.TypeID]*vtab.Block
	calls    int
	released int
	err      error
}

func newMockResolver() *mockResolver {
	return &mockResolver{blocks: make(map[interop.TypeID]*vtab.Block)}
}

func (r *mockResolver) serve(iface interop.TypeID, targets ...interop.Target) {
	r.blocks[iface] = vtab.NewBlock(targets)
}

func (r *mockResolver) ResolveInterface(obj interop.ForeignObject, iface interop.TypeID) (interop.Resolved, error) {
	r.calls++
	if r.err != nil {
		return interop.Resolved{}, r.err
	}
	b, ok := r.blocks[iface]
	if !ok {
		return interop.Resolved{}, errors.NoInterface(uint64(obj), uint32(iface))
	}
	return interop.Resolved{
		Ptr:       b.Ptr(),
		SlotCount: b.SlotCount(),
		Release:   func() { r.released++ },
	}, nil
}

func TestResolveAndCache_CacheHitBorrowed(t *testing.T) {
	resolver := newMockResolver()
	resolver.serve(5, 0x100, 0x200, 0x300)
	d := New(&stubContexts{cur: 42}, resolver, nil)
	w := NewWrapper(1, 42, false)

	site := &interop.CallSite{Iface: 5, Slot: 1, Method: "M"}

	// Populate through one slow-path trip.
	first, err := d.ResolveAndCache(w, site)
	if err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if !first.Owned {
		t.Fatal("slow-path resolution not flagged owned")
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", resolver.calls)
	}

	// Now the cache must answer alone.
	res, err := d.ResolveAndCache(w, site)
	if err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times after cache population, want 1", resolver.calls)
	}
	if res.Owned {
		t.Fatal("fast-path resolution flagged owned; it is borrowed")
	}
	if res.Target != 0x200 {
		t.Fatalf("Target = %#x, want 0x200", res.Target)
	}
	if res.Ptr != first.Ptr {
		t.Fatalf("fast path returned pointer %#x, cache held %#x", res.Ptr, first.Ptr)
	}

	// Releasing a borrowed resolution is a no-op.
	res.Release()
	if resolver.released != 0 {
		t.Fatalf("borrowed Release hit the resolver %d times, want 0", resolver.released)
	}
	first.Release()
	first.Release()
	if resolver.released != 1 {
		t.Fatalf("owned Release ran %d times, want exactly 1", resolver.released)
	}
}

func TestResolveAndCache_ContextMismatchSkipsCache(t *testing.T) {
	resolver := newMockResolver()
	resolver.serve(5, 0x100, 0x200)
	contexts := &stubContexts{cur: 42}
	d := New(contexts, resolver, nil)
	w := NewWrapper(1, 42, false)

	site := &interop.CallSite{Iface: 5, Slot: 0}
	if _, err := d.ResolveAndCache(w, site); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}

	// Same wrapper from another context: the cache must not answer.
	contexts.cur = 99
	if _, err := d.ResolveAndCache(w, site); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("resolver called %d times, want 2 (cache bypassed on context mismatch)", resolver.calls)
	}
}

func TestResolveAndCache_FreeThreadedIgnoresContext(t *testing.T) {
	resolver := newMockResolver()
	resolver.serve(5, 0x100, 0x200)
	contexts := &stubContexts{cur: 42}
	d := New(contexts, resolver, nil)
	w := NewWrapper(1, 42, true)

	site := &interop.CallSite{Iface: 5, Slot: 0}
	if _, err := d.ResolveAndCache(w, site); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}

	contexts.cur = 7
	res, err := d.ResolveAndCache(w, site)
	if err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1 (free-threaded cache consulted)", resolver.calls)
	}
	if res.Owned {
		t.Fatal("free-threaded cache hit flagged owned")
	}
}

func TestResolveAndCache_NullTargetFallsThrough(t *testing.T) {
	resolver := newMockResolver()
	// Slot 1 is a hole; the cached pointer cannot satisfy the call.
	resolver.serve(5, 0x100, 0)
	d := New(&stubContexts{cur: 1}, resolver, nil)
	w := NewWrapper(1, 1, false)

	site := &interop.CallSite{Iface: 5, Slot: 0}
	if _, err := d.ResolveAndCache(w, site); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}

	hole := &interop.CallSite{Iface: 5, Slot: 1}
	_, err := d.ResolveAndCache(w, hole)
	if err == nil {
		t.Fatal("expected error for null slow-path target")
	}
	if resolver.calls != 2 {
		t.Fatalf("resolver called %d times, want 2 (null cached target falls through)", resolver.calls)
	}
	if resolver.released != 1 {
		t.Fatalf("owned pointer released %d times on failed dispatch, want 1", resolver.released)
	}
}

func TestResolveAndCache_BadSlotValidatedAtPopulation(t *testing.T) {
	resolver := newMockResolver()
	resolver.serve(5, 0x100, 0x200)
	d := New(&stubContexts{cur: 1}, resolver, nil)
	w := NewWrapper(1, 1, false)

	site := &interop.CallSite{Iface: 5, Slot: 9}
	_, err := d.ResolveAndCache(w, site)
	if err == nil {
		t.Fatal("expected bad slot error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindBadSlot {
		t.Fatalf("error = %v, want kind %s", err, errors.KindBadSlot)
	}
	if resolver.released != 1 {
		t.Fatalf("owned pointer released %d times after slot rejection, want 1", resolver.released)
	}
}

func TestResolveAndCache_ResolverErrorIsCatchable(t *testing.T) {
	resolver := newMockResolver()
	d := New(&stubContexts{cur: 1}, resolver, nil)
	w := NewWrapper(1, 1, false)

	_, err := d.ResolveAndCache(w, &interop.CallSite{Iface: 77, Slot: 0})
	if err == nil {
		t.Fatal("expected resolution error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %v is not a structured error", err)
	}
	if e.Phase != errors.PhaseResolve {
		t.Fatalf("error phase = %s, want %s", e.Phase, errors.PhaseResolve)
	}
}

func TestResolveAndCache_ClearFPStateRunsOnBothPaths(t *testing.T) {
	resolver := newMockResolver()
	resolver.serve(5, 0x100)
	cleared := 0
	d := New(&stubContexts{cur: 1}, resolver, &Config{ClearFPState: func() { cleared++ }})
	w := NewWrapper(1, 1, false)

	site := &interop.CallSite{Iface: 5, Slot: 0}
	if _, err := d.ResolveAndCache(w, site); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("ClearFPState ran %d times after slow path, want 1", cleared)
	}
	if _, err := d.ResolveAndCache(w, site); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("ClearFPState ran %d times after fast path, want 2", cleared)
	}
}

func TestWrapperCache_RoundRobinEviction(t *testing.T) {
	resolver := newMockResolver()
	for i := 0; i < CacheSize+1; i++ {
		resolver.serve(interop.TypeID(10+i), 0x100)
	}
	d := New(&stubContexts{cur: 1}, resolver, nil)
	w := NewWrapper(1, 1, false)

	for i := 0; i < CacheSize+1; i++ {
		site := &interop.CallSite{Iface: interop.TypeID(10 + i), Slot: 0}
		if _, err := d.ResolveAndCache(w, site); err != nil {
			t.Fatalf("ResolveAndCache %d: %v", i, err)
		}
	}
	if resolver.calls != CacheSize+1 {
		t.Fatalf("resolver called %d times, want %d", resolver.calls, CacheSize+1)
	}

	// The first interface was evicted and must miss again.
	if _, err := d.ResolveAndCache(w, &interop.CallSite{Iface: 10, Slot: 0}); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if resolver.calls != CacheSize+2 {
		t.Fatalf("resolver called %d times, want %d (evicted entry misses)", resolver.calls, CacheSize+2)
	}

	// The most recent interface is still cached.
	if _, err := d.ResolveAndCache(w, &interop.CallSite{Iface: interop.TypeID(10 + CacheSize), Slot: 0}); err != nil {
		t.Fatalf("ResolveAndCache: %v", err)
	}
	if resolver.calls != CacheSize+2 {
		t.Fatalf("resolver called %d times, want %d (recent entry hits)", resolver.calls, CacheSize+2)
	}
}
