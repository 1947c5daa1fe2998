package verify

import (
	"math"
	"sync"

	"go.uber.org/zap"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/errors"
)

// DefaultHighWaterMark is the default number of pending entries past
// which Enqueue proactively requests a collection. A throttle, not a
// correctness bound.
const DefaultHighWaterMark = 1024

// Entry is one pending validation request: a by-reference argument
// handed to a foreign call, plus the site that made the call.
type Entry struct {
	Ref  interop.Ref
	Site *interop.CallSite
}

// Options configures a Queue. The zero value is usable.
type Options struct {
	// HighWaterMark overrides DefaultHighWaterMark when positive.
	HighWaterMark int

	// InitialCapacity preallocates entry storage.
	InitialCapacity int
}

// Queue accumulates validation requests between collections. Appends
// are mutex-guarded; Drain runs lock-free inside the collector's
// stop-the-world window, where no concurrent writers can exist. The
// backing buffer grows geometrically and never shrinks.
type Queue struct {
	*Validator

	highWater int

	mu      sync.Mutex
	entries []Entry // capacity; live entries are entries[:n]
	n       int
}

// NewQueue creates the process-wide validation queue.
func NewQueue(heap interop.Heap, control interop.Runtime, opts *Options) *Queue {
	q := &Queue{
		Validator: NewValidator(heap, control),
		highWater: DefaultHighWaterMark,
	}
	if opts != nil {
		if opts.HighWaterMark > 0 {
			q.highWater = opts.HighWaterMark
		}
		if opts.InitialCapacity > 0 {
			q.entries = make([]Entry, opts.InitialCapacity)
		}
	}
	return q
}

// Enqueue records ref for validation at the next collection safepoint.
// Refs outside the managed heap are ignored. Must not be called from
// inside a stop-the-world phase.
//
// The returned error is non-nil only when growing the buffer would
// overflow capacity arithmetic; the condition is local to this call
// and non-fatal.
func (q *Queue) Enqueue(ref interop.Ref, site *interop.CallSite) error {
	// Containing-object resolution can race with allocation on other
	// threads, so the check is deferred; only the cheap range test
	// happens here.
	if !q.heap.Contains(ref) {
		return nil
	}

	q.mu.Lock()
	if q.n == len(q.entries) {
		if err := q.grow(); err != nil {
			q.mu.Unlock()
			return err
		}
	}
	q.entries[q.n] = Entry{Ref: ref, Site: site}
	q.n++
	n := q.n
	q.mu.Unlock()

	if n > q.highWater {
		// Bound growth between collections. Best-effort: concurrent
		// enqueues may overshoot slightly.
		Logger().Debug("validation queue past high-water mark, requesting collection",
			zap.Int("entries", n))
		q.control.RequestCollection(0)
	}
	return nil
}

// grow doubles capacity plus one. Caller holds q.mu.
func (q *Queue) grow() error {
	old := len(q.entries)
	if old > (math.MaxInt-1)/2 {
		return errors.Overflow(errors.PhaseEnqueue, "validation queue capacity overflow")
	}
	next := make([]Entry, old*2+1)
	copy(next, q.entries[:q.n])
	q.entries = next
	return nil
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Cap returns the current capacity of the backing buffer.
func (q *Queue) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain validates every pending entry and resets the queue. It is
// invoked exactly once per collection cycle by the collector's
// integration point, only while mutator threads are paused; with no
// concurrent writers possible it intentionally takes no lock, and
// containing-object resolution is safe.
//
// A non-nil Abort means corruption was found and Terminate was
// invoked. The live count is reset to zero either way.
func (q *Queue) Drain() *errors.Abort {
	var abort *errors.Abort

	for i := 0; i < q.n; i++ {
		e := q.entries[i]
		obj, ok := q.heap.ObjectAt(e.Ref)
		if !ok {
			continue
		}
		if err := q.validateObject(obj, true); err != nil {
			abort = q.fatal(e.Site, err)
			break
		}
	}

	q.n = 0
	return abort
}
