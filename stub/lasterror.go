package stub

import "sync/atomic"

// ErrorSlot is a saved-last-error cell. Generated stubs clear it
// before a foreign call and read it immediately after, so the bracket
// around any single call is sequential even though slots themselves
// are safe for concurrent use. The embedding runtime decides how
// slots map to execution contexts.
type ErrorSlot struct {
	v atomic.Int32
}

// Clear resets the slot to no-error.
func (s *ErrorSlot) Clear() { s.v.Store(0) }

// Set records the foreign call's error code.
func (s *ErrorSlot) Set(code int32) { s.v.Store(code) }

// Load returns the most recently recorded code.
func (s *ErrorSlot) Load() int32 { return s.v.Load() }
