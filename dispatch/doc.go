// Package dispatch resolves foreign interface pointers for managed
// proxy calls.
//
// Every managed-to-foreign call through a wrapper object runs
// Dispatcher.ResolveAndCache. The fast path must stay allocation-free
// and non-suspending: it checks the caller's execution context,
// linearly scans the wrapper's small fixed-size interface cache, and
// indexes the dispatch table at the call site's cached slot. Only a
// cache miss (or an unexpectedly null target) pays for the slow path,
// which runs the foreign object model's full interface query, may
// block or re-enter foreign code, and hands back an owned reference
// the caller must release. The asymmetry against the borrowed
// fast-path pointer is kept visible in the Resolution type so the
// fallback's cost is never masked.
//
// The wrapper cache is written without locks. Entries are hints:
// pointer-width atomic stores can interleave between concurrent
// resolvers of the same interface, and the worst outcome is an extra
// slow-path trip.
package dispatch
