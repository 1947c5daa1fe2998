// Package stub is the facade generated call stubs link against.
//
// Helpers bundles the validation queue, the heap validator and the
// interface dispatcher behind the four operations every stub emits
// (EnqueueValidation, ValidateNow, ResolveAndCache and DrainQueue),
// together with the thin per-call plumbing (pinned-argument logging,
// profiler transition callbacks, delegate target retrieval, foreign
// error construction, saved-last-error slots). The plumbing delegates
// to optional collaborators; everything here is intentionally a thin
// layer over already-existing runtime services.
package stub
