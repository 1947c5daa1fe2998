// Package interop provides the native-interop call-stub support layer
// of a managed runtime: the services invoked by generated call stubs
// around every managed-to-foreign call.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	interop-runtime/     Root package with opaque tokens and the
//	│                    collaborator interfaces (Heap, Runtime,
//	│                    Resolver, ContextSource)
//	├── verify/          Deferred by-reference validation queue and
//	│                    the heap object validator
//	├── dispatch/        Per-call interface resolution: wrapper cache
//	│                    fast path with slow-path fallback
//	├── foreign/         Foreign object model: refcounted interface
//	│                    registry and a wazero-backed host
//	├── stub/            Facade handed to call-stub generators, plus
//	│                    the thin per-call plumbing helpers
//	├── errors/          Structured error types and the fatal Abort
//	└── internal/vtab/   The one unsafe module: dispatch-table
//	                     pointer arithmetic
//
// # Division of Labor
//
// Stubs call stub.Helpers on every transition. By-reference arguments
// that may alias the managed heap are recorded with EnqueueValidation
// and checked in bulk at the next collection safepoint (DrainQueue);
// ValidateNow is the synchronous variant used right after a foreign
// call returns. ResolveAndCache turns a (wrapper, call site) pair into
// a foreign interface pointer and call target, consulting the
// wrapper's small per-object cache before falling back to the foreign
// object model's full query.
//
// The collector, the heap, and the foreign object model are external
// collaborators expressed as interfaces in this package. The foreign
// package carries a complete reference model that hosts foreign
// objects inside a WebAssembly instance.
package interop
