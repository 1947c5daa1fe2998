// Package errors provides structured error types for the interop
// runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindNoInterface).
//		Site("Widget.Frobnicate").
//		Detail("interface %d not supported", iface).
//		Build()
//
// Or use the convenience constructors for common patterns. All errors
// implement the standard error interface and support errors.Is/As.
//
// Detected heap corruption is NOT an error in this scheme: it is
// modeled by the separate Abort type, which never participates in the
// ordinary error chain because the only valid response to it is
// process termination.
package errors
