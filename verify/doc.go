// Package verify implements deferred heap-corruption detection for
// by-reference arguments handed to foreign calls.
//
// Foreign code can write through raw addresses that alias managed
// objects. Verifying inline on every call is too costly, so call stubs
// record each suspicious by-reference argument with Queue.Enqueue and
// the collector drains the backlog at its next stop-the-world window
// with Queue.Drain, when containing-object resolution is race-free.
// Validator.ValidateNow is the synchronous variant used immediately
// after a foreign call returns.
//
// Any validation failure is unrecoverable: the diagnostic names the
// originating call site and the runtime is terminated. Continuing
// after detected corruption would only trade one crash for a later,
// less diagnosable one.
package verify
