// Package foreign implements the foreign object model side of the
// interop boundary.
//
// A Model hands out reference-counted interface pointers backed by
// dispatch-table blocks. Registry is the generic in-memory model;
// WazeroModel hosts the foreign functions themselves inside a
// WebAssembly module, binding each interface's dispatch slots to wasm
// exports so resolved call targets can actually be invoked.
//
// Pointers returned by ResolveInterface are owned: the caller must
// balance each resolution with one Release. The registry keeps every
// dispatch-table block reachable until its object is dropped, so
// cached borrowed aliases held by wrapper objects stay valid for the
// wrapper's lifetime.
package foreign
