package foreign

import (
	interop "github.com/lewing/interop-runtime"
)

// Model is a foreign object model: a reference-counted interface
// system with queryable, typed interface pointers.
//
// ResolveInterface returns an owned pointer; AddRef and Release adjust
// the reference it carries. Drop retires an object once no interface
// references remain outstanding.
type Model interface {
	interop.Resolver

	// AddRef takes an additional reference on a resolved interface
	// pointer and returns the new count.
	AddRef(p interop.Ptr) uint32

	// Release drops a reference and returns the remaining count.
	Release(p interop.Ptr) uint32

	// Drop retires a foreign object. Fails while any of its interface
	// pointers still carry references.
	Drop(obj interop.ForeignObject) error
}
