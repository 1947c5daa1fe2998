// Package vtab owns all raw dispatch-table pointer arithmetic. It is
// the only package in the module that imports unsafe; everything else
// sees foreign pointers and call targets as opaque tokens.
//
// A foreign interface pointer follows the classic object-model layout:
// its first word points at a contiguous array of call targets (the
// dispatch table). Load performs the two raw reads that turn a
// (pointer, slot) pair into a call target. Slot indices are validated
// by callers at cache-population time; Load itself does no bounds
// checking.
package vtab

import (
	"unsafe"

	interop "github.com/lewing/interop-runtime"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// Load returns the call target stored at slot in p's dispatch table.
// p must be a live interface pointer; slot must have been validated
// against the table's slot count when the pointer was cached.
func Load(p interop.Ptr, slot uint32) interop.Target {
	table := *(*uintptr)(unsafe.Pointer(p))
	if table == 0 {
		return 0
	}
	return interop.Target(*(*uintptr)(unsafe.Pointer(table + uintptr(slot)*ptrSize)))
}

// Block is a Go-allocated dispatch table laid out exactly like a
// foreign interface pointer: the block's first word points at its slot
// array. Object models implemented in Go build their interfaces out of
// Blocks; the owner must keep the Block reachable for as long as its
// Ptr is in use.
type Block struct {
	table   unsafe.Pointer
	targets []interop.Target
}

// NewBlock builds a dispatch table from the given call targets. The
// slice is copied.
func NewBlock(targets []interop.Target) *Block {
	b := &Block{targets: append([]interop.Target(nil), targets...)}
	if len(b.targets) > 0 {
		b.table = unsafe.Pointer(&b.targets[0])
	}
	return b
}

// Ptr returns the interface pointer for b.
func (b *Block) Ptr() interop.Ptr {
	return interop.Ptr(unsafe.Pointer(&b.table))
}

// SlotCount returns the number of valid slots in b's table.
func (b *Block) SlotCount() uint32 {
	return uint32(len(b.targets))
}
