// Package heap defines the allocation domain wire structures live in.
//
// Every pointer that crosses the bridge is a Ptr into exactly one Heap, and
// every allocation must be released exactly once through the same Heap.
// Violations of that rule (double free, freeing a foreign pointer, running out
// of memory) are programming errors in the integration and panic.
package heap

import (
	"github.com/pkg/errors"
)

// Ptr is an address in a Heap. The zero value is the null pointer.
type Ptr uint64

// Null is the null pointer
const Null Ptr = 0

// ErrOutOfMemory and others are contract violations raised as panics
var (
	ErrOutOfMemory  = errors.New("heap: out of memory")
	ErrInvalidFree  = errors.New("heap: pointer is not a live allocation")
	ErrOutOfBounds  = errors.New("heap: access out of bounds")
	ErrInvalidAlign = errors.New("heap: alignment must be a power of two")
)

// Heap is a manually managed allocation domain.
// Alloc returns zeroed memory and never returns Null, zero-sized requests
// included. Read returns a copy, Write copies in.
type Heap interface {
	Alloc(size, align uint32) Ptr
	Free(ptr Ptr)
	Read(ptr Ptr, n uint32) []byte
	Write(ptr Ptr, data []byte)
	PointerSize() uint32
}

// Stats describes a heap's live allocations
type Stats struct {
	LiveAllocations int    `json:"liveAllocations"`
	LiveBytes       uint64 `json:"liveBytes"`
	TotalAllocs     uint64 `json:"totalAllocs"`
	TotalFrees      uint64 `json:"totalFrees"`
}

// Stater is implemented by heaps that track their allocations
type Stater interface {
	Stats() Stats
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

func alignUp(v uint64, align uint32) uint64 {
	a := uint64(align)
	return (v + a - 1) &^ (a - 1)
}
