package cabi

// #include <stdlib.h>
import "C"

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/suborbital/e2bridge/heap"
)

// mallocAlign is the alignment calloc guarantees on every supported target
const mallocAlign = 16

// CHeap allocates in the C heap, so pointers can be handed to native callers
// as they are. Every live allocation is tracked so a foreign or repeated free
// is caught instead of corrupting the allocator.
type CHeap struct {
	live map[heap.Ptr]uint32
	lock sync.Mutex

	totalAllocs uint64
	totalFrees  uint64
}

// NewCHeap creates a CHeap
func NewCHeap() *CHeap {
	h := &CHeap{
		live: map[heap.Ptr]uint32{},
	}

	return h
}

// PointerSize returns the native pointer width
func (h *CHeap) PointerSize() uint32 {
	return uint32(unsafe.Sizeof(uintptr(0)))
}

// Alloc allocates size zeroed bytes
func (h *CHeap) Alloc(size, align uint32) heap.Ptr {
	if align == 0 {
		align = 1
	}

	if align&(align-1) != 0 || align > mallocAlign {
		panic(errors.Wrapf(heap.ErrInvalidAlign, "align %d", align))
	}

	// a zero-sized request still gets a unique pointer
	n := size
	if n == 0 {
		n = 1
	}

	p := C.calloc(1, C.size_t(n))
	if p == nil {
		panic(errors.Wrapf(heap.ErrOutOfMemory, "request of %d bytes", size))
	}

	ptr := heap.Ptr(uintptr(p))

	h.lock.Lock()
	h.live[ptr] = size
	h.totalAllocs++
	h.lock.Unlock()

	return ptr
}

// Free releases an allocation made by Alloc
func (h *CHeap) Free(ptr heap.Ptr) {
	h.lock.Lock()

	if _, exists := h.live[ptr]; !exists {
		h.lock.Unlock()
		panic(errors.Wrapf(heap.ErrInvalidFree, "pointer %#x", uint64(ptr)))
	}

	delete(h.live, ptr)
	h.totalFrees++

	h.lock.Unlock()

	C.free(pointer(ptr))
}

// Read copies n bytes starting at ptr
func (h *CHeap) Read(ptr heap.Ptr, n uint32) []byte {
	if n == 0 {
		return []byte{}
	}

	if ptr == heap.Null {
		panic(errors.Wrapf(heap.ErrOutOfBounds, "%d bytes at null", n))
	}

	return C.GoBytes(pointer(ptr), C.int(n))
}

// Write copies data to ptr
func (h *CHeap) Write(ptr heap.Ptr, data []byte) {
	if len(data) == 0 {
		return
	}

	if ptr == heap.Null {
		panic(errors.Wrapf(heap.ErrOutOfBounds, "%d bytes at null", len(data)))
	}

	copy(unsafe.Slice((*byte)(pointer(ptr)), len(data)), data)
}

// Stats returns a snapshot of the heap's allocations
func (h *CHeap) Stats() heap.Stats {
	h.lock.Lock()
	defer h.lock.Unlock()

	s := heap.Stats{
		LiveAllocations: len(h.live),
		TotalAllocs:     h.totalAllocs,
		TotalFrees:      h.totalFrees,
	}

	for _, size := range h.live {
		s.LiveBytes += uint64(size)
	}

	return s
}

func pointer(ptr heap.Ptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(ptr))
}
