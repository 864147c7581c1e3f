package heap

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/suborbital/e2bridge/heap/memory"
)

// reservedBytes at the bottom of the memory are never handed out, keeping
// address 0 free to mean null.
const reservedBytes = 16

// minBlock is the smallest block handed out, so a zero-sized request still
// yields a unique non-null pointer.
const minBlock = 8

type span struct {
	start uint32
	end   uint32
}

// Linear is a first-fit allocator over a 32-bit linear memory
type Linear struct {
	mem memory.Memory

	top  uint32
	free []span
	live map[uint32]uint32

	totalAllocs uint64
	totalFrees  uint64

	lock sync.Mutex
}

// NewLinear creates a Linear heap that allocates from mem
func NewLinear(mem memory.Memory) *Linear {
	l := &Linear{
		mem:  mem,
		top:  reservedBytes,
		free: []span{},
		live: map[uint32]uint32{},
	}

	return l
}

// PointerSize returns the width of a pointer in this heap, 32 bits
func (l *Linear) PointerSize() uint32 {
	return 4
}

// Alloc allocates size zeroed bytes aligned to align
func (l *Linear) Alloc(size, align uint32) Ptr {
	if align == 0 {
		align = 1
	}

	if !isPowerOfTwo(align) {
		panic(errors.Wrapf(ErrInvalidAlign, "align %d", align))
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	block := size
	if block < minBlock {
		block = minBlock
	}

	block = uint32(alignUp(uint64(block), minBlock))
	if block < size {
		panic(errors.Wrapf(ErrOutOfMemory, "request of %d bytes", size))
	}

	start, ok := l.takeFree(block, align)
	if !ok {
		start = l.bump(block, align)
	}

	l.live[start] = block
	l.totalAllocs++

	l.zero(start, block)

	return Ptr(start)
}

// Free releases an allocation made by Alloc
func (l *Linear) Free(ptr Ptr) {
	l.lock.Lock()
	defer l.lock.Unlock()

	start := uint32(ptr)

	size, exists := l.live[start]
	if !exists || uint64(ptr) > uint64(^uint32(0)) {
		panic(errors.Wrapf(ErrInvalidFree, "pointer %#x", uint64(ptr)))
	}

	delete(l.live, start)
	l.totalFrees++

	l.release(span{start: start, end: start + size})
}

// Read copies n bytes starting at ptr out of the heap
func (l *Linear) Read(ptr Ptr, n uint32) []byte {
	l.lock.Lock()
	defer l.lock.Unlock()

	view := l.view(ptr, n)

	out := make([]byte, n)
	copy(out, view)

	return out
}

// Write copies data into the heap starting at ptr
func (l *Linear) Write(ptr Ptr, data []byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	view := l.view(ptr, uint32(len(data)))

	copy(view, data)
}

// Stats returns a snapshot of the heap's allocations
func (l *Linear) Stats() Stats {
	l.lock.Lock()
	defer l.lock.Unlock()

	s := Stats{
		LiveAllocations: len(l.live),
		TotalAllocs:     l.totalAllocs,
		TotalFrees:      l.totalFrees,
	}

	for _, size := range l.live {
		s.LiveBytes += uint64(size)
	}

	return s
}

// Close releases the underlying memory
func (l *Linear) Close() error {
	return l.mem.Close()
}

func (l *Linear) view(ptr Ptr, n uint32) []byte {
	if n == 0 {
		return []byte{}
	}

	if ptr == Null || uint64(ptr)+uint64(n) > uint64(^uint32(0)) {
		panic(errors.Wrapf(ErrOutOfBounds, "%d bytes at %#x", n, uint64(ptr)))
	}

	view, ok := l.mem.Read(uint32(ptr), n)
	if !ok {
		panic(errors.Wrapf(ErrOutOfBounds, "%d bytes at %#x", n, uint64(ptr)))
	}

	return view
}

func (l *Linear) zero(start, size uint32) {
	view, ok := l.mem.Read(start, size)
	if !ok {
		panic(errors.Wrapf(ErrOutOfBounds, "%d bytes at %#x", size, start))
	}

	for i := range view {
		view[i] = 0
	}
}

// takeFree finds the first free span that fits and splits it
func (l *Linear) takeFree(size, align uint32) (uint32, bool) {
	for i, s := range l.free {
		start := alignUp(uint64(s.start), align)
		end := start + uint64(size)

		if end > uint64(s.end) {
			continue
		}

		rest := make([]span, 0, 2)
		if uint32(start) > s.start {
			rest = append(rest, span{start: s.start, end: uint32(start)})
		}

		if uint32(end) < s.end {
			rest = append(rest, span{start: uint32(end), end: s.end})
		}

		l.free = append(l.free[:i], append(rest, l.free[i+1:]...)...)

		return uint32(start), true
	}

	return 0, false
}

// bump carves a new block off the top of the heap, growing the memory if needed
func (l *Linear) bump(size, align uint32) uint32 {
	start := alignUp(uint64(l.top), align)
	end := start + uint64(size)

	if end > uint64(l.mem.Size()) {
		needed := end - uint64(l.mem.Size())
		pages := (needed + memory.PageSize - 1) / memory.PageSize

		if pages > memory.MaxPages {
			panic(errors.Wrapf(ErrOutOfMemory, "request of %d bytes", size))
		}

		if _, ok := l.mem.Grow(uint32(pages)); !ok {
			panic(errors.Wrapf(ErrOutOfMemory, "failed to grow memory by %d pages", pages))
		}
	}

	if uint32(start) > l.top {
		l.release(span{start: l.top, end: uint32(start)})
	}

	l.top = uint32(end)

	return uint32(start)
}

// release returns a span to the free list, coalescing neighbours and
// shrinking the top of the heap when the span borders it
func (l *Linear) release(s span) {
	i := sort.Search(len(l.free), func(i int) bool {
		return l.free[i].start >= s.start
	})

	l.free = append(l.free, span{})
	copy(l.free[i+1:], l.free[i:])
	l.free[i] = s

	if i+1 < len(l.free) && l.free[i].end == l.free[i+1].start {
		l.free[i].end = l.free[i+1].end
		l.free = append(l.free[:i+1], l.free[i+2:]...)
	}

	if i > 0 && l.free[i-1].end == l.free[i].start {
		l.free[i-1].end = l.free[i].end
		l.free = append(l.free[:i], l.free[i+1:]...)
		i--
	}

	if last := len(l.free) - 1; last >= 0 && l.free[last].end == l.top {
		l.top = l.free[last].start
		l.free = l.free[:last]
	}
}
