package memory

import (
	"context"
)

func init() {
	Register("slice", func(_ context.Context, conf Config) (Memory, error) {
		return NewSlice(conf), nil
	})
}

// Slice is a Memory backed by a plain Go byte slice
type Slice struct {
	data     []byte
	maxPages uint32
}

// NewSlice creates a Slice memory
func NewSlice(conf Config) *Slice {
	conf = conf.normalize()

	s := &Slice{
		data:     make([]byte, int(conf.InitialPages)*PageSize),
		maxPages: conf.MaxPages,
	}

	return s
}

func (s *Slice) Size() uint32 {
	return uint32(len(s.data))
}

func (s *Slice) Grow(deltaPages uint32) (uint32, bool) {
	current := uint32(len(s.data) / PageSize)
	if uint64(current)+uint64(deltaPages) > uint64(s.maxPages) {
		return current, false
	}

	grown := make([]byte, int(current+deltaPages)*PageSize)
	copy(grown, s.data)
	s.data = grown

	return current, true
}

func (s *Slice) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(s.data)) {
		return nil, false
	}

	return s.data[offset:end:end], true
}

func (s *Slice) Close() error {
	s.data = nil
	return nil
}
