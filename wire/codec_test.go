package wire

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/heap/memory"
)

type CodecSuite struct {
	suite.Suite
	heap  *heap.Linear
	codec *Codec
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, &CodecSuite{})
}

func (s *CodecSuite) SetupTest() {
	s.heap = heap.NewLinear(memory.NewSlice(memory.Config{InitialPages: 1, MaxPages: 16}))
	s.codec = NewCodec(s.heap)
}

func (s *CodecSuite) TestNewUint8List() {
	list := s.codec.NewUint8List(5)

	elems, n := s.codec.List(Uint8List, list)
	s.Equal(int32(5), n)
	s.NotEqual(heap.Null, elems)
	s.Equal(make([]byte, 5), s.heap.Read(elems, 5))

	s.codec.FreeList(Uint8List, list)
	s.Zero(s.heap.Stats().LiveAllocations)
}

func (s *CodecSuite) TestZeroLengthListHasRealPointer() {
	a := s.codec.NewListSize(0)
	b := s.codec.NewListSize(0)

	ea, na := s.codec.List(ListSize, a)
	eb, _ := s.codec.List(ListSize, b)

	s.Equal(int32(0), na)
	s.NotEqual(heap.Null, ea)
	s.NotEqual(ea, eb)

	s.codec.FreeList(ListSize, a)
	s.codec.FreeList(ListSize, b)
	s.Zero(s.heap.Stats().LiveAllocations)
}

func (s *CodecSuite) TestListSizeElements() {
	list := s.codec.NewListSize(3)
	elems, n := s.codec.List(ListSize, list)

	for i := int32(0); i < n; i++ {
		s.codec.SetSize(s.codec.Elem(ListSize, elems, i), i, i*10)
	}

	for i := int32(0); i < n; i++ {
		w, h := s.codec.Size(s.codec.Elem(ListSize, elems, i))
		s.Equal(i, w)
		s.Equal(i*10, h)
	}

	s.codec.FreeList(ListSize, list)
}

func (s *CodecSuite) TestTreeNodeBoxIsZeroed() {
	node := s.codec.NewBoxAutoaddTreeNode()

	name, children := s.codec.TreeNode(node)
	s.Equal(heap.Null, name)
	s.Equal(heap.Null, children)

	s.codec.SetTreeNode(node, heap.Ptr(0x40), heap.Ptr(0x80))
	name, children = s.codec.TreeNode(node)
	s.Equal(heap.Ptr(0x40), name)
	s.Equal(heap.Ptr(0x80), children)

	s.heap.Free(node)
}

func (s *CodecSuite) TestListTreeNodeElementsAreContiguous() {
	list := s.codec.NewListTreeNode(2)
	elems, _ := s.codec.List(ListTreeNode, list)

	s.Equal(elems+8, s.codec.Elem(ListTreeNode, elems, 1))

	s.codec.FreeList(ListTreeNode, list)
}

func (s *CodecSuite) TestNegativeLengthPanics() {
	s.Panics(func() { s.codec.NewUint8List(-1) })
	s.Panics(func() { s.codec.NewListTreeNode(-7) })
}

func (s *CodecSuite) TestHugeListPanics() {
	s.Panics(func() { s.codec.NewListSize(1 << 30) })
}
