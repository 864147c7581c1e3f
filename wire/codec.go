package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/suborbital/e2bridge/heap"
)

// ErrNegativeLength is raised when a container is requested with a negative length
var ErrNegativeLength = errors.New("wire: negative length")

// wire structs are little-endian on every supported target
var order = binary.LittleEndian

// listElems maps each sequence shape to the shape of its elements.
// Uint8List holds raw bytes and has no element shape.
var listElems = map[string]string{
	Uint8List:    "",
	ListTreeNode: TreeNode,
	ListSize:     Size,
}

// Codec reads and writes wire structs in a heap
type Codec struct {
	heap    heap.Heap
	catalog *Catalog
}

// NewCodec creates a Codec laid out for the heap's pointer width
func NewCodec(h heap.Heap) *Codec {
	c := &Codec{
		heap:    h,
		catalog: NewCatalog(h.PointerSize()),
	}

	return c
}

// Heap returns the heap the codec operates on
func (c *Codec) Heap() heap.Heap {
	return c.heap
}

// Catalog returns the codec's layouts
func (c *Codec) Catalog() *Catalog {
	return c.catalog
}

/////////////////////////////////////////////////////////////////
// Allocator surface. Every container comes back zeroed with  //
// its element block allocated contiguously and len set.       //
/////////////////////////////////////////////////////////////////

// NewBoxAutoaddTreeNode allocates an empty TreeNode
func (c *Codec) NewBoxAutoaddTreeNode() heap.Ptr {
	l := c.catalog.Layout(TreeNode)

	return c.heap.Alloc(l.Size, l.Align)
}

// NewListSize allocates a sequence of n Sizes
func (c *Codec) NewListSize(n int32) heap.Ptr {
	return c.newList(ListSize, n)
}

// NewListTreeNode allocates a sequence of n TreeNodes
func (c *Codec) NewListTreeNode(n int32) heap.Ptr {
	return c.newList(ListTreeNode, n)
}

// NewUint8List allocates a byte buffer of length n
func (c *Codec) NewUint8List(n int32) heap.Ptr {
	return c.newList(Uint8List, n)
}

func (c *Codec) newList(shape string, n int32) heap.Ptr {
	if n < 0 {
		panic(errors.Wrapf(ErrNegativeLength, "%s of length %d", shape, n))
	}

	size, align := c.ElemSize(shape)

	total := uint64(size) * uint64(n)
	if total > math.MaxUint32 {
		panic(errors.Wrapf(heap.ErrOutOfMemory, "%s of length %d", shape, n))
	}

	elems := c.heap.Alloc(uint32(total), align)

	l := c.catalog.Layout(shape)
	list := c.heap.Alloc(l.Size, l.Align)

	c.SetList(shape, list, elems, n)

	return list
}

// ElemSize returns the size and alignment of one element of a sequence shape
func (c *Codec) ElemSize(shape string) (uint32, uint32) {
	elem, exists := listElems[shape]
	if !exists {
		panic("wire: " + shape + " is not a sequence")
	}

	if elem == "" {
		return 1, 1
	}

	l := c.catalog.Layout(elem)

	return l.Size, l.Align
}

// Elem returns the address of element i of an element block
func (c *Codec) Elem(shape string, elems heap.Ptr, i int32) heap.Ptr {
	size, _ := c.ElemSize(shape)

	return elems + heap.Ptr(uint64(size)*uint64(i))
}

// FreeList releases a sequence's element block and the sequence itself.
// Owned pointers inside the elements must already have been released.
func (c *Codec) FreeList(shape string, list heap.Ptr) {
	elems, _ := c.List(shape, list)

	c.heap.Free(elems)
	c.heap.Free(list)
}

/////////////////////
// field accessors //
/////////////////////

// List returns a sequence's element block and length
func (c *Codec) List(shape string, list heap.Ptr) (heap.Ptr, int32) {
	return c.ptr(list, shape, "ptr"), c.i32(list, shape, "len")
}

// SetList sets a sequence's element block and length
func (c *Codec) SetList(shape string, list, elems heap.Ptr, n int32) {
	c.setPtr(list, shape, "ptr", elems)
	c.setI32(list, shape, "len", n)
}

// TreeNode returns a TreeNode's name buffer and children sequence
func (c *Codec) TreeNode(node heap.Ptr) (heap.Ptr, heap.Ptr) {
	return c.ptr(node, TreeNode, "name"), c.ptr(node, TreeNode, "children")
}

// SetTreeNode sets a TreeNode's name buffer and children sequence
func (c *Codec) SetTreeNode(node, name, children heap.Ptr) {
	c.setPtr(node, TreeNode, "name", name)
	c.setPtr(node, TreeNode, "children", children)
}

// Size returns a Size's width and height
func (c *Codec) Size(s heap.Ptr) (int32, int32) {
	return c.i32(s, Size, "width"), c.i32(s, Size, "height")
}

// SetSize sets a Size's width and height
func (c *Codec) SetSize(s heap.Ptr, width, height int32) {
	c.setI32(s, Size, "width", width)
	c.setI32(s, Size, "height", height)
}

func (c *Codec) ptr(base heap.Ptr, shape, field string) heap.Ptr {
	f := c.catalog.Layout(shape).Field(field)
	b := c.heap.Read(base+heap.Ptr(f.Offset), f.Size)

	if f.Size == 4 {
		return heap.Ptr(order.Uint32(b))
	}

	return heap.Ptr(order.Uint64(b))
}

func (c *Codec) setPtr(base heap.Ptr, shape, field string, val heap.Ptr) {
	f := c.catalog.Layout(shape).Field(field)
	b := make([]byte, f.Size)

	if f.Size == 4 {
		order.PutUint32(b, uint32(val))
	} else {
		order.PutUint64(b, uint64(val))
	}

	c.heap.Write(base+heap.Ptr(f.Offset), b)
}

func (c *Codec) i32(base heap.Ptr, shape, field string) int32 {
	f := c.catalog.Layout(shape).Field(field)

	return int32(order.Uint32(c.heap.Read(base+heap.Ptr(f.Offset), 4)))
}

func (c *Codec) setI32(base heap.Ptr, shape, field string, val int32) {
	f := c.catalog.Layout(shape).Field(field)

	b := make([]byte, 4)
	order.PutUint32(b, uint32(val))

	c.heap.Write(base+heap.Ptr(f.Offset), b)
}
