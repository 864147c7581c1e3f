// Package marshal moves Go values in and out of wire structures.
//
// The Put functions are the producing side: they allocate through the wire
// allocator surface and fill the result field by field, handing ownership to
// whoever receives the pointer. The Take functions are the consuming side:
// they decode a wire value into Go and release every owned allocation
// reachable from it exactly once, including on error.
package marshal

import (
	"math"

	"github.com/pkg/errors"

	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/wire"
)

// ErrNullPointer is returned when a required owned pointer is null
var ErrNullPointer = errors.New("marshal: null pointer")

// TreeNode is a named node with ordered children
type TreeNode struct {
	Name     string     `cbor:"name" json:"name"`
	Children []TreeNode `cbor:"children" json:"children"`
}

// Size is a width and height pair
type Size struct {
	Width  int32 `cbor:"width" json:"width"`
	Height int32 `cbor:"height" json:"height"`
}

// Marshaler converts between Go values and wire values in one heap
type Marshaler struct {
	codec *wire.Codec
}

// New creates a Marshaler
func New(codec *wire.Codec) *Marshaler {
	m := &Marshaler{
		codec: codec,
	}

	return m
}

// Codec returns the underlying wire codec
func (m *Marshaler) Codec() *wire.Codec {
	return m.codec
}

///////////////
// producing //
///////////////

// PutBytes allocates a byte buffer holding a copy of b
func (m *Marshaler) PutBytes(b []byte) heap.Ptr {
	list := m.codec.NewUint8List(length(len(b)))

	if len(b) > 0 {
		elems, _ := m.codec.List(wire.Uint8List, list)
		m.codec.Heap().Write(elems, b)
	}

	return list
}

// PutString allocates a byte buffer holding the bytes of s
func (m *Marshaler) PutString(s string) heap.Ptr {
	return m.PutBytes([]byte(s))
}

// PutSizes allocates a sequence of Sizes
func (m *Marshaler) PutSizes(sizes []Size) heap.Ptr {
	list := m.codec.NewListSize(length(len(sizes)))
	elems, _ := m.codec.List(wire.ListSize, list)

	for i, s := range sizes {
		m.codec.SetSize(m.codec.Elem(wire.ListSize, elems, int32(i)), s.Width, s.Height)
	}

	return list
}

// PutTreeNode allocates a boxed TreeNode and fills it depth-first
func (m *Marshaler) PutTreeNode(node TreeNode) heap.Ptr {
	box := m.codec.NewBoxAutoaddTreeNode()

	m.fillTreeNode(box, node)

	return box
}

func (m *Marshaler) fillTreeNode(at heap.Ptr, node TreeNode) {
	name := m.PutString(node.Name)

	children := m.codec.NewListTreeNode(length(len(node.Children)))
	elems, _ := m.codec.List(wire.ListTreeNode, children)

	for i, child := range node.Children {
		m.fillTreeNode(m.codec.Elem(wire.ListTreeNode, elems, int32(i)), child)
	}

	m.codec.SetTreeNode(at, name, children)
}

///////////////
// consuming //
///////////////

// TakeBytes decodes and releases a byte buffer
func (m *Marshaler) TakeBytes(list heap.Ptr) ([]byte, error) {
	if list == heap.Null {
		return nil, errors.Wrap(ErrNullPointer, wire.Uint8List)
	}

	defer m.codec.FreeList(wire.Uint8List, list)

	elems, n := m.codec.List(wire.Uint8List, list)
	if n < 0 {
		return nil, errors.Wrapf(wire.ErrNegativeLength, "%s of length %d", wire.Uint8List, n)
	}

	return m.codec.Heap().Read(elems, uint32(n)), nil
}

// TakeString decodes and releases a byte buffer as a string
func (m *Marshaler) TakeString(list heap.Ptr) (string, error) {
	b, err := m.TakeBytes(list)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// TakeSizes decodes and releases a sequence of Sizes
func (m *Marshaler) TakeSizes(list heap.Ptr) ([]Size, error) {
	if list == heap.Null {
		return nil, errors.Wrap(ErrNullPointer, wire.ListSize)
	}

	defer m.codec.FreeList(wire.ListSize, list)

	elems, n := m.codec.List(wire.ListSize, list)
	if n < 0 {
		return nil, errors.Wrapf(wire.ErrNegativeLength, "%s of length %d", wire.ListSize, n)
	}

	sizes := make([]Size, n)
	for i := range sizes {
		sizes[i].Width, sizes[i].Height = m.codec.Size(m.codec.Elem(wire.ListSize, elems, int32(i)))
	}

	return sizes, nil
}

// TakeTreeNode decodes and releases a boxed TreeNode, children first.
// The whole tree is released even if part of it fails to decode; the first
// error encountered is returned.
func (m *Marshaler) TakeTreeNode(box heap.Ptr) (TreeNode, error) {
	if box == heap.Null {
		return TreeNode{}, errors.Wrap(ErrNullPointer, wire.TreeNode)
	}

	node, err := m.takeTreeNodeAt(box)

	m.codec.Heap().Free(box)

	return node, err
}

func (m *Marshaler) takeTreeNodeAt(at heap.Ptr) (TreeNode, error) {
	namePtr, childrenPtr := m.codec.TreeNode(at)

	node := TreeNode{}

	name, firstErr := m.TakeString(namePtr)
	node.Name = name

	if childrenPtr == heap.Null {
		if firstErr == nil {
			firstErr = errors.Wrap(ErrNullPointer, wire.ListTreeNode)
		}

		return node, firstErr
	}

	elems, n := m.codec.List(wire.ListTreeNode, childrenPtr)

	if n < 0 {
		if firstErr == nil {
			firstErr = errors.Wrapf(wire.ErrNegativeLength, "%s of length %d", wire.ListTreeNode, n)
		}

		n = 0
	}

	if n > 0 {
		node.Children = make([]TreeNode, 0, n)
	}

	for i := int32(0); i < n; i++ {
		child, err := m.takeTreeNodeAt(m.codec.Elem(wire.ListTreeNode, elems, i))
		if err != nil && firstErr == nil {
			firstErr = err
		}

		node.Children = append(node.Children, child)
	}

	m.codec.FreeList(wire.ListTreeNode, childrenPtr)

	return node, firstErr
}

// length converts a Go length to a wire length, aborting when it cannot be represented
func length(n int) int32 {
	if n > math.MaxInt32 {
		panic(errors.Wrapf(heap.ErrOutOfMemory, "length %d", n))
	}

	return int32(n)
}
