// Package wire is the catalog of every shape that crosses the bridge.
//
// Declarations is the one source both sides are generated from: Go lays the
// shapes out with NewCatalog for the pointer width of the heap in use, and the
// C header handed to the host is rendered from the same list by Header. A
// mismatch between the two cannot be detected at runtime.
package wire

import (
	"fmt"
)

// Kind is the type of a wire field
type Kind int

// KindPtr and others are the field kinds a wire struct can hold
const (
	KindPtr Kind = iota
	KindI32
	KindBool
)

// shape names, matching the C struct tags
const (
	Uint8List    = "wire_uint_8_list"
	ListTreeNode = "wire_list_tree_node"
	TreeNode     = "wire_TreeNode"
	Size         = "wire_Size"
	ListSize     = "wire_list_size"
	SyncReturn   = "WireSyncReturnStruct"
)

// FieldDecl declares one field. Pointee is the C type a KindPtr field points at.
type FieldDecl struct {
	Name    string
	Kind    Kind
	Pointee string
}

// StructDecl declares one wire shape
type StructDecl struct {
	Name   string
	Fields []FieldDecl
}

// Declarations lists every wire shape in header order
var Declarations = []StructDecl{
	{
		Name: Uint8List,
		Fields: []FieldDecl{
			{Name: "ptr", Kind: KindPtr, Pointee: "uint8_t"},
			{Name: "len", Kind: KindI32},
		},
	},
	{
		Name: ListTreeNode,
		Fields: []FieldDecl{
			{Name: "ptr", Kind: KindPtr, Pointee: "struct " + TreeNode},
			{Name: "len", Kind: KindI32},
		},
	},
	{
		Name: TreeNode,
		Fields: []FieldDecl{
			{Name: "name", Kind: KindPtr, Pointee: "struct " + Uint8List},
			{Name: "children", Kind: KindPtr, Pointee: "struct " + ListTreeNode},
		},
	},
	{
		Name: Size,
		Fields: []FieldDecl{
			{Name: "width", Kind: KindI32},
			{Name: "height", Kind: KindI32},
		},
	},
	{
		Name: ListSize,
		Fields: []FieldDecl{
			{Name: "ptr", Kind: KindPtr, Pointee: "struct " + Size},
			{Name: "len", Kind: KindI32},
		},
	},
	{
		Name: SyncReturn,
		Fields: []FieldDecl{
			{Name: "ptr", Kind: KindPtr, Pointee: "uint8_t"},
			{Name: "len", Kind: KindI32},
			{Name: "success", Kind: KindBool},
		},
	},
}

// Field is a laid-out field
type Field struct {
	Name   string
	Kind   Kind
	Offset uint32
	Size   uint32
}

// Layout is a laid-out wire shape
type Layout struct {
	Name   string
	Fields []Field
	Size   uint32
	Align  uint32
}

// Field returns the named field, panicking if the shape has no such field
func (l Layout) Field(name string) Field {
	for _, f := range l.Fields {
		if f.Name == name {
			return f
		}
	}

	panic(fmt.Sprintf("wire: %s has no field %q", l.Name, name))
}

// Catalog holds the layout of every declared shape for one pointer width
type Catalog struct {
	PtrSize uint32
	layouts map[string]Layout
}

// NewCatalog lays out Declarations following C struct rules for the given pointer width
func NewCatalog(ptrSize uint32) *Catalog {
	c := &Catalog{
		PtrSize: ptrSize,
		layouts: map[string]Layout{},
	}

	for _, decl := range Declarations {
		c.layouts[decl.Name] = layout(decl, ptrSize)
	}

	return c
}

// Layout returns the layout of the named shape, panicking on an undeclared name
func (c *Catalog) Layout(name string) Layout {
	l, exists := c.layouts[name]
	if !exists {
		panic(fmt.Sprintf("wire: undeclared shape %q", name))
	}

	return l
}

func layout(decl StructDecl, ptrSize uint32) Layout {
	l := Layout{
		Name:   decl.Name,
		Fields: make([]Field, 0, len(decl.Fields)),
		Align:  1,
	}

	offset := uint32(0)

	for _, fd := range decl.Fields {
		size := kindSize(fd.Kind, ptrSize)

		// every field kind is aligned to its own size
		offset = roundUp(offset, size)

		l.Fields = append(l.Fields, Field{
			Name:   fd.Name,
			Kind:   fd.Kind,
			Offset: offset,
			Size:   size,
		})

		offset += size

		if size > l.Align {
			l.Align = size
		}
	}

	l.Size = roundUp(offset, l.Align)

	return l
}

func kindSize(k Kind, ptrSize uint32) uint32 {
	switch k {
	case KindPtr:
		return ptrSize
	case KindI32:
		return 4
	case KindBool:
		return 1
	}

	panic(fmt.Sprintf("wire: unknown kind %d", k))
}

func roundUp(v, align uint32) uint32 {
	return (v + align - 1) / align * align
}
