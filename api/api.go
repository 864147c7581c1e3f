// Package api holds the operations exposed across the bridge. Their bodies are
// placeholders; what matters is the shape of the data they move.
package api

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/suborbital/e2bridge/marshal"
)

// ErrDeliberate is returned by DeliberatelyReturnError
var ErrDeliberate = errors.New("deliberately return Error!")

// DeliberatePanic is the value DeliberatelyPanic panics with
const DeliberatePanic = "deliberately panic!"

// Point is a point in the plane
type Point struct {
	X float64 `cbor:"x" json:"x"`
	Y float64 `cbor:"y" json:"y"`
}

// BoxedPoint holds its point behind a pointer
type BoxedPoint struct {
	Point *Point `cbor:"point" json:"point"`
}

// Run returns a greeting
func Run(_ context.Context) string {
	return "Hello from the native side!"
}

// PassingComplexStructs describes a tree depth-first, e.g. root(a, b(c))
func PassingComplexStructs(_ context.Context, root marshal.TreeNode) string {
	sb := &strings.Builder{}

	describe(sb, root)

	return sb.String()
}

func describe(sb *strings.Builder, node marshal.TreeNode) {
	sb.WriteString(node.Name)

	if len(node.Children) == 0 {
		return
	}

	sb.WriteString("(")

	for i, child := range node.Children {
		if i > 0 {
			sb.WriteString(", ")
		}

		describe(sb, child)
	}

	sb.WriteString(")")
}

// ReturningStructsWithBoxedFields returns a struct with a boxed field
func ReturningStructsWithBoxedFields(_ context.Context) BoxedPoint {
	return BoxedPoint{Point: &Point{X: 1, Y: 2}}
}

// InputArray returns the length of the input
func InputArray(_ context.Context, input []byte) int32 {
	return int32(len(input))
}

// OutputZeroCopyBuffer returns a buffer of n bytes
func OutputZeroCopyBuffer(_ context.Context, n int32) ([]byte, error) {
	return buffer(n)
}

// OutputVecU8 returns a buffer of n bytes
func OutputVecU8(_ context.Context, n int32) ([]byte, error) {
	return buffer(n)
}

// InputVecOfObject returns the number of sizes in the input
func InputVecOfObject(_ context.Context, input []marshal.Size) int32 {
	return int32(len(input))
}

// OutputVecOfObject returns n sizes of 42x42
func OutputVecOfObject(_ context.Context, n int32) ([]marshal.Size, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid length %d", n)
	}

	sizes := make([]marshal.Size, n)
	for i := range sizes {
		sizes[i] = marshal.Size{Width: 42, Height: 42}
	}

	return sizes, nil
}

// InputComplexStruct returns the number of direct children of the input
func InputComplexStruct(_ context.Context, input marshal.TreeNode) int32 {
	return int32(len(input.Children))
}

// OutputComplexStruct returns a root with n leaves
func OutputComplexStruct(_ context.Context, n int32) (marshal.TreeNode, error) {
	if n < 0 {
		return marshal.TreeNode{}, errors.Errorf("invalid length %d", n)
	}

	root := marshal.TreeNode{
		Name:     "root",
		Children: make([]marshal.TreeNode, n),
	}

	for i := range root.Children {
		root.Children[i] = marshal.TreeNode{Name: "child"}
	}

	return root, nil
}

// DeliberatelyReturnError always fails
func DeliberatelyReturnError(_ context.Context) error {
	return ErrDeliberate
}

// DeliberatelyPanic always panics
func DeliberatelyPanic(_ context.Context) {
	panic(DeliberatePanic)
}

func buffer(n int32) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid length %d", n)
	}

	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}

	return b, nil
}
