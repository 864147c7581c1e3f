package dispatch

import (
	"github.com/pkg/errors"

	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/marshal"
)

// ErrMissingArgument is returned when an operation reads past its arguments
var ErrMissingArgument = errors.New("dispatch: missing argument")

// Input is the raw arguments of one call. Pointer arguments are owned by the
// operation and are released by the typed accessors as they decode them.
type Input struct {
	m    *marshal.Marshaler
	args []uint64
}

func newInput(m *marshal.Marshaler, args []uint64) *Input {
	in := &Input{
		m:    m,
		args: args,
	}

	return in
}

// Len returns the number of raw arguments
func (in *Input) Len() int {
	return len(in.args)
}

// Int32 returns argument i as a scalar
func (in *Input) Int32(i int) (int32, error) {
	raw, err := in.arg(i)
	if err != nil {
		return 0, err
	}

	return int32(uint32(raw)), nil
}

// Bytes takes argument i as a byte buffer
func (in *Input) Bytes(i int) ([]byte, error) {
	raw, err := in.arg(i)
	if err != nil {
		return nil, err
	}

	return in.m.TakeBytes(heap.Ptr(raw))
}

// Sizes takes argument i as a sequence of Sizes
func (in *Input) Sizes(i int) ([]marshal.Size, error) {
	raw, err := in.arg(i)
	if err != nil {
		return nil, err
	}

	return in.m.TakeSizes(heap.Ptr(raw))
}

// TreeNode takes argument i as a boxed TreeNode
func (in *Input) TreeNode(i int) (marshal.TreeNode, error) {
	raw, err := in.arg(i)
	if err != nil {
		return marshal.TreeNode{}, err
	}

	return in.m.TakeTreeNode(heap.Ptr(raw))
}

func (in *Input) arg(i int) (uint64, error) {
	if i < 0 || i >= len(in.args) {
		return 0, errors.Wrapf(ErrMissingArgument, "argument %d of %d", i, len(in.args))
	}

	return in.args[i], nil
}
