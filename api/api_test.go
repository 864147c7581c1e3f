package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suborbital/e2bridge/marshal"
)

func TestPassingComplexStructs(t *testing.T) {
	root := marshal.TreeNode{
		Name: "root",
		Children: []marshal.TreeNode{
			{Name: "a"},
			{Name: "b", Children: []marshal.TreeNode{{Name: "c"}}},
		},
	}

	assert.Equal(t, "root(a, b(c))", PassingComplexStructs(context.Background(), root))
	assert.Equal(t, "leaf", PassingComplexStructs(context.Background(), marshal.TreeNode{Name: "leaf"}))
}

func TestBuffers(t *testing.T) {
	b, err := OutputVecU8(context.Background(), 300)
	require.NoError(t, err)
	assert.Len(t, b, 300)
	assert.Equal(t, byte(44), b[300-256])

	b, err = OutputZeroCopyBuffer(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, b)

	_, err = OutputVecU8(context.Background(), -1)
	assert.Error(t, err)
}

func TestVecOfObject(t *testing.T) {
	sizes, err := OutputVecOfObject(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []marshal.Size{{Width: 42, Height: 42}, {Width: 42, Height: 42}, {Width: 42, Height: 42}}, sizes)

	assert.Equal(t, int32(3), InputVecOfObject(context.Background(), sizes))
}

func TestComplexStruct(t *testing.T) {
	root, err := OutputComplexStruct(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "root", root.Name)
	assert.Len(t, root.Children, 4)
	assert.Equal(t, "child", root.Children[3].Name)

	assert.Equal(t, int32(4), InputComplexStruct(context.Background(), root))
}

func TestDeliberateFailures(t *testing.T) {
	assert.EqualError(t, DeliberatelyReturnError(context.Background()), "deliberately return Error!")

	assert.PanicsWithValue(t, DeliberatePanic, func() {
		DeliberatelyPanic(context.Background())
	})
}

func TestOperationsAreUnique(t *testing.T) {
	seen := map[string]bool{}

	for _, op := range Operations() {
		assert.False(t, seen[op.Name], op.Name)
		assert.NotNil(t, op.Exec, op.Name)

		seen[op.Name] = true
	}

	assert.Len(t, seen, 12)
}
