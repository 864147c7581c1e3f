package api

import (
	"github.com/suborbital/e2bridge/dispatch"
	"github.com/suborbital/e2bridge/marshal"
)

type (
	treeNode = marshal.TreeNode
	sizes    = []marshal.Size
)

func takeTreeNode(in *dispatch.Input) (interface{}, error) {
	return in.TreeNode(0)
}

func takeBytes(in *dispatch.Input) (interface{}, error) {
	return in.Bytes(0)
}

func takeSizes(in *dispatch.Input) (interface{}, error) {
	return in.Sizes(0)
}

func takeLen(in *dispatch.Input) (interface{}, error) {
	return in.Int32(0)
}
