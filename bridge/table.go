package bridge

import (
	"context"

	"github.com/suborbital/e2bridge/api"
	"github.com/suborbital/e2bridge/dispatch"
	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/post"
)

/////////////////////////
// registration        //
/////////////////////////

// StorePostFunc registers the function completions are posted through
func (b *Bridge) StorePostFunc(fn post.PostFunc) {
	b.registry.Store(fn)
}

/////////////////////////
// allocator surface   //
/////////////////////////

// NewBoxAutoaddTreeNode allocates an empty TreeNode
func (b *Bridge) NewBoxAutoaddTreeNode() heap.Ptr {
	return b.codec.NewBoxAutoaddTreeNode()
}

// NewListSize allocates a sequence of n Sizes
func (b *Bridge) NewListSize(n int32) heap.Ptr {
	return b.codec.NewListSize(n)
}

// NewListTreeNode allocates a sequence of n TreeNodes
func (b *Bridge) NewListTreeNode(n int32) heap.Ptr {
	return b.codec.NewListTreeNode(n)
}

// NewUint8List allocates a byte buffer of length n
func (b *Bridge) NewUint8List(n int32) heap.Ptr {
	return b.codec.NewUint8List(n)
}

// FreeSyncReturn releases a synchronous result
func (b *Bridge) FreeSyncReturn(sr dispatch.SyncReturn) {
	b.dispatch.FreeSyncReturn(sr)
}

/////////////////////////
// asynchronous calls  //
/////////////////////////

func (b *Bridge) WireRun(port post.Port) {
	b.dispatch.Async(context.Background(), port, api.OpRun)
}

func (b *Bridge) WirePassingComplexStructs(port post.Port, root heap.Ptr) {
	b.dispatch.Async(context.Background(), port, api.OpPassingComplexStructs, uint64(root))
}

func (b *Bridge) WireReturningStructsWithBoxedFields(port post.Port) {
	b.dispatch.Async(context.Background(), port, api.OpReturningStructsWithBoxedFields)
}

func (b *Bridge) WireInputArray(port post.Port, input heap.Ptr) {
	b.dispatch.Async(context.Background(), port, api.OpInputArray, uint64(input))
}

func (b *Bridge) WireOutputZeroCopyBuffer(port post.Port, n int32) {
	b.dispatch.Async(context.Background(), port, api.OpOutputZeroCopyBuffer, scalar(n))
}

func (b *Bridge) WireOutputVecU8(port post.Port, n int32) {
	b.dispatch.Async(context.Background(), port, api.OpOutputVecU8, scalar(n))
}

func (b *Bridge) WireInputVecOfObject(port post.Port, input heap.Ptr) {
	b.dispatch.Async(context.Background(), port, api.OpInputVecOfObject, uint64(input))
}

func (b *Bridge) WireOutputVecOfObject(port post.Port, n int32) {
	b.dispatch.Async(context.Background(), port, api.OpOutputVecOfObject, scalar(n))
}

func (b *Bridge) WireInputComplexStruct(port post.Port, input heap.Ptr) {
	b.dispatch.Async(context.Background(), port, api.OpInputComplexStruct, uint64(input))
}

func (b *Bridge) WireOutputComplexStruct(port post.Port, n int32) {
	b.dispatch.Async(context.Background(), port, api.OpOutputComplexStruct, scalar(n))
}

func (b *Bridge) WireDeliberatelyReturnError(port post.Port) {
	b.dispatch.Async(context.Background(), port, api.OpDeliberatelyReturnError)
}

func (b *Bridge) WireDeliberatelyPanic(port post.Port) {
	b.dispatch.Async(context.Background(), port, api.OpDeliberatelyPanic)
}

/////////////////////////
// synchronous calls   //
/////////////////////////

func (b *Bridge) SyncRun() dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpRun)
}

func (b *Bridge) SyncPassingComplexStructs(root heap.Ptr) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpPassingComplexStructs, uint64(root))
}

func (b *Bridge) SyncReturningStructsWithBoxedFields() dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpReturningStructsWithBoxedFields)
}

func (b *Bridge) SyncInputArray(input heap.Ptr) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpInputArray, uint64(input))
}

func (b *Bridge) SyncOutputZeroCopyBuffer(n int32) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpOutputZeroCopyBuffer, scalar(n))
}

func (b *Bridge) SyncOutputVecU8(n int32) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpOutputVecU8, scalar(n))
}

func (b *Bridge) SyncInputVecOfObject(input heap.Ptr) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpInputVecOfObject, uint64(input))
}

func (b *Bridge) SyncOutputVecOfObject(n int32) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpOutputVecOfObject, scalar(n))
}

func (b *Bridge) SyncInputComplexStruct(input heap.Ptr) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpInputComplexStruct, uint64(input))
}

func (b *Bridge) SyncOutputComplexStruct(n int32) dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpOutputComplexStruct, scalar(n))
}

func (b *Bridge) SyncDeliberatelyReturnError() dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpDeliberatelyReturnError)
}

func (b *Bridge) SyncDeliberatelyPanic() dispatch.SyncReturn {
	return b.dispatch.Sync(context.Background(), api.OpDeliberatelyPanic)
}

// scalar widens an i32 argument to a raw argument slot
func scalar(n int32) uint64 {
	return uint64(uint32(n))
}
