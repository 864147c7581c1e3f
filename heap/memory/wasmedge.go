//go:build wasmedge
// +build wasmedge

// we compile-exclude wasmedge by default as tests will fail unless WasmEdge is installed

package memory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/second-state/WasmEdge-go/wasmedge"
)

func init() {
	Register("wasmedge", NewWasmEdge)
}

// WasmEdge is a Memory exported by a WasmEdge VM's active module
type WasmEdge struct {
	vm  *wasmedge.VM
	mem *wasmedge.Memory
}

// NewWasmEdge instantiates a memory-only module in a WasmEdge VM
func NewWasmEdge(_ context.Context, conf Config) (Memory, error) {
	// Set not to print debug info
	wasmedge.SetLogErrorLevel()

	vm := wasmedge.NewVM()

	if err := vm.LoadWasmBuffer(memoryModule(conf.InitialPages, conf.MaxPages)); err != nil {
		vm.Release()
		return nil, errors.Wrap(err, "failed to LoadWasmBuffer")
	}

	if err := vm.Validate(); err != nil {
		vm.Release()
		return nil, errors.Wrap(err, "failed to Validate")
	}

	if err := vm.Instantiate(); err != nil {
		vm.Release()
		return nil, errors.Wrap(err, "failed to Instantiate")
	}

	mem := vm.GetActiveModule().FindMemory("memory")
	if mem == nil {
		vm.Release()
		return nil, errors.New("module did not export memory")
	}

	w := &WasmEdge{
		vm:  vm,
		mem: mem,
	}

	return w, nil
}

func (w *WasmEdge) Size() uint32 {
	return uint32(w.mem.GetPageSize()) * PageSize
}

func (w *WasmEdge) Grow(deltaPages uint32) (uint32, bool) {
	prev := uint32(w.mem.GetPageSize())

	if err := w.mem.GrowPage(uint(deltaPages)); err != nil {
		return prev, false
	}

	return prev, true
}

func (w *WasmEdge) Read(offset, byteCount uint32) ([]byte, bool) {
	if uint64(offset)+uint64(byteCount) > uint64(w.Size()) {
		return nil, false
	}

	data, err := w.mem.GetData(uint(offset), uint(byteCount))
	if err != nil {
		return nil, false
	}

	return data, true
}

func (w *WasmEdge) Close() error {
	w.vm.Release()
	return nil
}
