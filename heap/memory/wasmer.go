//go:build wasmer
// +build wasmer

package memory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/wasmerio/wasmer-go/wasmer"
)

func init() {
	Register("wasmer", NewWasmer)
}

// Wasmer is a Memory exported by a wasmer instance
type Wasmer struct {
	inst *wasmer.Instance
	mem  *wasmer.Memory
}

// NewWasmer instantiates a memory-only module with wasmer
func NewWasmer(_ context.Context, conf Config) (Memory, error) {
	store := wasmer.NewStore(wasmer.NewEngine())

	mod, err := wasmer.NewModule(store, memoryModule(conf.InitialPages, conf.MaxPages))
	if err != nil {
		return nil, errors.Wrap(err, "failed to NewModule")
	}

	inst, err := wasmer.NewInstance(mod, wasmer.NewImportObject())
	if err != nil {
		return nil, errors.Wrap(err, "failed to NewInstance")
	}

	mem, err := inst.Exports.GetMemory("memory")
	if err != nil || mem == nil {
		inst.Close()
		return nil, errors.New("module did not export memory")
	}

	w := &Wasmer{
		inst: inst,
		mem:  mem,
	}

	return w, nil
}

func (w *Wasmer) Size() uint32 {
	return uint32(w.mem.DataSize())
}

func (w *Wasmer) Grow(deltaPages uint32) (uint32, bool) {
	prev := uint32(w.mem.DataSize() / PageSize)

	return prev, w.mem.Grow(wasmer.Pages(deltaPages))
}

func (w *Wasmer) Read(offset, byteCount uint32) ([]byte, bool) {
	data := w.mem.Data()

	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(data)) {
		return nil, false
	}

	return data[offset:end:end], true
}

func (w *Wasmer) Close() error {
	w.inst.Close()
	return nil
}
