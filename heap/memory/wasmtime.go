//go:build wasmtime
// +build wasmtime

package memory

import (
	"context"

	"github.com/bytecodealliance/wasmtime-go"
	"github.com/pkg/errors"
)

func init() {
	Register("wasmtime", NewWasmtime)
}

// Wasmtime is a Memory exported by a wasmtime instance
type Wasmtime struct {
	mem   *wasmtime.Memory
	store *wasmtime.Store
}

// NewWasmtime instantiates a memory-only module with wasmtime
func NewWasmtime(_ context.Context, conf Config) (Memory, error) {
	engine := wasmtime.NewEngine()

	mod, err := wasmtime.NewModule(engine, memoryModule(conf.InitialPages, conf.MaxPages))
	if err != nil {
		return nil, errors.Wrap(err, "failed to NewModule")
	}

	store := wasmtime.NewStore(engine)

	inst, err := wasmtime.NewInstance(store, mod, []wasmtime.AsExtern{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to NewInstance")
	}

	export := inst.GetExport(store, "memory")
	if export == nil || export.Memory() == nil {
		return nil, errors.New("module did not export memory")
	}

	w := &Wasmtime{
		mem:   export.Memory(),
		store: store,
	}

	return w, nil
}

func (w *Wasmtime) Size() uint32 {
	return uint32(w.mem.DataSize(w.store))
}

func (w *Wasmtime) Grow(deltaPages uint32) (uint32, bool) {
	prev, err := w.mem.Grow(w.store, uint64(deltaPages))
	if err != nil {
		return uint32(w.mem.Size(w.store)), false
	}

	return uint32(prev), true
}

func (w *Wasmtime) Read(offset, byteCount uint32) ([]byte, bool) {
	data := w.mem.UnsafeData(w.store)

	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(data)) {
		return nil, false
	}

	return data[offset:end:end], true
}

// Close is a no-op, wasmtime relies on the Go garbage collector to release cgo allocations
func (w *Wasmtime) Close() error {
	return nil
}
