package memory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// DefaultBackend is the backend used when none is configured
const DefaultBackend = "wazero"

func init() {
	Register(DefaultBackend, NewWazero)
}

// Wazero is a Memory exported by a wazero module instance
type Wazero struct {
	api.Memory

	runtime wazero.Runtime
	ctx     context.Context
}

// NewWazero instantiates a memory-only module in a fresh wazero runtime
func NewWazero(ctx context.Context, conf Config) (Memory, error) {
	conf = conf.normalize()

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(conf.MaxPages))

	mod, err := r.Instantiate(ctx, memoryModule(conf.InitialPages, conf.MaxPages))
	if err != nil {
		r.Close(ctx)
		return nil, errors.Wrap(err, "failed to Instantiate")
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		r.Close(ctx)
		return nil, errors.New("module did not export memory")
	}

	w := &Wazero{
		Memory:  mem,
		runtime: r,
		ctx:     ctx,
	}

	return w, nil
}

// Close closes the underlying wazero runtime
func (w *Wazero) Close() error {
	return w.runtime.Close(w.ctx)
}
