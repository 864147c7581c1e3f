// Package memory provides the linear memories that back a heap.Linear.
//
// A linear memory is a contiguous, page-granular, zero-initialised byte range
// addressed by 32-bit offsets, the same model a Wasm module exports as its
// `memory`. The default backend instantiates a memory-only module in wazero;
// the wasmtime, wasmer and wasmedge backends are selected with build tags of
// the same name, and a plain Go slice is available for tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// PageSize is the size of one linear memory page
const PageSize = 65536

// MaxPages is the largest page count whose byte size fits in a uint32
const MaxPages = 65535

// ErrUnknownBackend is returned when a backend name has not been compiled in
var ErrUnknownBackend = errors.New("unknown memory backend")

// Memory is a growable linear memory. Read returns a view into the memory
// that is only valid until the next Grow.
type Memory interface {
	Size() uint32
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
	Read(offset, byteCount uint32) ([]byte, bool)
	Close() error
}

// Config describes the memory to be created by a backend
type Config struct {
	InitialPages uint32
	MaxPages     uint32
}

// Builder is a factory-style func that creates a Memory
type Builder func(ctx context.Context, conf Config) (Memory, error)

var (
	builders = map[string]Builder{}
	lock     sync.RWMutex
)

// Register makes a backend available to Open under the given name
func Register(name string, b Builder) {
	lock.Lock()
	defer lock.Unlock()

	builders[name] = b
}

// Backends returns the names of every compiled-in backend
func Backends() []string {
	lock.RLock()
	defer lock.RUnlock()

	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Open creates a Memory using the named backend
func Open(ctx context.Context, backend string, conf Config) (Memory, error) {
	lock.RLock()
	b, exists := builders[backend]
	lock.RUnlock()

	if !exists {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q (available: %v)", backend, Backends())
	}

	conf = conf.normalize()

	mem, err := b(ctx, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s memory", backend)
	}

	return mem, nil
}

func (c Config) normalize() Config {
	if c.InitialPages == 0 {
		c.InitialPages = 1
	}

	if c.MaxPages == 0 || c.MaxPages > MaxPages {
		c.MaxPages = MaxPages
	}

	if c.InitialPages > c.MaxPages {
		c.InitialPages = c.MaxPages
	}

	return c
}
