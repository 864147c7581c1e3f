// Package bridge assembles a heap, the wire codec, the dispatcher and the post
// registry into the flat table of entry points a host calls.
package bridge

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/suborbital/e2bridge/api"
	"github.com/suborbital/e2bridge/dispatch"
	"github.com/suborbital/e2bridge/foundation/scheduler"
	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/heap/memory"
	"github.com/suborbital/e2bridge/marshal"
	"github.com/suborbital/e2bridge/options"
	"github.com/suborbital/e2bridge/post"
	"github.com/suborbital/e2bridge/wire"
)

// Bridge is one instance of the call table
type Bridge struct {
	id string

	heap     heap.Heap
	closer   io.Closer
	codec    *wire.Codec
	marshal  *marshal.Marshaler
	registry *post.Registry
	dispatch *dispatch.Dispatcher

	onFault dispatch.FaultHandler

	log zerolog.Logger
}

// Option configures a Bridge
type Option func(*Bridge)

// WithHeap makes the bridge allocate in h instead of opening a linear memory
func WithHeap(h heap.Heap) Option {
	return func(b *Bridge) {
		b.heap = h
	}
}

// WithRegistry makes the bridge post through r instead of a private registry
func WithRegistry(r *post.Registry) Option {
	return func(b *Bridge) {
		b.registry = r
	}
}

// WithFaultHandler replaces dispatch.RepanicFault
func WithFaultHandler(h dispatch.FaultHandler) Option {
	return func(b *Bridge) {
		b.onFault = h
	}
}

// New creates a Bridge with every api operation registered
func New(opts *options.Options, with ...Option) (*Bridge, error) {
	b := &Bridge{
		id:      uuid.New().String(),
		onFault: dispatch.RepanicFault,
	}

	for _, w := range with {
		w(b)
	}

	b.log = opts.Logger().With().Str("bridgeID", b.id).Logger()

	if b.heap == nil {
		mem, err := memory.Open(context.Background(), opts.HeapBackend, opts.MemoryConfig())
		if err != nil {
			return nil, errors.Wrap(err, "failed to memory.Open")
		}

		linear := heap.NewLinear(mem)

		b.heap = linear
		b.closer = linear
	}

	if b.registry == nil {
		b.registry = post.NewRegistry(b.log.With().Str("component", "post").Logger())
	}

	b.codec = wire.NewCodec(b.heap)
	b.marshal = marshal.New(b.codec)

	b.dispatch = dispatch.New(b.marshal, b.registry,
		dispatch.UseLogger(b.log.With().Str("component", "dispatch").Logger()),
		dispatch.UseScheduler(scheduler.NewWithLogger(b.log.With().Str("component", "scheduler").Logger())),
		dispatch.UseWorkerOptions(opts.WorkerOptions()...),
		dispatch.UseFaultHandler(b.onFault),
	)

	for _, op := range api.Operations() {
		b.dispatch.Register(op)
	}

	b.log.Debug().Uint32("pointerSize", b.heap.PointerSize()).Msg("bridge ready")

	return b, nil
}

// ID returns the bridge's instance ID
func (b *Bridge) ID() string {
	return b.id
}

// Heap returns the heap wire values live in
func (b *Bridge) Heap() heap.Heap {
	return b.heap
}

// Marshaler returns the bridge's marshaler, used to produce arguments host-side
func (b *Bridge) Marshaler() *marshal.Marshaler {
	return b.marshal
}

// Dispatcher returns the bridge's dispatcher
func (b *Bridge) Dispatcher() *dispatch.Dispatcher {
	return b.dispatch
}

// Registry returns the registry completions are posted through
func (b *Bridge) Registry() *post.Registry {
	return b.registry
}

// Close stops the worker pools and releases the heap if the bridge opened it
func (b *Bridge) Close() error {
	if err := b.dispatch.Close(); err != nil {
		return errors.Wrap(err, "failed to Close dispatcher")
	}

	if b.closer == nil {
		return nil
	}

	if err := b.closer.Close(); err != nil {
		return errors.Wrap(err, "failed to Close heap")
	}

	return nil
}
