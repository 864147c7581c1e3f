// Package dispatch routes calls to operations in two variants sharing one
// operation table: Sync returns a SyncReturn envelope the caller must release,
// Async runs the operation on a worker pool and posts the outcome to a port.
//
// Arguments are taken (decoded and released) on the calling goroutine when the
// call is made, for both variants.
package dispatch

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/suborbital/e2bridge/foundation/scheduler"
	"github.com/suborbital/e2bridge/foundation/tracing"
	"github.com/suborbital/e2bridge/marshal"
	"github.com/suborbital/e2bridge/post"
)

// ErrUnknownOperation is returned for calls to an unregistered operation
var ErrUnknownOperation = errors.New("dispatch: unknown operation")

// TakeFunc decodes an operation's arguments
type TakeFunc func(in *Input) (interface{}, error)

// ExecFunc runs an operation on decoded arguments
type ExecFunc func(ctx context.Context, args interface{}) (interface{}, error)

// Operation is one entry in the operation table.
// Take may be nil for operations without arguments.
type Operation struct {
	Name string
	Take TakeFunc
	Exec ExecFunc
}

// Dispatcher holds the operation table
type Dispatcher struct {
	marshal  *marshal.Marshaler
	registry *post.Registry
	sched    *scheduler.Scheduler

	workerOpts []scheduler.Option
	onFault    FaultHandler

	ops  map[string]Operation
	lock sync.RWMutex

	log zerolog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// UseScheduler sets the scheduler asynchronous calls run on
func UseScheduler(s *scheduler.Scheduler) Option {
	return func(d *Dispatcher) {
		d.sched = s
	}
}

// UseWorkerOptions sets the options every operation's worker is registered with
func UseWorkerOptions(opts ...scheduler.Option) Option {
	return func(d *Dispatcher) {
		d.workerOpts = opts
	}
}

// UseFaultHandler replaces RepanicFault
func UseFaultHandler(h FaultHandler) Option {
	return func(d *Dispatcher) {
		d.onFault = h
	}
}

// UseLogger sets the dispatcher's logger
func UseLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// New creates a Dispatcher
func New(m *marshal.Marshaler, registry *post.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		marshal:  m,
		registry: registry,
		onFault:  RepanicFault,
		ops:      map[string]Operation{},
		log: zerolog.New(os.Stderr).With().
			Timestamp().
			Str("component", "dispatch").
			Logger(),
	}

	for _, o := range opts {
		o(d)
	}

	if d.sched == nil {
		d.sched = scheduler.NewWithLogger(d.log)
	}

	return d
}

// Register adds an operation to the table and starts its worker
func (d *Dispatcher) Register(op Operation) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.ops[op.Name] = op

	d.sched.Register(op.Name, &opRunner{op: op, onFault: d.onFault, log: d.log}, d.workerOpts...)
}

// Operations returns the registered operation names, sorted
func (d *Dispatcher) Operations() []string {
	d.lock.RLock()
	defer d.lock.RUnlock()

	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Marshaler returns the marshaler arguments and payloads go through
func (d *Dispatcher) Marshaler() *marshal.Marshaler {
	return d.marshal
}

// Sync runs an operation on the calling goroutine.
// Failures are reported in the envelope. A panicking operation is not recovered.
func (d *Dispatcher) Sync(ctx context.Context, name string, args ...uint64) SyncReturn {
	ctx, span := tracing.Tracer.Start(ctx, "dispatch.Sync", trace.WithAttributes(
		attribute.String("op", name),
	))
	defer span.End()

	result, err := d.call(ctx, name, args)
	if err != nil {
		span.RecordError(err)
	}

	return d.envelope(result, err)
}

// Async takes the arguments, schedules the operation and returns immediately.
// The outcome is posted to port exactly once, unless the operation faults.
// Calling Async before a post function is registered panics.
func (d *Dispatcher) Async(ctx context.Context, port post.Port, name string, args ...uint64) {
	if !d.registry.Registered() {
		panic(post.ErrNotRegistered)
	}

	ctx, span := tracing.Tracer.Start(ctx, "dispatch.Async", trace.WithAttributes(
		attribute.String("op", name),
		attribute.Int64("port", int64(port)),
	))
	defer span.End()

	ll := d.log.With().Str("op", name).Int64("port", int64(port)).Logger()

	op, value, err := d.take(name, args)
	if err != nil {
		span.RecordError(err)

		go d.complete(port, nil, err)
		return
	}

	job := scheduler.NewJob(op.Name, value).WithContext(ctx)

	d.sched.Do(job).ThenDo(func(res interface{}, err error) {
		var fault *Fault
		if errors.As(err, &fault) {
			ll.Error().Str("fault", fault.Error()).Msg("operation faulted, nothing will be posted")
			return
		}

		d.complete(port, res, err)
	})
}

// Metrics returns the state of every operation's worker pool
func (d *Dispatcher) Metrics() scheduler.ScalerMetrics {
	return d.sched.Metrics()
}

// Close stops the worker pools. Asynchronous calls still queued are posted as failures.
func (d *Dispatcher) Close() error {
	if err := d.sched.Stop(); err != nil {
		return errors.Wrap(err, "failed to Stop scheduler")
	}

	return nil
}

// FreeSyncReturn releases an envelope's payload buffer
func (d *Dispatcher) FreeSyncReturn(sr SyncReturn) {
	d.marshal.Codec().Heap().Free(sr.Ptr)
}

// ReadSyncReturn decodes an envelope's payload into v, or returns the
// failure it carries. The envelope is not released.
func (d *Dispatcher) ReadSyncReturn(sr SyncReturn, v interface{}) error {
	if !sr.Success {
		failure := ErrorPayload{}
		if err := d.marshal.ReadPayload(sr.Ptr, sr.Len, &failure); err != nil {
			return errors.Wrap(err, "failed to ReadPayload")
		}

		return failure
	}

	return d.marshal.ReadPayload(sr.Ptr, sr.Len, v)
}

func (d *Dispatcher) call(ctx context.Context, name string, args []uint64) (interface{}, error) {
	op, value, err := d.take(name, args)
	if err != nil {
		return nil, err
	}

	return op.Exec(ctx, value)
}

// take looks an operation up and decodes its arguments, releasing them
func (d *Dispatcher) take(name string, args []uint64) (Operation, interface{}, error) {
	d.lock.RLock()
	op, exists := d.ops[name]
	d.lock.RUnlock()

	if !exists {
		return Operation{}, nil, errors.Wrap(ErrUnknownOperation, name)
	}

	if op.Take == nil {
		return op, nil, nil
	}

	value, err := op.Take(newInput(d.marshal, args))
	if err != nil {
		return op, nil, errors.Wrapf(err, "failed to take %s arguments", name)
	}

	return op, value, nil
}

// payload encodes a call's outcome
func payload(result interface{}, err error) (bool, []byte) {
	if err == nil {
		data, encErr := marshal.EncodePayload(result)
		if encErr == nil {
			return true, data
		}

		err = errors.Wrap(encErr, "failed to encode result")
	}

	data, encErr := marshal.EncodePayload(ErrorPayload{Message: err.Error()})
	if encErr != nil {
		// an ErrorPayload always encodes
		panic(encErr)
	}

	return false, data
}

func (d *Dispatcher) envelope(result interface{}, err error) SyncReturn {
	success, data := payload(result, err)

	return SyncReturn{
		Ptr:     d.marshal.PutRaw(data),
		Len:     int32(len(data)),
		Success: success,
	}
}

func (d *Dispatcher) complete(port post.Port, result interface{}, err error) {
	success, data := payload(result, err)

	if !success {
		d.log.Debug().Int64("port", int64(port)).Msg("posting failure")
	}

	d.registry.Post(port, &post.Message{Success: success, Payload: data})
}

// opRunner adapts an Operation to the scheduler
type opRunner struct {
	op      Operation
	onFault FaultHandler
	log     zerolog.Logger
}

// Run runs the operation, handing a panic to the fault handler
func (o *opRunner) Run(ctx context.Context, job scheduler.Job) (result interface{}, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			o.log.Error().Str("op", o.op.Name).Interface("recovered", recovered).Msg("operation panicked")

			o.onFault(o.op.Name, recovered)

			result, err = nil, &Fault{Op: o.op.Name, Recovered: recovered}
		}
	}()

	return o.op.Exec(ctx, job.Data())
}

func (o *opRunner) OnChange(_ scheduler.ChangeEvent) error {
	return nil
}
