package command

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/suborbital/e2bridge/api"
	"github.com/suborbital/e2bridge/bridge"
	"github.com/suborbital/e2bridge/dispatch"
	"github.com/suborbital/e2bridge/foundation/scheduler"
	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/marshal"
	"github.com/suborbital/e2bridge/options"
	"github.com/suborbital/e2bridge/post"
)

// ErrLeaked is returned when allocations outlive an exercise run
var ErrLeaked = errors.New("heap has live allocations after the run")

// Report is the outcome of an exercise run
type Report struct {
	BridgeID    string       `json:"bridgeId"`
	Backend     string       `json:"backend"`
	PointerSize uint32       `json:"pointerSize"`
	Calls       []CallReport `json:"calls"`
	Faults      int64        `json:"faults"`
	Rejected    uint64       `json:"rejected"`
	Heap        heap.Stats   `json:"heap"`

	Workers scheduler.ScalerMetrics `json:"workers"`
}

// CallReport is the outcome of one call
type CallReport struct {
	Op       string `json:"op"`
	Mode     string `json:"mode"`
	Port     int64  `json:"port,omitempty"`
	Success  bool   `json:"success"`
	Panicked bool   `json:"panicked,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	modeSync  = "sync"
	modeAsync = "async"
)

// call drives one operation through both entry point variants.
// Inputs are built fresh on every invocation since the bridge takes them.
type call struct {
	op     string
	panics bool
	sync   func(b *bridge.Bridge) dispatch.SyncReturn
	async  func(b *bridge.Bridge, port post.Port)
}

func sampleTree(m *marshal.Marshaler) heap.Ptr {
	return m.PutTreeNode(marshal.TreeNode{
		Name: "root",
		Children: []marshal.TreeNode{
			{Name: "a"},
			{Name: "b", Children: []marshal.TreeNode{{Name: "c"}}},
		},
	})
}

func sampleSizes(m *marshal.Marshaler) heap.Ptr {
	return m.PutSizes([]marshal.Size{{Width: 1, Height: 2}, {Width: 3, Height: 4}})
}

func sampleBytes(m *marshal.Marshaler) heap.Ptr {
	return m.PutBytes([]byte{1, 2, 3, 4, 5})
}

func calls() []call {
	return []call{
		{
			op:    api.OpRun,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncRun() },
			async: func(b *bridge.Bridge, p post.Port) { b.WireRun(p) },
		},
		{
			op: api.OpPassingComplexStructs,
			sync: func(b *bridge.Bridge) dispatch.SyncReturn {
				return b.SyncPassingComplexStructs(sampleTree(b.Marshaler()))
			},
			async: func(b *bridge.Bridge, p post.Port) {
				b.WirePassingComplexStructs(p, sampleTree(b.Marshaler()))
			},
		},
		{
			op:    api.OpReturningStructsWithBoxedFields,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncReturningStructsWithBoxedFields() },
			async: func(b *bridge.Bridge, p post.Port) { b.WireReturningStructsWithBoxedFields(p) },
		},
		{
			op:    api.OpInputArray,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncInputArray(sampleBytes(b.Marshaler())) },
			async: func(b *bridge.Bridge, p post.Port) { b.WireInputArray(p, sampleBytes(b.Marshaler())) },
		},
		{
			op:    api.OpOutputZeroCopyBuffer,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncOutputZeroCopyBuffer(16) },
			async: func(b *bridge.Bridge, p post.Port) { b.WireOutputZeroCopyBuffer(p, 16) },
		},
		{
			op:    api.OpOutputVecU8,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncOutputVecU8(16) },
			async: func(b *bridge.Bridge, p post.Port) { b.WireOutputVecU8(p, 16) },
		},
		{
			op:    api.OpInputVecOfObject,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncInputVecOfObject(sampleSizes(b.Marshaler())) },
			async: func(b *bridge.Bridge, p post.Port) { b.WireInputVecOfObject(p, sampleSizes(b.Marshaler())) },
		},
		{
			op:    api.OpOutputVecOfObject,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncOutputVecOfObject(4) },
			async: func(b *bridge.Bridge, p post.Port) { b.WireOutputVecOfObject(p, 4) },
		},
		{
			op:    api.OpInputComplexStruct,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncInputComplexStruct(sampleTree(b.Marshaler())) },
			async: func(b *bridge.Bridge, p post.Port) { b.WireInputComplexStruct(p, sampleTree(b.Marshaler())) },
		},
		{
			op:    api.OpOutputComplexStruct,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncOutputComplexStruct(3) },
			async: func(b *bridge.Bridge, p post.Port) { b.WireOutputComplexStruct(p, 3) },
		},
		{
			op:    api.OpDeliberatelyReturnError,
			sync:  func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncDeliberatelyReturnError() },
			async: func(b *bridge.Bridge, p post.Port) { b.WireDeliberatelyReturnError(p) },
		},
		{
			op:     api.OpDeliberatelyPanic,
			panics: true,
			sync:   func(b *bridge.Bridge) dispatch.SyncReturn { return b.SyncDeliberatelyPanic() },
			async:  func(b *bridge.Bridge, p post.Port) { b.WireDeliberatelyPanic(p) },
		},
	}
}

// exerciser runs the call table against one bridge
type exerciser struct {
	b      *bridge.Bridge
	posts  chan portMessage
	faults int64
	log    zerolog.Logger
}

type portMessage struct {
	port post.Port
	msg  post.Message
}

// runExercise creates a bridge from opts, runs every call synchronously and
// then rounds times asynchronously, and reports the heap state afterwards.
func runExercise(ctx context.Context, opts *options.Options, rounds int, wait time.Duration) (*Report, error) {
	if rounds < 1 {
		return nil, errors.Errorf("rounds must be at least 1, got %d", rounds)
	}

	table := calls()

	e := &exerciser{
		posts: make(chan portMessage, len(table)*rounds),
		log:   opts.Logger(),
	}

	b, err := bridge.New(opts,
		bridge.WithRegistry(post.NewRegistry(e.log.With().Str("component", "post").Logger())),
		bridge.WithFaultHandler(e.onFault),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bridge.New")
	}

	defer b.Close()

	e.b = b

	b.StorePostFunc(func(port post.Port, msg *post.Message) bool {
		e.posts <- portMessage{port: port, msg: *msg}
		return true
	})

	report := &Report{
		BridgeID:    b.ID(),
		Backend:     opts.HeapBackend,
		PointerSize: b.Heap().PointerSize(),
	}

	for _, c := range table {
		report.Calls = append(report.Calls, e.runSync(c))
	}

	async, err := e.runAsync(ctx, table, rounds, wait)
	report.Calls = append(report.Calls, async...)

	report.Faults = atomic.LoadInt64(&e.faults)
	report.Rejected = b.Registry().Rejected()
	report.Workers = b.Dispatcher().Metrics()

	if stater, ok := b.Heap().(heap.Stater); ok {
		report.Heap = stater.Stats()
	}

	if err != nil {
		return report, err
	}

	if report.Heap.LiveAllocations != 0 {
		return report, errors.Wrapf(ErrLeaked, "%d allocations, %d bytes", report.Heap.LiveAllocations, report.Heap.LiveBytes)
	}

	return report, nil
}

func (e *exerciser) onFault(op string, recovered interface{}) {
	atomic.AddInt64(&e.faults, 1)

	e.log.Warn().Str("op", op).Interface("recovered", recovered).Msg("async operation faulted")
}

// runSync calls c's synchronous variant, reads and releases the envelope.
// Synchronous panics reach the caller, so they are recovered here.
func (e *exerciser) runSync(c call) (cr CallReport) {
	cr = CallReport{Op: c.op, Mode: modeSync}

	defer func() {
		if recovered := recover(); recovered != nil {
			cr.Panicked = true
			cr.Error = fmt.Sprint(recovered)
		}
	}()

	sr := c.sync(e.b)
	defer e.b.FreeSyncReturn(sr)

	var result interface{}
	if err := e.b.Dispatcher().ReadSyncReturn(sr, &result); err != nil {
		cr.Error = err.Error()
		return cr
	}

	cr.Success = true

	return cr
}

// runAsync fans every call out rounds times, each on its own port, and
// collects one completion per call. Calls that fault post nothing.
func (e *exerciser) runAsync(ctx context.Context, table []call, rounds int, wait time.Duration) ([]CallReport, error) {
	ops := map[post.Port]string{}
	expected := 0

	group, gctx := errgroup.WithContext(ctx)

	for r := 0; r < rounds; r++ {
		for i := range table {
			c := table[i]
			port := post.Port(r*len(table) + i + 1)

			ops[port] = c.op
			if !c.panics {
				expected++
			}

			group.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				c.async(e.b, port)

				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to dispatch")
	}

	reports := []CallReport{}
	seen := map[post.Port]bool{}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for len(reports) < expected {
		select {
		case pm := <-e.posts:
			if seen[pm.port] {
				return reports, errors.Errorf("port %d completed twice", pm.port)
			}

			seen[pm.port] = true

			cr := CallReport{Op: ops[pm.port], Mode: modeAsync, Port: int64(pm.port), Success: pm.msg.Success}

			if !pm.msg.Success {
				failure := dispatch.ErrorPayload{}
				if err := marshal.DecodePayload(pm.msg.Payload, &failure); err == nil {
					cr.Error = failure.Message
				}
			}

			reports = append(reports, cr)
		case <-ctx.Done():
			return reports, ctx.Err()
		case <-timer.C:
			return reports, errors.Errorf("received %d of %d completions before timeout", len(reports), expected)
		}
	}

	// faults are reported after the panicking job unwinds, give them a moment
	faulted := int64(len(ops) - expected)
	for atomic.LoadInt64(&e.faults) < faulted {
		select {
		case <-ctx.Done():
			return reports, ctx.Err()
		case <-timer.C:
			return reports, errors.Errorf("saw %d of %d faults before timeout", atomic.LoadInt64(&e.faults), faulted)
		case <-time.After(10 * time.Millisecond):
		}
	}

	return reports, nil
}
