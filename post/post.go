// Package post holds the process-wide function asynchronous results are
// delivered through.
//
// The host registers a post function once during startup, before the first
// asynchronous call, and may replace it later. Every completion is then posted
// to the port the caller supplied. What a port means, and how the message
// reaches the host's event loop, is entirely up to the host.
package post

import (
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrNotRegistered and others are contract violations raised as panics
var (
	ErrNotRegistered = errors.New("post: no post function registered")
	ErrNilPostFunc   = errors.New("post: post function is nil")
)

// Port is the host's routing token for one completion
type Port int64

// Message is the result of one asynchronous call
type Message struct {
	Success bool
	Payload []byte
}

// PostFunc delivers a message to a port, reporting whether the host accepted it.
// The message is only valid for the duration of the call.
type PostFunc func(port Port, msg *Message) bool

// Registry is a post function slot.
// Store publishes the function so that any goroutine that later calls Post sees it.
type Registry struct {
	fn       atomic.Pointer[PostFunc]
	rejected atomic.Uint64
	log      zerolog.Logger
}

// Default is the registry used by the exported entry points
var Default = NewRegistry(zerolog.New(os.Stderr).With().
	Timestamp().
	Str("component", "post").
	Logger())

// NewRegistry creates an empty Registry
func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{
		log: log,
	}

	return r
}

// Store registers fn, replacing any previous registration
func (r *Registry) Store(fn PostFunc) {
	if fn == nil {
		panic(ErrNilPostFunc)
	}

	r.fn.Store(&fn)

	r.log.Debug().Msg("post function registered")
}

// Registered returns true once a post function has been stored
func (r *Registry) Registered() bool {
	return r.fn.Load() != nil
}

// Post delivers msg to port. Posting before a function is registered panics.
// A message the host rejects is logged and counted, never retried.
func (r *Registry) Post(port Port, msg *Message) bool {
	fn := r.fn.Load()
	if fn == nil {
		panic(ErrNotRegistered)
	}

	accepted := (*fn)(port, msg)
	if !accepted {
		r.rejected.Add(1)

		r.log.Warn().Int64("port", int64(port)).Bool("success", msg.Success).Msg("host rejected posted message")
	}

	return accepted
}

// Rejected returns the number of messages the host has rejected
func (r *Registry) Rejected() uint64 {
	return r.rejected.Load()
}

// Store registers fn on the Default registry
func Store(fn PostFunc) {
	Default.Store(fn)
}
