package dispatch

import (
	"github.com/suborbital/e2bridge/heap"
)

// SyncReturn is the result of a synchronous call. The payload buffer belongs
// to the caller until it is passed to FreeSyncReturn, exactly once.
type SyncReturn struct {
	Ptr     heap.Ptr
	Len     int32
	Success bool
}

// ErrorPayload is the payload of every failed call
type ErrorPayload struct {
	Message string `cbor:"message" json:"message"`
}

// Error returns the failure message
func (e ErrorPayload) Error() string {
	return e.Message
}
