//go:build (darwin || linux) && (amd64 || arm64)

package post

import (
	"testing"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFromFunctionPointer(t *testing.T) {
	var gotPort int64
	var gotPayload []byte
	var gotSuccess bool

	cb := purego.NewCallback(func(port int64, msg unsafe.Pointer) uintptr {
		native := (*nativeMessage)(msg)

		gotPort = port
		gotSuccess = native.success
		gotPayload = append([]byte(nil), unsafe.Slice((*byte)(native.ptr), native.len)...)

		return 1
	})

	r := NewRegistry(zerolog.Nop())
	r.Store(FromFunctionPointer(cb))

	assert.True(t, r.Post(99, &Message{Success: true, Payload: []byte{1, 2, 3}}))
	assert.Equal(t, int64(99), gotPort)
	assert.True(t, gotSuccess)
	assert.Equal(t, []byte{1, 2, 3}, gotPayload)
}

func TestFromNullFunctionPointer(t *testing.T) {
	assert.Panics(t, func() { FromFunctionPointer(0) })
}
