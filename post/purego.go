//go:build darwin || freebsd || linux || windows

package post

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// nativeMessage is the C view of a Message, laid out like WireSyncReturnStruct
type nativeMessage struct {
	ptr     unsafe.Pointer
	len     int32
	success bool
}

// FromFunctionPointer adapts a C function of type
// bool (*)(int64_t port, void *message) into a PostFunc.
// The callee receives a pointer to {uint8_t *ptr; int32_t len; bool success}
// and must copy whatever it keeps before returning.
func FromFunctionPointer(fn uintptr) PostFunc {
	if fn == 0 {
		panic(ErrNilPostFunc)
	}

	var call func(port int64, msg unsafe.Pointer) bool
	purego.RegisterFunc(&call, fn)

	return func(port Port, msg *Message) bool {
		var pinner runtime.Pinner
		defer pinner.Unpin()

		native := &nativeMessage{
			len:     int32(len(msg.Payload)),
			success: msg.Success,
		}

		if len(msg.Payload) > 0 {
			pinner.Pin(&msg.Payload[0])
			native.ptr = unsafe.Pointer(&msg.Payload[0])
		}

		pinner.Pin(native)

		return call(int64(port), unsafe.Pointer(native))
	}
}
