package marshal

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/suborbital/e2bridge/heap"
)

// payloads are encoded canonically so equal values produce equal bytes
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("marshal: failed to create CBOR enc mode: %v", err))
	}

	encMode = em
}

// EncodePayload serializes a structured result
func EncodePayload(v interface{}) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to Marshal")
	}

	return data, nil
}

// DecodePayload deserializes a structured result into v
func DecodePayload(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "failed to Unmarshal")
	}

	return nil
}

// PutPayload serializes v into a freshly allocated buffer owned by the caller
func (m *Marshaler) PutPayload(v interface{}) (heap.Ptr, int32, error) {
	data, err := EncodePayload(v)
	if err != nil {
		return heap.Null, 0, err
	}

	return m.PutRaw(data), length(len(data)), nil
}

// PutRaw copies data into a freshly allocated buffer owned by the caller
func (m *Marshaler) PutRaw(data []byte) heap.Ptr {
	h := m.codec.Heap()

	ptr := h.Alloc(uint32(length(len(data))), 1)
	h.Write(ptr, data)

	return ptr
}

// ReadPayload deserializes the payload buffer at ptr into v without releasing it
func (m *Marshaler) ReadPayload(ptr heap.Ptr, n int32, v interface{}) error {
	if ptr == heap.Null {
		return errors.Wrap(ErrNullPointer, "payload")
	}

	if n < 0 {
		return errors.Errorf("payload of length %d", n)
	}

	return DecodePayload(m.codec.Heap().Read(ptr, uint32(n)), v)
}
