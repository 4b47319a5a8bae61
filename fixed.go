package byml

import (
	"encoding/binary"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v4"
)

// sizeCache avoids the high performance cost of reflection in `binary.Size`
// on every call. Using a concurrent map makes it safe to share between goroutines.
var sizeCache = xsync.NewMap[reflect.Type, int]()

// Fixed encodes and decodes any struct `Payload` composed of fixed-size
// fields in an explicit byte order.
//
// Constraint: The `Payload` type MUST NOT contain variable-size fields like slices,
// maps, or strings, as this will cause `binary.Size` to fail.
type Fixed[Payload any] struct {
	Payload Payload
	Order   binary.ByteOrder
}

// Size returns the fixed size of the struct in bytes.
// The result is cached to avoid reflection overhead on subsequent calls.
func (c *Fixed[Payload]) Size() int {
	payloadType := reflect.TypeOf((*Payload)(nil)).Elem()
	if size, ok := sizeCache.Load(payloadType); ok {
		return size
	}
	size := binary.Size(&c.Payload)
	sizeCache.Store(payloadType, size)
	return size
}

func (c *Fixed[Payload]) order() binary.ByteOrder {
	if c.Order == nil {
		return Order
	}
	return c.Order
}

// MarshalBinary implements the standard `encoding.BinaryMarshaler` interface.
func (c *Fixed[Payload]) MarshalBinary() ([]byte, error) {
	buf := make([]byte, c.Size())
	if _, err := c.MarshalTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// MarshalTo marshals the struct into the provided slice `p`.
func (c *Fixed[Payload]) MarshalTo(p []byte) (int, error) {
	n, err := binary.Encode(p, c.order(), &c.Payload)
	if err != nil {
		// binary.Encode only fails on a short buffer.
		return n, errors.Mark(
			errors.AssertionFailedf("fixed record of %d bytes does not fit %d", c.Size(), len(p)),
			ErrBufferOverflow)
	}
	return n, nil
}

// UnmarshalBinary decodes the struct from the start of data. Bytes past the
// record belong to the enclosing document and are ignored.
func (c *Fixed[Payload]) UnmarshalBinary(data []byte) error {
	if _, err := binary.Decode(data, c.order(), &c.Payload); err != nil {
		// binary.Decode only fails when the data is truncated.
		return errors.Wrapf(ErrOutOfBounds, "fixed record of %d bytes in %d", c.Size(), len(data))
	}
	return nil
}
