package byml

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Writer is a growable in-memory buffer that simplifies writing binary data.
// Sequential writes append; PutUint32At and friends patch bytes that were
// already written, which is how forward offsets get filled in.
// It tracks the first error that occurs and turns later writes into no-ops.
type Writer struct {
	b     []byte
	err   error
	order binary.ByteOrder
}

// NewWriter creates a Writer with an initial capacity hint.
func NewWriter(order binary.ByteOrder, size int) *Writer {
	if order == nil {
		order = Order
	}
	return &Writer{b: make([]byte, 0, size), order: order}
}

// WithByteOrder allows setting a custom byte order and returns
// the configured for chaining.
func (w *Writer) WithByteOrder(order binary.ByteOrder) *Writer {
	w.order = order
	return w
}

func (w *Writer) Order() binary.ByteOrder { return w.order }
func (w *Writer) Len() int                { return len(w.b) }
func (w *Writer) Err() error              { return w.err }

// Bytes returns the written data. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.b }

// Result returns the written data, or nil and the first error.
func (w *Writer) Result() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.b, nil
}

// setError records the first non-nil error.
func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(p []byte) {
	if w.err != nil {
		return
	}
	w.b = append(w.b, p...)
}

// WriteCString writes s followed by a NUL terminator.
func (w *Writer) WriteCString(s string) {
	if w.err != nil {
		return
	}
	w.b = append(w.b, s...)
	w.b = append(w.b, 0)
}

// WriteZeros writes n zero bytes, often for padding.
func (w *Writer) WriteZeros(n int) {
	if w.err != nil || n <= 0 {
		return
	}
	for n > zeroChunk {
		w.b = append(w.b, zeros[:]...)
		n -= zeroChunk
	}
	w.b = append(w.b, zeros[:n]...)
}

// Align pads with zero bytes up to the next multiple of n.
func (w *Writer) Align(n int) {
	if n > 1 {
		w.WriteZeros(Roundup(len(w.b), n) - len(w.b))
	}
}

// --- Primitive Write Operations ---

func (w *Writer) WriteUint8(v uint8) {
	if w.err != nil {
		return
	}
	w.b = append(w.b, v)
}

func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	var buf [2]byte
	w.order.PutUint16(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *Writer) WriteUint24(v uint32) {
	if w.err != nil {
		return
	}
	if v > maxCount {
		w.setError(errors.Wrapf(ErrTooManyEntries, "%d does not fit in 24 bits", v))
		return
	}
	var buf [3]byte
	putUint24(w.order, buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	var buf [4]byte
	w.order.PutUint32(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	var buf [8]byte
	w.order.PutUint64(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *Writer) WriteInt32(v int32)     { w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64)     { w.WriteUint64(uint64(v)) }
func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// --- Back-patching ---

// PutUint32At overwrites four already written bytes at pos.
// Patching outside the written region means the layout bookkeeping is broken.
func (w *Writer) PutUint32At(pos int, v uint32) {
	if w.err != nil {
		return
	}
	if pos < 0 || pos > len(w.b)-4 {
		w.setError(errors.Mark(
			errors.AssertionFailedf("patch of 4 bytes at 0x%x outside %d written bytes", pos, len(w.b)),
			ErrBufferOverflow))
		return
	}
	w.order.PutUint32(w.b[pos:], v)
}
