package byml

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Reader provides bounds-checked random access to a byte slice in a fixed byte order.
// It tracks the first error. Subsequent reads become no-ops that return zero values,
// so a caller can issue a run of reads and check Err once.
type Reader struct {
	b     []byte
	n     int // cursor for the sequential helpers
	err   error
	order binary.ByteOrder
}

// NewReader creates a Reader over b. The slice is never modified.
func NewReader(b []byte, order binary.ByteOrder) *Reader {
	if order == nil {
		order = Order
	}
	return &Reader{b: b, order: order}
}

// WithByteOrder allows setting a custom byte order and returns
// the configured for chaining.
func (r *Reader) WithByteOrder(order binary.ByteOrder) *Reader {
	r.order = order
	return r
}

func (r *Reader) Order() binary.ByteOrder { return r.order }
func (r *Reader) Size() int               { return len(r.b) }
func (r *Reader) Pos() int                { return r.n }
func (r *Reader) Err() error              { return r.err }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Seek moves the sequential cursor to an absolute offset.
func (r *Reader) Seek(off int) {
	if r.err != nil {
		return
	}
	if off < 0 || off > len(r.b) {
		r.setError(errors.Wrapf(ErrOutOfBounds, "seek to %d in %d bytes", off, len(r.b)))
		return
	}
	r.n = off
}

// Skip advances the sequential cursor by n bytes.
func (r *Reader) Skip(n int) { r.Seek(r.n + n) }

// Align skips padding until the cursor is a multiple of n.
func (r *Reader) Align(n int) {
	if n > 1 {
		r.Seek(Roundup(r.n, n))
	}
}

// window returns b[off:off+n] or latches ErrOutOfBounds.
func (r *Reader) window(off, n int) []byte {
	if r.err != nil {
		return nil
	}
	if off < 0 || n < 0 || off > len(r.b)-n {
		r.setError(errors.Wrapf(ErrOutOfBounds, "read of %d bytes at 0x%x in %d bytes", n, off, len(r.b)))
		return nil
	}
	return r.b[off : off+n]
}

// --- Random access ---

func (r *Reader) Uint8At(off int) uint8 {
	if buf := r.window(off, 1); buf != nil {
		return buf[0]
	}
	return 0
}

func (r *Reader) Uint16At(off int) uint16 {
	if buf := r.window(off, 2); buf != nil {
		return r.order.Uint16(buf)
	}
	return 0
}

func (r *Reader) Uint24At(off int) uint32 {
	if buf := r.window(off, 3); buf != nil {
		return uint24(r.order, buf)
	}
	return 0
}

func (r *Reader) Uint32At(off int) uint32 {
	if buf := r.window(off, 4); buf != nil {
		return r.order.Uint32(buf)
	}
	return 0
}

func (r *Reader) Uint64At(off int) uint64 {
	if buf := r.window(off, 8); buf != nil {
		return r.order.Uint64(buf)
	}
	return 0
}

func (r *Reader) Int32At(off int) int32     { return int32(r.Uint32At(off)) }
func (r *Reader) Int64At(off int) int64     { return int64(r.Uint64At(off)) }
func (r *Reader) Float32At(off int) float32 { return math.Float32frombits(r.Uint32At(off)) }
func (r *Reader) Float64At(off int) float64 { return math.Float64frombits(r.Uint64At(off)) }

// BytesAt returns a view of n bytes at off. The result aliases the input.
func (r *Reader) BytesAt(off, n int) []byte { return r.window(off, n) }

// CStringAt returns the bytes from off up to, not including, the first NUL
// before limit. A missing terminator latches ErrOutOfBounds.
func (r *Reader) CStringAt(off, limit int) string {
	if limit > len(r.b) {
		limit = len(r.b)
	}
	buf := r.window(off, limit-off)
	if buf == nil {
		return ""
	}
	i := bytes.IndexByte(buf, 0)
	if i < 0 {
		r.setError(errors.Wrapf(ErrOutOfBounds, "unterminated string at 0x%x", off))
		return ""
	}
	return string(buf[:i])
}

// --- Sequential reads ---

func (r *Reader) ReadUint8() uint8 {
	v := r.Uint8At(r.n)
	r.advance(1)
	return v
}

func (r *Reader) ReadUint16() uint16 {
	v := r.Uint16At(r.n)
	r.advance(2)
	return v
}

func (r *Reader) ReadUint24() uint32 {
	v := r.Uint24At(r.n)
	r.advance(3)
	return v
}

func (r *Reader) ReadUint32() uint32 {
	v := r.Uint32At(r.n)
	r.advance(4)
	return v
}

func (r *Reader) ReadUint64() uint64 {
	v := r.Uint64At(r.n)
	r.advance(8)
	return v
}

func (r *Reader) ReadBytes(n int) []byte {
	v := r.BytesAt(r.n, n)
	r.advance(n)
	return v
}

func (r *Reader) advance(n int) {
	if r.err == nil {
		r.n += n
	}
}
