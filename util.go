package byml

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

var (
	BE = binary.BigEndian
	LE = binary.LittleEndian
	// Order is the default byte order of newly encoded documents.
	Order binary.ByteOrder = LE
)

// Alignment is the boundary every container, table and out-of-line value starts on.
const Alignment = 4

// maxCount is the largest value a 24-bit count or key index can hold.
const maxCount = 1<<24 - 1

// zeroChunk is how much padding WriteZeros appends per step.
const zeroChunk = 4096

var zeros [zeroChunk]byte

// Roundup returns n advanced to the next multiple of align, a power of two.
// Container slots and out-of-line values start on Roundup(off, Alignment).
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// putUint24 stores the low 24 bits of v into b[:3] using order.
func putUint24(order binary.ByteOrder, b []byte, v uint32) {
	if order == binary.ByteOrder(BE) {
		b[0], b[1], b[2] = byte(v>>16), byte(v>>8), byte(v)
		return
	}
	b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
}

func uint24(order binary.ByteOrder, b []byte) uint32 {
	if order == binary.ByteOrder(BE) {
		return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func isBigEndian(order binary.ByteOrder) bool { return order == binary.ByteOrder(BE) }
