// Package yaz0 implements the Yaz0 envelope, a byte oriented LZ77 variant
// used to store game archives and documents compressed on disk.
//
// An envelope is a 16 byte header followed by groups of tokens. Each group
// starts with a flag byte read from the most significant bit down: a set bit
// is one literal byte, a clear bit is a back-reference of two or three bytes.
package yaz0

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

var Magic = [4]byte{'Y', 'a', 'z', '0'}

const (
	HeaderSize = 16

	// MaxDistance is the furthest a back-reference can reach.
	MaxDistance = 0x1000
	// MinMatch and MaxMatch bound the length of a back-reference.
	MinMatch = 3
	MaxMatch = 0xFF + 0x12

	// maxExpansion bounds the decompressed size a single source byte can produce.
	maxExpansion = MaxMatch
)

// Header is the fixed record at the start of an envelope. All fields are big endian.
type Header struct {
	Magic [4]byte
	Size  uint32
	// Alignment is a hint for the buffer the data is decompressed into. Zero when unset.
	Alignment uint32
	Reserved  uint32
}

// IsCompressed reports whether data starts with the Yaz0 magic.
func IsCompressed(data []byte) bool {
	return len(data) >= len(Magic) && bytes.Equal(data[:len(Magic)], Magic[:])
}

// ReadHeader decodes and validates the envelope header.
func ReadHeader(data []byte) (Header, error) {
	var h Header
	if !IsCompressed(data) {
		return h, ErrInvalidMagic
	}
	if _, err := binary.Decode(data, binary.BigEndian, &h); err != nil {
		return h, errors.Wrapf(ErrCorruptStream, "header of %d bytes", len(data))
	}
	return h, nil
}

func (h *Header) appendTo(b []byte) []byte {
	b = append(b, h.Magic[:]...)
	b = binary.BigEndian.AppendUint32(b, h.Size)
	b = binary.BigEndian.AppendUint32(b, h.Alignment)
	b = binary.BigEndian.AppendUint32(b, h.Reserved)
	return b
}
