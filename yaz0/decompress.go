package yaz0

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Decompress returns the data held by the envelope in src.
func Decompress(src []byte) ([]byte, error) {
	h, err := ReadHeader(src)
	if err != nil {
		return nil, err
	}
	if err := checkSize(h, src); err != nil {
		return nil, err
	}
	dst := make([]byte, h.Size)
	if err := decode(dst, src[HeaderSize:]); err != nil {
		return nil, err
	}
	return dst, nil
}

// DecompressInto decompresses src into dst and returns the number of bytes
// written. dst must hold at least the size declared by the header.
func DecompressInto(dst, src []byte) (int, error) {
	h, err := ReadHeader(src)
	if err != nil {
		return 0, err
	}
	if err := checkSize(h, src); err != nil {
		return 0, err
	}
	if len(dst) < int(h.Size) {
		return 0, errors.Wrapf(io.ErrShortBuffer, "yaz0: need %d bytes, have %d", h.Size, len(dst))
	}
	if err := decode(dst[:h.Size], src[HeaderSize:]); err != nil {
		return 0, err
	}
	return int(h.Size), nil
}

// checkSize rejects declared sizes the payload could never produce, so a
// forged header cannot force a huge allocation.
func checkSize(h Header, src []byte) error {
	if uint64(h.Size) > uint64(len(src)-HeaderSize)*maxExpansion {
		return errors.Wrapf(ErrCorruptStream, "declared size %d from %d payload bytes", h.Size, len(src)-HeaderSize)
	}
	return nil
}

// decode fills dst exactly from the token stream in src.
func decode(dst, src []byte) error {
	var (
		d, s  int
		flags byte
		bits  int
	)
	for d < len(dst) {
		if bits == 0 {
			if s >= len(src) {
				return errors.Wrapf(ErrCorruptStream, "stream ends at output %d of %d", d, len(dst))
			}
			flags = src[s]
			s++
			bits = 8
		}
		bits--
		if flags&(1<<bits) != 0 {
			if s >= len(src) {
				return errors.Wrapf(ErrCorruptStream, "literal missing at output %d", d)
			}
			dst[d] = src[s]
			s++
			d++
			continue
		}

		if s+1 >= len(src) {
			return errors.Wrapf(ErrCorruptStream, "back-reference truncated at output %d", d)
		}
		b1, b2 := src[s], src[s+1]
		s += 2
		dist := (int(b1&0x0F)<<8 | int(b2)) + 1
		n := int(b1 >> 4)
		if n == 0 {
			if s >= len(src) {
				return errors.Wrapf(ErrCorruptStream, "back-reference length missing at output %d", d)
			}
			n = int(src[s]) + 0x12
			s++
		} else {
			n += 2
		}
		from := d - dist
		if from < 0 {
			return errors.Wrapf(ErrCorruptStream, "back-reference %d before start at output %d", dist, d)
		}
		if n > len(dst)-d {
			return errors.Wrapf(ErrCorruptStream, "back-reference of %d overruns output at %d of %d", n, d, len(dst))
		}
		// Source and destination may overlap; copy forward one byte at a time.
		for i := 0; i < n; i++ {
			dst[d+i] = dst[from+i]
		}
		d += n
	}
	return nil
}
