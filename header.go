package byml

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Magic values. The magic selects the byte order of everything after it.
var (
	MagicBigEndian    = [2]byte{'B', 'Y'}
	MagicLittleEndian = [2]byte{'Y', 'B'}
)

const (
	MinVersion = 1
	MaxVersion = 3

	// HeaderSize is the size of the fixed document header.
	HeaderSize = 16
)

// Header is the fixed record at the start of every document.
// An offset of zero means the table or root is absent.
type Header struct {
	Magic             [2]byte
	Version           uint16
	KeyTableOffset    uint32
	StringTableOffset uint32
	RootOffset        uint32
}

// ByteOrder returns the order selected by the magic, or nil for an unknown magic.
func (h *Header) ByteOrder() binary.ByteOrder {
	switch h.Magic {
	case MagicBigEndian:
		return BE
	case MagicLittleEndian:
		return LE
	}
	return nil
}

func newHeader(version uint16, order binary.ByteOrder) Header {
	h := Header{Magic: MagicLittleEndian, Version: version}
	if isBigEndian(order) {
		h.Magic = MagicBigEndian
	}
	return h
}

// MarshalBinary encodes the header in the order its magic selects.
func (h *Header) MarshalBinary() ([]byte, error) {
	order := h.ByteOrder()
	if order == nil {
		return nil, errors.Wrapf(ErrInvalidMagic, "%q", h.Magic[:])
	}
	c := Fixed[Header]{Payload: *h, Order: order}
	return c.MarshalBinary()
}

// DecodeHeader reads and validates the header of a document.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < 2 {
		return Header{}, errors.Wrapf(ErrOutOfBounds, "document of %d bytes has no magic", len(data))
	}
	var h Header
	copy(h.Magic[:], data)
	order := h.ByteOrder()
	if order == nil {
		return Header{}, errors.Wrapf(ErrInvalidMagic, "%q", data[:2])
	}
	c := Fixed[Header]{Order: order}
	if err := c.UnmarshalBinary(data); err != nil {
		return Header{}, err
	}
	h = c.Payload
	if h.Version < MinVersion || h.Version > MaxVersion {
		return Header{}, errors.Wrapf(ErrUnsupportedVersion, "version %d", h.Version)
	}
	return h, nil
}
