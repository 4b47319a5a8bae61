package byml

import (
	"encoding"
	"encoding/binary"
	"io"

	"github.com/oy3o/byml/envelope"
)

// Marshaler defines the methods for encoding an object into a byte stream.
type Marshaler interface {
	encoding.BinaryMarshaler // Method: MarshalBinary() ([]byte, error)
	io.WriterTo              // Method: WriteTo(writer io.Writer) (int64, error)
}

// Unmarshaler defines the methods for decoding a byte stream into an object.
type Unmarshaler interface {
	encoding.BinaryUnmarshaler // Method: UnmarshalBinary(data []byte) error
	io.ReaderFrom              // Method: ReadFrom(r io.Reader) (int64, error)
}

// Codec aggregates all binary serialization and deserialization interfaces.
type Codec interface {
	Marshaler
	Unmarshaler
}

// Document is a tree together with the layout it is stored in, so a file
// can be read, edited and written back in its original version, byte order
// and compression envelope. A zero Version or nil Order takes the
// Encoder defaults.
type Document struct {
	Root     *Node
	Version  uint16
	Order    binary.ByteOrder
	Envelope envelope.Kind

	// Level is the compression effort used when Envelope is not None.
	Level int

	// Lenient is passed to the decoder, see DecodeOptions.
	Lenient bool
}

var _ Codec = (*Document)(nil)

// MarshalBinary encodes the document and wraps it in its envelope.
func (d *Document) MarshalBinary() ([]byte, error) {
	data, err := Encode(d.Root, WithVersion(d.Version), WithByteOrder(d.Order))
	if err != nil {
		return nil, err
	}
	if d.Envelope == envelope.None {
		return data, nil
	}
	return envelope.Wrap(data, d.Envelope, envelope.Options{Level: d.Level})
}

// UnmarshalBinary unwraps any envelope and decodes the document, recording
// the layout it found.
func (d *Document) UnmarshalBinary(data []byte) error {
	raw, kind, err := envelope.Unwrap(data)
	if err != nil {
		return err
	}
	h, err := DecodeHeader(raw)
	if err != nil {
		return err
	}
	root, err := Decode(raw, WithLenientMaps(d.Lenient))
	if err != nil {
		return err
	}
	d.Root = root
	d.Version = h.Version
	d.Order = h.ByteOrder()
	d.Envelope = kind
	return nil
}

// WriteTo implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return WriteToGeneric(d, w)
}

// ReadFrom implements io.ReaderFrom. It reads r to the end.
func (d *Document) ReadFrom(r io.Reader) (int64, error) {
	return ReadFromGeneric(d, r)
}
