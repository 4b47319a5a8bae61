package byml

import (
	"bytes"
	"encoding"
	"io"
)

// ReadFromGeneric implements io.ReaderFrom for whole-buffer formats such as
// Document. Offsets in a document may point anywhere, so r is drained into a
// pooled buffer first; v must copy whatever it keeps.
func ReadFromGeneric[T encoding.BinaryUnmarshaler](v T, r io.Reader) (int64, error) {
	buf := bytesBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bytesBufPool.Put(buf)

	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, err
	}
	return n, v.UnmarshalBinary(buf.Bytes())
}

// WriteToGeneric implements io.WriterTo by marshalling v in one piece, since
// the encoder back-patches offsets and cannot emit a document incrementally.
func WriteToGeneric[T encoding.BinaryMarshaler](v T, w io.Writer) (int64, error) {
	buf, err := v.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	if err != nil {
		return int64(n), err
	}
	if n < len(buf) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}
