package envelope

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4/v4"
)

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}

func compressLZ4(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
		return nil, errors.Wrap(err, "envelope: lz4 options")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "envelope: lz4 compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "envelope: lz4 compress")
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	out, err := io.ReadAll(newCappedReader(lz4.NewReader(bytes.NewReader(data))))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "lz4"), ErrCorruptStream)
	}
	return out, nil
}

// cappedReader fails once more than maxDecodedSize bytes come out of r.
type cappedReader struct {
	r    io.Reader
	left int
}

func newCappedReader(r io.Reader) *cappedReader {
	return &cappedReader{r: r, left: maxDecodedSize}
}

func (c *cappedReader) Read(b []byte) (int, error) {
	if c.left < 0 {
		return 0, c.overflow()
	}
	n, err := c.r.Read(b)
	if n > c.left {
		n, c.left = c.left, -1
		return n, c.overflow()
	}
	c.left -= n
	return n, err
}

func (c *cappedReader) overflow() error {
	return errors.Wrapf(ErrCorruptStream, "frame expands past %d bytes", maxDecodedSize)
}
