package envelope

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/oy3o/byml/yaz0"
)

// peekReader lets the magic be inspected without consuming it.
type peekReader struct {
	r io.Reader
	b []byte
}

// peek returns up to the next n bytes without advancing. A short result
// comes with the error that cut it short.
func (p *peekReader) peek(n int) ([]byte, error) {
	if len(p.b) >= n {
		return p.b[:n], nil
	}
	i := len(p.b)
	p.b = append(p.b, make([]byte, n-i)...)

	var err error
	for i < n {
		read, er := p.r.Read(p.b[i:])
		i += read
		if er != nil {
			err = er
			break
		}
	}
	p.b = p.b[:i]
	return p.b, err
}

func (p *peekReader) Read(b []byte) (int, error) {
	if len(p.b) == 0 {
		return p.r.Read(b)
	}
	n := copy(b, p.b)
	p.b = p.b[n:]
	return n, nil
}

// NewReader detects the envelope at the start of r and returns a reader of
// the unwrapped bytes. zstd and LZ4 frames are decompressed as they are
// read; a Yaz0 envelope is read whole first since its header carries the
// only length. Closing the result does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Kind, error) {
	p := &peekReader{r: r}
	magic, err := p.peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, None, errors.Wrap(err, "envelope: read magic")
	}
	kind := Detect(magic)
	switch kind {
	case Zstd:
		dec, err := zstd.NewReader(p,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(maxDecodedSize)))
		if err != nil {
			return nil, kind, errors.Wrap(err, "envelope: zstd decoder")
		}
		return &corruptOnError{r: dec.IOReadCloser(), kind: kind}, kind, nil
	case LZ4:
		lr := newCappedReader(lz4.NewReader(p))
		return &corruptOnError{r: io.NopCloser(lr), kind: kind}, kind, nil
	case Yaz0:
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, kind, errors.Wrap(err, "envelope: read yaz0")
		}
		out, err := yaz0.Decompress(data)
		if err != nil {
			return nil, kind, errors.Wrap(err, "unwrap yaz0")
		}
		return io.NopCloser(bytes.NewReader(out)), kind, nil
	}
	return io.NopCloser(p), None, nil
}

// corruptOnError marks decompressor failures with ErrCorruptStream.
type corruptOnError struct {
	r    io.ReadCloser
	kind Kind
}

func (c *corruptOnError) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if err != nil && err != io.EOF {
		err = errors.Mark(errors.Wrapf(err, "unwrap %s", c.kind), ErrCorruptStream)
	}
	return n, err
}

func (c *corruptOnError) Close() error { return c.r.Close() }

// NewWriter returns a writer that wraps everything written to it in the
// given envelope. Close flushes the envelope but does not close w. Yaz0
// output is produced at Close, once the full size is known.
func NewWriter(w io.Writer, kind Kind, opts Options) (io.WriteCloser, error) {
	if opts.Level < 0 || opts.Level > yaz0.MaxLevel {
		return nil, errors.Newf("envelope: level %d outside [0, %d]", opts.Level, yaz0.MaxLevel)
	}
	switch kind {
	case None:
		return nopWriteCloser{w}, nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(opts.Level)))
		if err != nil {
			return nil, errors.Wrap(err, "envelope: zstd encoder")
		}
		return enc, nil
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4Levels[opts.Level])); err != nil {
			return nil, errors.Wrap(err, "envelope: lz4 options")
		}
		return lw, nil
	case Yaz0:
		return &yaz0Writer{w: w, opts: opts}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%s", kind)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type yaz0Writer struct {
	w      io.Writer
	opts   Options
	buf    bytes.Buffer
	closed bool
}

func (y *yaz0Writer) Write(p []byte) (int, error) {
	if y.closed {
		return 0, errors.New("envelope: write to closed yaz0 writer")
	}
	return y.buf.Write(p)
}

func (y *yaz0Writer) Close() error {
	if y.closed {
		return nil
	}
	y.closed = true
	out, err := yaz0.CompressWithAlignment(y.buf.Bytes(), y.opts.Level, y.opts.Alignment)
	if err != nil {
		return err
	}
	_, err = y.w.Write(out)
	return err
}
