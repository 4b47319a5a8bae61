package envelope

import (
	"bytes"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/byml/yaz0"
)

var payload = bytes.Repeat([]byte("BY\x00\x02 envelope payload "), 200)

func TestWrapUnwrap(t *testing.T) {
	for _, kind := range []Kind{None, Yaz0, Zstd, LZ4} {
		t.Run(kind.String(), func(t *testing.T) {
			for _, level := range []int{0, 1, 5, 9} {
				wrapped, err := Wrap(payload, kind, Options{Level: level})
				require.NoError(t, err)
				assert.Equal(t, kind, Detect(wrapped))

				raw, got, err := Unwrap(wrapped)
				require.NoError(t, err)
				assert.Equal(t, kind, got)
				assert.Equal(t, payload, raw)
			}
		})
	}
}

func TestWrapCompresses(t *testing.T) {
	for _, kind := range []Kind{Yaz0, Zstd, LZ4} {
		wrapped, err := Wrap(payload, kind, DefaultOptions())
		require.NoError(t, err)
		assert.Less(t, len(wrapped), len(payload), kind.String())
	}
}

func TestWrapErrors(t *testing.T) {
	_, err := Wrap(payload, Kind(42), DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Wrap(payload, Zstd, Options{Level: 10})
	assert.Error(t, err)
}

func TestYaz0Alignment(t *testing.T) {
	wrapped, err := Wrap(payload, Yaz0, Options{Level: 7, Alignment: 0x2000})
	require.NoError(t, err)
	h, err := yaz0.ReadHeader(wrapped)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2000), h.Alignment)
}

func TestUnwrapCorrupt(t *testing.T) {
	for _, kind := range []Kind{Yaz0, Zstd, LZ4} {
		wrapped, err := Wrap(payload, kind, DefaultOptions())
		require.NoError(t, err)
		damaged := bytes.Clone(wrapped[:len(wrapped)/2])

		_, got, err := Unwrap(damaged)
		assert.Equal(t, kind, got)
		assert.True(t, errors.Is(err, ErrCorruptStream), "%s: %v", kind, err)
	}
}

func TestDetect(t *testing.T) {
	assert.Equal(t, None, Detect(nil))
	assert.Equal(t, None, Detect([]byte("BY\x00\x03")))
	assert.Equal(t, None, Detect([]byte{0x28, 0xB5}))
	assert.Equal(t, Yaz0, Detect([]byte("Yaz0\x00\x00\x00\x00")))
	assert.Equal(t, Zstd, Detect([]byte{0x28, 0xB5, 0x2F, 0xFD, 0x00}))
	assert.Equal(t, LZ4, Detect([]byte{0x04, 0x22, 0x4D, 0x18, 0x00}))
}

func TestKindFromExtension(t *testing.T) {
	tests := map[string]Kind{
		"Actor/Link.sbyml":         Yaz0,
		"Pack/TitleBG.sbactorpack": Yaz0,
		"archive.SZS":              Yaz0,
		"Mush.byml.zs":             Zstd,
		"data.byml.lz4":            LZ4,
		"plain.byml":               None,
		"noext":                    None,
	}
	for name, want := range tests {
		assert.Equal(t, want, KindFromExtension(name), name)
	}
}

func TestKindFromName(t *testing.T) {
	for _, kind := range []Kind{None, Yaz0, Zstd, LZ4} {
		got, err := KindFromName(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	got, err := KindFromName("ZS")
	require.NoError(t, err)
	assert.Equal(t, Zstd, got)

	_, err = KindFromName("brotli")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, "unknown(42)", Kind(42).String())
}

func TestStreams(t *testing.T) {
	for _, kind := range []Kind{None, Yaz0, Zstd, LZ4} {
		t.Run(kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, kind, DefaultOptions())
			require.NoError(t, err)
			_, err = w.Write(payload[:100])
			require.NoError(t, err)
			_, err = w.Write(payload[100:])
			require.NoError(t, err)
			require.NoError(t, w.Close())
			assert.Equal(t, kind, Detect(buf.Bytes()))

			// The stream and the one-shot forms are interchangeable.
			raw, _, err := Unwrap(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, payload, raw)

			r, got, err := NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, kind, got)
			out, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, payload, out)
		})
	}
}

func TestNewReaderShortInput(t *testing.T) {
	r, kind, err := NewReader(bytes.NewReader([]byte("BY")))
	require.NoError(t, err)
	assert.Equal(t, None, kind)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("BY"), out)
}

func TestNewReaderCorrupt(t *testing.T) {
	wrapped, err := Wrap(payload, Zstd, DefaultOptions())
	require.NoError(t, err)
	r, _, err := NewReader(bytes.NewReader(wrapped[:len(wrapped)/2]))
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	assert.True(t, errors.Is(err, ErrCorruptStream), "%v", err)

	_, err = NewWriter(io.Discard, Kind(9), DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLZ4SizeCap(t *testing.T) {
	wrapped, err := Wrap(payload, LZ4, DefaultOptions())
	require.NoError(t, err)

	defer func(old int) { maxDecodedSize = old }(maxDecodedSize)
	maxDecodedSize = len(payload) - 1

	_, _, err = Unwrap(wrapped)
	assert.True(t, errors.Is(err, ErrCorruptStream), "one-shot: %v", err)

	r, _, err := NewReader(bytes.NewReader(wrapped))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	assert.True(t, errors.Is(err, ErrCorruptStream), "stream: %v", err)
	assert.LessOrEqual(t, len(out), maxDecodedSize)

	// Exactly at the cap is accepted by both forms.
	maxDecodedSize = len(payload)
	raw, _, err := Unwrap(wrapped)
	require.NoError(t, err)
	assert.Equal(t, payload, raw)

	r, _, err = NewReader(bytes.NewReader(wrapped))
	require.NoError(t, err)
	out, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}
