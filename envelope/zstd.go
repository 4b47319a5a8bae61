package envelope

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v4"
)

// maxDecodedSize bounds what a single envelope may expand to.
var maxDecodedSize = 1 << 30

// zstdEncoders caches one encoder per level. zstd.Encoder is safe for
// concurrent EncodeAll calls, so entries are shared.
var zstdEncoders = xsync.NewMap[zstd.EncoderLevel, *zstd.Encoder]()

var (
	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
	zstdDecoderErr  error
)

// zstdLevel maps the 0..9 effort scale onto klauspost's four speed levels.
func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 5:
		return zstd.SpeedDefault
	case level <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func zstdEncoder(level zstd.EncoderLevel) (*zstd.Encoder, error) {
	if enc, ok := zstdEncoders.Load(level); ok {
		return enc, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, errors.Wrap(err, "envelope: zstd encoder")
	}
	actual, loaded := zstdEncoders.LoadOrStore(level, enc)
	if loaded {
		_ = enc.Close()
	}
	return actual, nil
}

func compressZstd(data []byte, level int) ([]byte, error) {
	enc, err := zstdEncoder(zstdLevel(level))
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2+64)), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(uint64(maxDecodedSize)))
	})
	if zstdDecoderErr != nil {
		return nil, errors.Wrap(zstdDecoderErr, "envelope: zstd decoder")
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "zstd"), ErrCorruptStream)
	}
	return out, nil
}
