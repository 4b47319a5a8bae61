package byml

import (
	"encoding/binary"
	"log/slog"
)

// DefaultVersion is the version Encode writes when none is configured.
const DefaultVersion = 2

// DefaultMaxDepth bounds container nesting while decoding.
const DefaultMaxDepth = 1024

// DecodeOptions configures a Decoder. The zero value is strict and silent.
type DecodeOptions struct {
	// Lenient accepts maps whose key indices are not strictly ascending.
	// Such maps are re-sorted, the last value of a duplicated key is kept,
	// and a warning is logged. Without it they fail with ErrUnsortedMap.
	Lenient bool

	// MaxDepth bounds container nesting. Zero means DefaultMaxDepth.
	MaxDepth int

	Logger *slog.Logger
}

// EncodeOptions configures an Encoder.
type EncodeOptions struct {
	// Version is the format version to write, 1 to 3. Zero means DefaultVersion.
	Version uint16

	// Order is the byte order to write. Nil means Order.
	Order binary.ByteOrder

	Logger *slog.Logger
}

type DecodeOption func(*DecodeOptions)
type EncodeOption func(*EncodeOptions)

func WithLenientMaps(lenient bool) DecodeOption {
	return func(o *DecodeOptions) { o.Lenient = lenient }
}

func WithMaxDepth(depth int) DecodeOption {
	return func(o *DecodeOptions) { o.MaxDepth = depth }
}

func WithDecodeLogger(logger *slog.Logger) DecodeOption {
	return func(o *DecodeOptions) { o.Logger = logger }
}

func WithVersion(version uint16) EncodeOption {
	return func(o *EncodeOptions) { o.Version = version }
}

func WithByteOrder(order binary.ByteOrder) EncodeOption {
	return func(o *EncodeOptions) { o.Order = order }
}

// WithBigEndian selects big endian output when be is true, little endian otherwise.
func WithBigEndian(be bool) EncodeOption {
	return func(o *EncodeOptions) {
		o.Order = LE
		if be {
			o.Order = BE
		}
	}
}

func WithEncodeLogger(logger *slog.Logger) EncodeOption {
	return func(o *EncodeOptions) { o.Logger = logger }
}

func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
