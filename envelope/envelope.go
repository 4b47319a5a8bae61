// Package envelope detects and strips the compression wrappers documents are
// stored in, and applies them again on the way out.
//
// Detection is a magic check on the first four bytes. Yaz0 is the
// traditional envelope; zstd and LZ4 frames are recognized as well since
// newer titles and tools ship documents in them.
package envelope

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/oy3o/byml/yaz0"
)

// Kind identifies a compression envelope.
type Kind uint8

const (
	None Kind = iota
	Yaz0
	Zstd
	LZ4
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

var (
	// ErrUnknownKind indicates an envelope name or value this package does not handle.
	ErrUnknownKind = errors.New("envelope: unknown kind")

	// ErrCorruptStream is shared with package yaz0 so one check covers every envelope.
	ErrCorruptStream = yaz0.ErrCorruptStream
)

// String returns the envelope name.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Yaz0:
		return "yaz0"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// KindFromName parses an envelope name as returned by Kind.String.
func KindFromName(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return None, nil
	case "yaz0":
		return Yaz0, nil
	case "zstd", "zs":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, errors.Wrapf(ErrUnknownKind, "%q", name)
	}
}

// KindFromExtension guesses the envelope from a file name. ".zs" is zstd,
// ".lz4" is LZ4, and any other extension starting with ".s" (".szs",
// ".sbyml", ".sbactorpack") is Yaz0.
func KindFromExtension(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".zs":
		return Zstd
	case ext == ".lz4":
		return LZ4
	case strings.HasPrefix(ext, ".s"):
		return Yaz0
	}
	return None
}

// Detect returns the envelope data is wrapped in, or None.
func Detect(data []byte) Kind {
	switch {
	case yaz0.IsCompressed(data):
		return Yaz0
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	}
	return None
}

// Options tune Wrap.
type Options struct {
	// Level is the effort from 0 to 9. It maps to the Yaz0 search depth,
	// the zstd encoder level and the LZ4 compression level.
	Level int

	// Alignment is recorded in Yaz0 headers.
	Alignment uint32
}

// DefaultOptions returns the options most tools write with.
func DefaultOptions() Options { return Options{Level: yaz0.DefaultLevel} }

// Unwrap strips any recognized envelope. Data without one is returned as is.
func Unwrap(data []byte) ([]byte, Kind, error) {
	kind := Detect(data)
	var (
		out []byte
		err error
	)
	switch kind {
	case None:
		return data, None, nil
	case Yaz0:
		out, err = yaz0.Decompress(data)
	case Zstd:
		out, err = decompressZstd(data)
	case LZ4:
		out, err = decompressLZ4(data)
	}
	if err != nil {
		return nil, kind, errors.Wrapf(err, "unwrap %s", kind)
	}
	return out, kind, nil
}

// Wrap compresses data into the requested envelope.
func Wrap(data []byte, kind Kind, opts Options) ([]byte, error) {
	if opts.Level < 0 || opts.Level > yaz0.MaxLevel {
		return nil, errors.Newf("envelope: level %d outside [0, %d]", opts.Level, yaz0.MaxLevel)
	}
	switch kind {
	case None:
		return data, nil
	case Yaz0:
		return yaz0.CompressWithAlignment(data, opts.Level, opts.Alignment)
	case Zstd:
		return compressZstd(data, opts.Level)
	case LZ4:
		return compressLZ4(data, opts.Level)
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%s", kind)
}
