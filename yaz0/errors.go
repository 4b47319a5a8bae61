package yaz0

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidMagic indicates data that does not start with "Yaz0".
	ErrInvalidMagic = errors.New("yaz0: invalid magic")

	// ErrCorruptStream indicates a truncated header or a malformed token stream.
	ErrCorruptStream = errors.New("yaz0: corrupt stream")
)
