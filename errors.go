package byml

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidMagic indicates that the first two bytes of a document are neither "BY" nor "YB".
	ErrInvalidMagic = errors.New("byml: invalid magic")

	// ErrUnsupportedVersion indicates a document or encoder version outside 1..3.
	ErrUnsupportedVersion = errors.New("byml: unsupported version")

	// ErrInvalidRoot indicates that the root node is not an array or a map.
	ErrInvalidRoot = errors.New("byml: invalid root node")

	// ErrCorruptTable indicates a malformed string table, key table or container record.
	ErrCorruptTable = errors.New("byml: corrupt table")

	// ErrOutOfBounds indicates a read past the end of the input buffer.
	ErrOutOfBounds = errors.New("byml: read out of bounds")

	// ErrUnknownTypeTag indicates a node type byte that is not recognized by the document's version.
	ErrUnknownTypeTag = errors.New("byml: unknown node type")

	// ErrUnsortedMap indicates map entries whose key indices are not strictly ascending.
	ErrUnsortedMap = errors.New("byml: unsorted map")

	// ErrUnsupportedValueForVersion indicates a value that the target version cannot represent.
	ErrUnsupportedValueForVersion = errors.New("byml: value not supported by target version")

	// ErrBufferOverflow indicates that the encoder patched outside its own output.
	// It is only ever produced together with an assertion failure.
	ErrBufferOverflow = errors.New("byml: encoder buffer overflow")

	// ErrTooManyEntries indicates a container or table that does not fit a 24-bit count.
	ErrTooManyEntries = errors.New("byml: too many entries")

	// ErrNilNode indicates a nil child inside a tree handed to the encoder.
	ErrNilNode = errors.New("byml: nil node")

	// ErrCyclicTree indicates a tree handed to the encoder that contains one of its own ancestors.
	ErrCyclicTree = errors.New("byml: tree contains itself")

	// ErrKindMismatch is returned by the Node accessors when the node holds another kind.
	ErrKindMismatch = errors.New("byml: node kind mismatch")
)
