package byml

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Decoder turns documents into Node trees. A Decoder holds only its
// options and may be shared between goroutines.
type Decoder struct {
	opts DecodeOptions
}

// NewDecoder creates a Decoder with the given options applied.
func NewDecoder(opts ...DecodeOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(&d.opts)
	}
	if d.opts.MaxDepth <= 0 {
		d.opts.MaxDepth = DefaultMaxDepth
	}
	d.opts.Logger = discardLogger(d.opts.Logger)
	return d
}

// Decode parses a whole document with the given options.
func Decode(data []byte, opts ...DecodeOption) (*Node, error) {
	return NewDecoder(opts...).Decode(data)
}

// decodeState is the per-call state. Tables are read once, up front.
type decodeState struct {
	r       *Reader
	version uint16
	keys    []string
	strs    []string
	budget  int // elements left before the tree outgrows the input
	opts    *DecodeOptions
}

// Decode parses data. Documents without a root decode to an empty map.
// On failure no partial tree is returned.
func (d *Decoder) Decode(data []byte) (*Node, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	s := &decodeState{
		r:       NewReader(data, h.ByteOrder()),
		version: h.Version,
		budget:  len(data),
		opts:    &d.opts,
	}
	if h.KeyTableOffset != 0 {
		if s.keys, err = readStringTable(s.r, int(h.KeyTableOffset)); err != nil {
			return nil, errors.Wrap(err, "key table")
		}
	}
	if h.StringTableOffset != 0 {
		if s.strs, err = readStringTable(s.r, int(h.StringTableOffset)); err != nil {
			return nil, errors.Wrap(err, "string table")
		}
	}
	d.opts.Logger.Debug("byml: header",
		slog.String("magic", string(h.Magic[:])),
		slog.Int("version", int(h.Version)),
		slog.Int("keys", len(s.keys)),
		slog.Int("strings", len(s.strs)),
		slog.Uint64("root", uint64(h.RootOffset)))

	if h.RootOffset == 0 {
		return Map(), nil
	}
	off := int(h.RootOffset)
	tag := s.r.Uint8At(off)
	if err := s.r.Err(); err != nil {
		return nil, errors.Wrap(err, "root node")
	}
	kind, ok := kindOfTag(tag, h.Version)
	if !ok || !kind.IsContainer() {
		return nil, errors.Wrapf(ErrInvalidRoot, "root type 0x%02x at 0x%x", tag, off)
	}
	return s.decodeTree(kind, off)
}

// frame is one container being filled on the work stack.
type frame struct {
	node     *Node
	off      int // container record
	count    int
	next     int
	slots    int // first value slot of an array
	prevKey  int // key index of the previous map entry
	unsorted bool
}

func (s *decodeState) open(kind Kind, off int) (*frame, error) {
	r := s.r
	tag := r.Uint8At(off)
	count := int(r.Uint24At(off + 1))
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s node", kind)
	}
	if tag != kind.tag() {
		return nil, errors.Wrapf(ErrCorruptTable, "%s node at 0x%x has type 0x%02x", kind, off, tag)
	}
	if s.budget -= count; s.budget < 0 {
		return nil, errors.Wrapf(ErrCorruptTable, "%s node at 0x%x: element count exceeds input size", kind, off)
	}

	f := &frame{off: off, count: count, prevKey: -1}
	switch kind {
	case KindArray:
		f.slots = Roundup(off+4+count, Alignment)
		r.BytesAt(f.slots, 4*count)
		f.node = &Node{kind: KindArray, items: make([]*Node, 0, count)}
	case KindMap:
		r.BytesAt(off+4, 8*count)
		f.node = &Node{kind: KindMap, entries: make([]Entry, 0, count)}
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s node at 0x%x with %d elements", kind, off, count)
	}
	return f, nil
}

// decodeTree decodes the container at off with an explicit stack, so a
// deeply nested input cannot exhaust the goroutine stack.
func (s *decodeState) decodeTree(kind Kind, off int) (*Node, error) {
	root, err := s.open(kind, off)
	if err != nil {
		return nil, err
	}
	stack := []*frame{root}
	onPath := map[int]struct{}{off: {}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.next == f.count {
			if f.unsorted {
				s.repairMap(f)
			}
			stack = stack[:len(stack)-1]
			delete(onPath, f.off)
			continue
		}
		i := f.next
		f.next++

		var (
			tag  uint8
			slot int
			key  string
		)
		if f.node.kind == KindArray {
			tag = s.r.Uint8At(f.off + 4 + i)
			slot = f.slots + 4*i
		} else {
			entry := f.off + 4 + 8*i
			keyIndex := int(s.r.Uint24At(entry))
			tag = s.r.Uint8At(entry + 3)
			slot = entry + 4
			if keyIndex >= len(s.keys) {
				return nil, errors.Wrapf(ErrCorruptTable, "map at 0x%x: key index %d outside key table of %d", f.off, keyIndex, len(s.keys))
			}
			if keyIndex <= f.prevKey {
				if !s.opts.Lenient {
					return nil, errors.Wrapf(ErrUnsortedMap, "map at 0x%x: entry %d has key index %d after %d", f.off, i, keyIndex, f.prevKey)
				}
				f.unsorted = true
			}
			f.prevKey = keyIndex
			key = s.keys[keyIndex]
		}
		if err := s.r.Err(); err != nil {
			return nil, err
		}

		childKind, ok := kindOfTag(tag, s.version)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownTypeTag, "type 0x%02x at 0x%x in version %d", tag, slot, s.version)
		}

		var child *Node
		if childKind.IsContainer() {
			childOff := int(s.r.Uint32At(slot))
			if err := s.r.Err(); err != nil {
				return nil, err
			}
			if _, ok := onPath[childOff]; ok {
				return nil, errors.Wrapf(ErrCorruptTable, "%s at 0x%x references its own ancestor", childKind, childOff)
			}
			if len(stack) >= s.opts.MaxDepth {
				return nil, errors.Wrapf(ErrCorruptTable, "nesting deeper than %d", s.opts.MaxDepth)
			}
			cf, err := s.open(childKind, childOff)
			if err != nil {
				return nil, err
			}
			child = cf.node
			stack = append(stack, cf)
			onPath[childOff] = struct{}{}
		} else if child, err = s.scalar(childKind, slot); err != nil {
			return nil, err
		}

		if f.node.kind == KindArray {
			f.node.items = append(f.node.items, child)
		} else {
			f.node.entries = append(f.node.entries, Entry{Key: key, Value: child})
		}
	}
	return root.node, nil
}

func (s *decodeState) scalar(kind Kind, slot int) (*Node, error) {
	r := s.r
	n := &Node{kind: kind}
	switch kind {
	case KindNull:
	case KindBool:
		if r.Uint32At(slot) != 0 {
			n.bits = 1
		}
	case KindInt32, KindUInt32, KindFloat32:
		n.bits = uint64(r.Uint32At(slot))
	case KindInt64, KindUInt64, KindFloat64:
		n.bits = r.Uint64At(int(r.Uint32At(slot)))
	case KindString:
		index := int(r.Uint32At(slot))
		if r.Err() == nil && index >= len(s.strs) {
			return nil, errors.Wrapf(ErrCorruptTable, "string index %d outside string table of %d", index, len(s.strs))
		}
		if r.Err() == nil {
			n.str = s.strs[index]
		}
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s value at 0x%x", kind, slot)
	}
	return n, nil
}

// repairMap sorts a map that arrived out of order. Later duplicates win.
func (s *decodeState) repairMap(f *frame) {
	s.opts.Logger.Warn("byml: map keys out of order, re-sorting",
		slog.Int("offset", f.off),
		slog.Int("entries", f.count))
	f.node.entries = Map(f.node.entries...).entries
}
