package byml

import (
	"log/slog"
	"math"

	"github.com/cockroachdb/errors"
)

// Encoder turns Node trees into documents of a fixed version and byte order.
// An Encoder holds only its options and may be shared between goroutines.
type Encoder struct {
	opts EncodeOptions
}

// NewEncoder creates an Encoder with the given options applied.
func NewEncoder(opts ...EncodeOption) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(&e.opts)
	}
	if e.opts.Version == 0 {
		e.opts.Version = DefaultVersion
	}
	if e.opts.Order == nil {
		e.opts.Order = Order
	}
	e.opts.Logger = discardLogger(e.opts.Logger)
	return e
}

// Encode serializes root with the given options.
func Encode(root *Node, opts ...EncodeOption) ([]byte, error) {
	return NewEncoder(opts...).Encode(root)
}

// encodeState is the per-call state.
type encodeState struct {
	w       *Writer
	version uint16
	keys    *stringTable
	values  *stringTable
}

// outOfLine is a value whose slot gets patched once the value is written.
type outOfLine struct {
	node *Node
	slot int
}

// Encode lays the document out as header, key table, string table and
// then the container tree, depth first. Containers are written with zero
// slots for their out-of-line children, which are patched once each child
// lands. On failure no partial buffer is returned.
func (e *Encoder) Encode(root *Node) ([]byte, error) {
	version := e.opts.Version
	if version < MinVersion || version > MaxVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}
	if root == nil || !root.kind.IsContainer() {
		kind := "nil"
		if root != nil {
			kind = root.kind.String()
		}
		return nil, errors.Wrapf(ErrInvalidRoot, "root is %s", kind)
	}
	values, keys, err := collectStrings(root)
	if err != nil {
		return nil, err
	}

	s := &encodeState{
		w:       NewWriter(e.opts.Order, HeaderSize+keys.Size()+values.Size()+64),
		version: version,
		keys:    keys,
		values:  values,
	}
	w := s.w
	h := newHeader(version, e.opts.Order)
	w.WriteZeros(HeaderSize)
	if keys.Len() > 0 {
		h.KeyTableOffset = uint32(w.Len())
		keys.writeTo(w)
	}
	if values.Len() > 0 {
		h.StringTableOffset = uint32(w.Len())
		values.writeTo(w)
	}
	h.RootOffset = uint32(w.Len())
	if err := s.writeTree(root); err != nil {
		return nil, err
	}

	hdr := Fixed[Header]{Payload: h, Order: e.opts.Order}
	if _, err := hdr.MarshalTo(w.Bytes()[:HeaderSize]); err != nil {
		return nil, err
	}
	out, err := w.Result()
	if err != nil {
		return nil, err
	}
	e.opts.Logger.Debug("byml: encoded",
		slog.Int("version", int(version)),
		slog.Bool("big_endian", isBigEndian(e.opts.Order)),
		slog.Int("keys", keys.Len()),
		slog.Int("strings", values.Len()),
		slog.Int("size", len(out)))
	return out, nil
}

func (s *encodeState) writeTree(root *Node) error {
	type frame struct {
		pending []outOfLine
		next    int
	}
	pending, err := s.writeContainer(root)
	if err != nil {
		return err
	}
	stack := []*frame{{pending: pending}}
	w := s.w
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.next == len(f.pending) {
			stack = stack[:len(stack)-1]
			continue
		}
		p := f.pending[f.next]
		f.next++

		w.Align(Alignment)
		if int64(w.Len()) > math.MaxUint32 {
			return errors.Wrapf(ErrTooManyEntries, "document exceeds %d bytes", uint64(math.MaxUint32))
		}
		w.PutUint32At(p.slot, uint32(w.Len()))
		if p.node.kind.IsContainer() {
			if pending, err = s.writeContainer(p.node); err != nil {
				return err
			}
			stack = append(stack, &frame{pending: pending})
		} else {
			w.WriteUint64(p.node.bits)
		}
		if err := w.Err(); err != nil {
			return err
		}
	}
	return w.Err()
}

// writeContainer emits the fixed part of a container and returns the
// children that still need to be written out of line.
func (s *encodeState) writeContainer(n *Node) ([]outOfLine, error) {
	w := s.w
	count := n.Len()
	if count > maxCount {
		return nil, errors.Wrapf(ErrTooManyEntries, "%s of %d elements", n.kind, count)
	}
	w.WriteUint8(n.kind.tag())
	w.WriteUint24(uint32(count))

	var pending []outOfLine
	switch n.kind {
	case KindArray:
		for _, item := range n.items {
			if err := s.check(item); err != nil {
				return nil, err
			}
			w.WriteUint8(item.kind.tag())
		}
		w.Align(Alignment)
		for _, item := range n.items {
			if item.kind.outOfLine() {
				pending = append(pending, outOfLine{node: item, slot: w.Len()})
			}
			w.WriteUint32(s.inline(item))
		}
	case KindMap:
		for _, e := range n.entries {
			if err := s.check(e.Value); err != nil {
				return nil, errors.Wrapf(err, "key %q", e.Key)
			}
			w.WriteUint24(s.keys.index[e.Key])
			w.WriteUint8(e.Value.kind.tag())
			if e.Value.kind.outOfLine() {
				pending = append(pending, outOfLine{node: e.Value, slot: w.Len()})
			}
			w.WriteUint32(s.inline(e.Value))
		}
	}
	return pending, w.Err()
}

func (s *encodeState) check(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	if s.version < n.kind.minVersion() {
		return errors.Wrapf(ErrUnsupportedValueForVersion, "%s needs version %d, writing %d", n.kind, n.kind.minVersion(), s.version)
	}
	return nil
}

// inline returns the slot value of n. Out-of-line kinds get a placeholder.
func (s *encodeState) inline(n *Node) uint32 {
	switch n.kind {
	case KindBool, KindInt32, KindUInt32, KindFloat32:
		return uint32(n.bits)
	case KindString:
		return s.values.index[n.str]
	}
	return 0
}
