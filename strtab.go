package byml

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// stringTable is a deduplicated pool of strings in ascending byte order.
// A string is addressed by its index in that order.
type stringTable struct {
	strs  []string
	index map[string]uint32
}

func newStringTable(set map[string]struct{}) *stringTable {
	t := &stringTable{strs: make([]string, 0, len(set)), index: make(map[string]uint32, len(set))}
	for s := range set {
		t.strs = append(t.strs, s)
	}
	slices.Sort(t.strs)
	for i, s := range t.strs {
		t.index[s] = uint32(i)
	}
	return t
}

func (t *stringTable) Len() int { return len(t.strs) }

// Size is the serialized size of the table, without trailing padding.
func (t *stringTable) Size() int {
	size := 4 + 4*(len(t.strs)+1)
	for _, s := range t.strs {
		size += len(s) + 1
	}
	return size
}

// writeTo emits the table record at the writer's current, aligned position.
func (t *stringTable) writeTo(w *Writer) {
	if len(t.strs) > maxCount {
		w.setError(errors.Wrapf(ErrTooManyEntries, "string table of %d entries", len(t.strs)))
		return
	}
	w.WriteUint8(tagStringTable)
	w.WriteUint24(uint32(len(t.strs)))
	off := 4 + 4*(len(t.strs)+1)
	for _, s := range t.strs {
		w.WriteUint32(uint32(off))
		off += len(s) + 1
	}
	w.WriteUint32(uint32(off))
	for _, s := range t.strs {
		w.WriteCString(s)
	}
	w.Align(Alignment)
}

// collectStrings walks the tree and returns the pool of string values and
// the pool of map keys. A container that holds itself is rejected.
func collectStrings(root *Node) (values, keys *stringTable, err error) {
	type step struct {
		n    *Node
		exit bool // leaving n, its children are done
	}
	valueSet := make(map[string]struct{})
	keySet := make(map[string]struct{})
	onPath := make(map[*Node]struct{})
	stack := []step{{n: root}}
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := st.n
		if st.exit {
			delete(onPath, n)
			continue
		}
		if n == nil {
			return nil, nil, ErrNilNode
		}
		if n.kind.IsContainer() {
			if _, ok := onPath[n]; ok {
				return nil, nil, errors.Wrapf(ErrCyclicTree, "%s of %d elements", n.kind, n.Len())
			}
			onPath[n] = struct{}{}
			stack = append(stack, step{n: n, exit: true})
		}
		switch n.kind {
		case KindString:
			valueSet[n.str] = struct{}{}
		case KindArray:
			for _, item := range n.items {
				stack = append(stack, step{n: item})
			}
		case KindMap:
			for _, e := range n.entries {
				keySet[e.Key] = struct{}{}
				stack = append(stack, step{n: e.Value})
			}
		}
	}
	return newStringTable(valueSet), newStringTable(keySet), nil
}

// readStringTable parses the table record at off.
func readStringTable(r *Reader, off int) ([]string, error) {
	corrupt := func(err error) error { return errors.Mark(err, ErrCorruptTable) }

	tag := r.Uint8At(off)
	count := int(r.Uint24At(off + 1))
	if err := r.Err(); err != nil {
		return nil, corrupt(errors.Wrapf(err, "string table at 0x%x", off))
	}
	if tag != tagStringTable {
		return nil, errors.Wrapf(ErrCorruptTable, "string table at 0x%x has type 0x%02x", off, tag)
	}
	// Check the offset array fits before allocating for it.
	if r.BytesAt(off+4, 4*(count+1)) == nil {
		return nil, corrupt(errors.Wrapf(r.Err(), "string table at 0x%x with %d entries", off, count))
	}

	offsets := make([]int, count+1)
	for i := range offsets {
		offsets[i] = int(r.Uint32At(off + 4 + 4*i))
		if i > 0 && offsets[i] <= offsets[i-1] {
			return nil, errors.Wrapf(ErrCorruptTable, "string table at 0x%x: offset %d not ascending", off, i)
		}
	}
	if end := off + offsets[count]; end > r.Size() {
		return nil, corrupt(errors.Wrapf(ErrOutOfBounds, "string table at 0x%x ends at 0x%x past %d bytes", off, end, r.Size()))
	}

	strs := make([]string, count)
	for i := range strs {
		strs[i] = r.CStringAt(off+offsets[i], off+offsets[i+1])
	}
	if err := r.Err(); err != nil {
		return nil, corrupt(errors.Wrapf(err, "string table at 0x%x", off))
	}
	return strs, nil
}
