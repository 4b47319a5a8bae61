package byml

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Node is one value of a document. Scalars keep their exact bit width,
// so UInt32(0xFFFFFFFF) and Int32(-1) are different values.
// Containers own their children; a tree never shares nodes.
type Node struct {
	kind Kind

	// Scalar payload, interpreted by kind. Floats hold their IEEE bits.
	bits uint64
	str  string

	items   []*Node
	entries []Entry // sorted by Key
}

// Entry is a key/value pair of a map node.
type Entry struct {
	Key   string
	Value *Node
}

// Field is a shorthand for building map entries.
func Field(key string, value *Node) Entry { return Entry{Key: key, Value: value} }

// --- Constructors ---

func Null() *Node             { return &Node{kind: KindNull} }
func Int32(v int32) *Node     { return &Node{kind: KindInt32, bits: uint64(uint32(v))} }
func UInt32(v uint32) *Node   { return &Node{kind: KindUInt32, bits: uint64(v)} }
func Int64(v int64) *Node     { return &Node{kind: KindInt64, bits: uint64(v)} }
func UInt64(v uint64) *Node   { return &Node{kind: KindUInt64, bits: v} }
func Float32(v float32) *Node { return &Node{kind: KindFloat32, bits: uint64(math.Float32bits(v))} }
func Float64(v float64) *Node { return &Node{kind: KindFloat64, bits: math.Float64bits(v)} }
func String(v string) *Node   { return &Node{kind: KindString, str: v} }

func Bool(v bool) *Node {
	n := &Node{kind: KindBool}
	if v {
		n.bits = 1
	}
	return n
}

// Array creates an array node holding items in order.
func Array(items ...*Node) *Node {
	return &Node{kind: KindArray, items: slices.Clone(items)}
}

// Map creates a map node. Entries are sorted by key; when a key repeats the
// last entry wins.
func Map(entries ...Entry) *Node {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	out := sorted[:0]
	for _, e := range sorted {
		if len(out) > 0 && out[len(out)-1].Key == e.Key {
			out[len(out)-1] = e
			continue
		}
		out = append(out, e)
	}
	return &Node{kind: KindMap, entries: out}
}

// --- Inspection ---

func (n *Node) Kind() Kind   { return n.kind }
func (n *Node) IsNull() bool { return n.kind == KindNull }

func (n *Node) mismatch(want Kind) error {
	return errors.Wrapf(ErrKindMismatch, "want %s, have %s", want, n.kind)
}

func (n *Node) AsBool() (bool, error) {
	if n.kind != KindBool {
		return false, n.mismatch(KindBool)
	}
	return n.bits != 0, nil
}

func (n *Node) AsInt32() (int32, error) {
	if n.kind != KindInt32 {
		return 0, n.mismatch(KindInt32)
	}
	return int32(uint32(n.bits)), nil
}

func (n *Node) AsUInt32() (uint32, error) {
	if n.kind != KindUInt32 {
		return 0, n.mismatch(KindUInt32)
	}
	return uint32(n.bits), nil
}

func (n *Node) AsInt64() (int64, error) {
	if n.kind != KindInt64 {
		return 0, n.mismatch(KindInt64)
	}
	return int64(n.bits), nil
}

func (n *Node) AsUInt64() (uint64, error) {
	if n.kind != KindUInt64 {
		return 0, n.mismatch(KindUInt64)
	}
	return n.bits, nil
}

func (n *Node) AsFloat32() (float32, error) {
	if n.kind != KindFloat32 {
		return 0, n.mismatch(KindFloat32)
	}
	return math.Float32frombits(uint32(n.bits)), nil
}

func (n *Node) AsFloat64() (float64, error) {
	if n.kind != KindFloat64 {
		return 0, n.mismatch(KindFloat64)
	}
	return math.Float64frombits(n.bits), nil
}

func (n *Node) AsString() (string, error) {
	if n.kind != KindString {
		return "", n.mismatch(KindString)
	}
	return n.str, nil
}

// AsArray returns the array items. The slice is the node's own storage.
func (n *Node) AsArray() ([]*Node, error) {
	if n.kind != KindArray {
		return nil, n.mismatch(KindArray)
	}
	return n.items, nil
}

// AsMap returns the map entries in ascending key order. The slice is the node's own storage.
func (n *Node) AsMap() ([]Entry, error) {
	if n.kind != KindMap {
		return nil, n.mismatch(KindMap)
	}
	return n.entries, nil
}

// Len returns the number of children of a container, or 0.
func (n *Node) Len() int {
	switch n.kind {
	case KindArray:
		return len(n.items)
	case KindMap:
		return len(n.entries)
	}
	return 0
}

func (n *Node) search(key string) (int, bool) {
	i := sort.Search(len(n.entries), func(i int) bool { return n.entries[i].Key >= key })
	return i, i < len(n.entries) && n.entries[i].Key == key
}

// Get returns the value stored under key, or nil.
func (n *Node) Get(key string) *Node {
	if n.kind != KindMap {
		return nil
	}
	if i, ok := n.search(key); ok {
		return n.entries[i].Value
	}
	return nil
}

// Index returns the i-th array item.
func (n *Node) Index(i int) (*Node, error) {
	if n.kind != KindArray {
		return nil, n.mismatch(KindArray)
	}
	if i < 0 || i >= len(n.items) {
		return nil, errors.Newf("byml: index %d out of range [0, %d)", i, len(n.items))
	}
	return n.items[i], nil
}

// Set stores value under key, keeping the entries sorted.
func (n *Node) Set(key string, value *Node) {
	if n.kind != KindMap {
		return
	}
	i, ok := n.search(key)
	if ok {
		n.entries[i].Value = value
		return
	}
	n.entries = slices.Insert(n.entries, i, Entry{Key: key, Value: value})
}

// Append adds an item to the end of an array.
func (n *Node) Append(value *Node) {
	if n.kind == KindArray {
		n.items = append(n.items, value)
	}
}

// Clone returns a deep copy of the tree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{kind: n.kind, bits: n.bits, str: n.str}
	if n.items != nil {
		c.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			c.items[i] = item.Clone()
		}
	}
	if n.entries != nil {
		c.entries = make([]Entry, len(n.entries))
		for i, e := range n.entries {
			c.entries[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
		}
	}
	return c
}

// Equal reports whether two trees hold the same variants, values, array
// order and map contents. Floats compare by bit pattern.
func Equal(a, b *Node) bool {
	type pair struct{ a, b *Node }
	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a == nil || p.b == nil {
			if p.a != p.b {
				return false
			}
			continue
		}
		if p.a.kind != p.b.kind {
			return false
		}
		switch p.a.kind {
		case KindString:
			if p.a.str != p.b.str {
				return false
			}
		case KindArray:
			if len(p.a.items) != len(p.b.items) {
				return false
			}
			for i := range p.a.items {
				stack = append(stack, pair{p.a.items[i], p.b.items[i]})
			}
		case KindMap:
			if len(p.a.entries) != len(p.b.entries) {
				return false
			}
			for i := range p.a.entries {
				if p.a.entries[i].Key != p.b.entries[i].Key {
					return false
				}
				stack = append(stack, pair{p.a.entries[i].Value, p.b.entries[i].Value})
			}
		default:
			if p.a.bits != p.b.bits {
				return false
			}
		}
	}
	return true
}

// String formats the tree in a compact, debug oriented notation.
func (n *Node) String() string {
	var sb strings.Builder
	n.format(&sb)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("<nil>")
		return
	}
	switch n.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(n.bits != 0))
	case KindInt32:
		sb.WriteString(strconv.FormatInt(int64(int32(uint32(n.bits))), 10))
	case KindUInt32:
		fmt.Fprintf(sb, "0x%08x", uint32(n.bits))
	case KindInt64:
		sb.WriteString(strconv.FormatInt(int64(n.bits), 10) + "l")
	case KindUInt64:
		sb.WriteString(strconv.FormatUint(n.bits, 10) + "ul")
	case KindFloat32:
		sb.WriteString(strconv.FormatFloat(float64(math.Float32frombits(uint32(n.bits))), 'g', -1, 32))
	case KindFloat64:
		sb.WriteString(strconv.FormatFloat(math.Float64frombits(n.bits), 'g', -1, 64) + "d")
	case KindString:
		sb.WriteString(strconv.Quote(n.str))
	case KindArray:
		sb.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.format(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, e := range n.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(e.Key))
			sb.WriteString(": ")
			e.Value.format(sb)
		}
		sb.WriteByte('}')
	}
}
