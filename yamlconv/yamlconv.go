// Package yamlconv converts between byml trees and YAML.
//
// Numeric kinds that YAML cannot tell apart are written with explicit tags
// taken from a TagTable passed to each call, never from global state.
package yamlconv

import (
	"bytes"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/oy3o/byml"
)

var (
	// ErrUnknownTag indicates a YAML tag without a mapping to a node kind.
	ErrUnknownTag = errors.New("yamlconv: unknown tag")

	// ErrInvalidScalar indicates a scalar whose text does not fit its tag.
	ErrInvalidScalar = errors.New("yamlconv: invalid scalar")

	// ErrInvalidDocument indicates YAML that cannot form a byml tree.
	ErrInvalidDocument = errors.New("yamlconv: invalid document")
)

type config struct {
	tags   TagTable
	indent int
}

type Option func(*config)

// WithTags replaces the tag vocabulary.
func WithTags(tags TagTable) Option { return func(c *config) { c.tags = tags } }

// WithIndent sets the indentation Marshal uses.
func WithIndent(spaces int) Option { return func(c *config) { c.indent = spaces } }

func newConfig(opts []Option) *config {
	c := &config{tags: DefaultTags(), indent: 2}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Marshal renders a tree as a YAML document.
func Marshal(root *byml.Node, opts ...Option) ([]byte, error) {
	c := newConfig(opts)
	doc, err := c.toYAML(root)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(c.indent)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "yamlconv: encode")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "yamlconv: encode")
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a YAML document into a tree. The root must be a sequence or a mapping.
func Unmarshal(data []byte, opts ...Option) (*byml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "yamlconv: parse")
	}
	root, err := newConfig(opts).newBuilder(&doc).fromYAML(&doc)
	if err != nil {
		return nil, err
	}
	if !root.Kind().IsContainer() {
		return nil, errors.Wrapf(ErrInvalidDocument, "root is %s", root.Kind())
	}
	return root, nil
}

// ToYAML converts a tree to a yaml.v3 node.
func ToYAML(root *byml.Node, opts ...Option) (*yaml.Node, error) {
	return newConfig(opts).toYAML(root)
}

// FromYAML converts a yaml.v3 node to a tree. Aliases are expanded into
// copies; an alias to an enclosing node or an expansion far larger than the
// source fails with ErrInvalidDocument.
func FromYAML(node *yaml.Node, opts ...Option) (*byml.Node, error) {
	if node == nil {
		return nil, errors.Wrap(ErrInvalidDocument, "nil node")
	}
	return newConfig(opts).newBuilder(node).fromYAML(node)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func (c *config) toYAML(n *byml.Node) (*yaml.Node, error) {
	if n == nil {
		return nil, errors.Wrap(ErrInvalidDocument, "nil node")
	}
	if codec, ok := c.tags[n.Kind()]; ok {
		s, err := codec.Format(n)
		if err != nil {
			return nil, err
		}
		return scalar(codec.Tag, s), nil
	}
	switch n.Kind() {
	case byml.KindNull:
		return scalar("!!null", "null"), nil
	case byml.KindBool:
		v, _ := n.AsBool()
		return scalar("!!bool", strconv.FormatBool(v)), nil
	case byml.KindInt32:
		v, _ := n.AsInt32()
		return scalar("!!int", strconv.FormatInt(int64(v), 10)), nil
	case byml.KindFloat32:
		v, _ := n.AsFloat32()
		return scalar("!!float", formatFloat(float64(v), 32)), nil
	case byml.KindString:
		v, _ := n.AsString()
		return scalar("!!str", v), nil
	case byml.KindArray:
		items, _ := n.AsArray()
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range items {
			y, err := c.toYAML(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, y)
		}
		return seq, nil
	case byml.KindMap:
		entries, _ := n.AsMap()
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range entries {
			y, err := c.toYAML(e.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", e.Key)
			}
			m.Content = append(m.Content, scalar("!!str", e.Key), y)
		}
		return m, nil
	}
	return nil, errors.Wrapf(ErrUnknownTag, "no YAML form for %s", n.Kind())
}

// maxExpansion bounds how many byml nodes may be built per YAML node written
// in the source, so nested aliases cannot blow up the tree.
const maxExpansion = 16

// builder is the state of one YAML to byml conversion.
type builder struct {
	*config
	budget int
	onPath map[*yaml.Node]struct{} // containers being converted
}

func (c *config) newBuilder(root *yaml.Node) *builder {
	return &builder{
		config: c,
		budget: maxExpansion * countNodes(root),
		onPath: make(map[*yaml.Node]struct{}),
	}
}

// countNodes counts the nodes present in the source without following aliases.
func countNodes(root *yaml.Node) int {
	n := 0
	stack := []*yaml.Node{root}
	for len(stack) > 0 {
		y := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		if y.Kind != yaml.AliasNode {
			stack = append(stack, y.Content...)
		}
	}
	return n
}

func (b *builder) fromYAML(y *yaml.Node) (*byml.Node, error) {
	if b.budget--; b.budget < 0 {
		return nil, errors.Wrapf(ErrInvalidDocument, "line %d: aliases expand to over %d times the source size", y.Line, maxExpansion)
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) != 1 {
			return nil, errors.Wrapf(ErrInvalidDocument, "document with %d nodes", len(y.Content))
		}
		return b.fromYAML(y.Content[0])
	case yaml.AliasNode:
		// Aliases are expanded; trees never share nodes.
		if y.Alias == nil {
			return nil, errors.Wrapf(ErrInvalidDocument, "line %d: alias without anchor", y.Line)
		}
		if _, ok := b.onPath[y.Alias]; ok {
			return nil, errors.Wrapf(ErrInvalidDocument, "line %d: alias *%s refers to an enclosing node", y.Line, y.Value)
		}
		return b.fromYAML(y.Alias)
	case yaml.SequenceNode:
		if tag := y.ShortTag(); tag != "!!seq" {
			return nil, errors.Wrapf(ErrUnknownTag, "line %d: %s on a sequence", y.Line, tag)
		}
		b.onPath[y] = struct{}{}
		defer delete(b.onPath, y)
		arr := byml.Array()
		for _, item := range y.Content {
			n, err := b.fromYAML(item)
			if err != nil {
				return nil, err
			}
			arr.Append(n)
		}
		return arr, nil
	case yaml.MappingNode:
		if tag := y.ShortTag(); tag != "!!map" {
			return nil, errors.Wrapf(ErrUnknownTag, "line %d: %s on a mapping", y.Line, tag)
		}
		b.onPath[y] = struct{}{}
		defer delete(b.onPath, y)
		m := byml.Map()
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, errors.Wrapf(ErrInvalidDocument, "line %d: map key is not a scalar", k.Line)
			}
			v, err := b.fromYAML(y.Content[i+1])
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k.Value)
			}
			m.Set(k.Value, v)
		}
		return m, nil
	case yaml.ScalarNode:
		return b.fromScalar(y)
	}
	return nil, errors.Wrapf(ErrInvalidDocument, "line %d: unexpected YAML node kind %d", y.Line, y.Kind)
}

func (b *builder) fromScalar(y *yaml.Node) (*byml.Node, error) {
	tag := y.ShortTag()
	if codec, ok := b.tags.byTag(tag); ok {
		n, err := codec.Parse(y.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", y.Line)
		}
		return n, nil
	}
	switch tag {
	case "!!null":
		return byml.Null(), nil
	case "!!bool":
		var v bool
		if err := y.Decode(&v); err != nil {
			return nil, errors.Wrapf(ErrInvalidScalar, "line %d: %v", y.Line, err)
		}
		return byml.Bool(v), nil
	case "!!int":
		var v int64
		if err := y.Decode(&v); err != nil {
			return nil, errors.Wrapf(ErrInvalidScalar, "line %d: %v", y.Line, err)
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, errors.Wrapf(ErrInvalidScalar, "line %d: %d does not fit int32, tag it", y.Line, v)
		}
		return byml.Int32(int32(v)), nil
	case "!!float":
		v, err := parseFloat(y.Value, 64)
		if err != nil {
			if err := y.Decode(&v); err != nil {
				return nil, errors.Wrapf(ErrInvalidScalar, "line %d: %v", y.Line, err)
			}
		}
		return byml.Float32(float32(v)), nil
	case "!!str", "!!timestamp":
		return byml.String(y.Value), nil
	}
	return nil, errors.Wrapf(ErrUnknownTag, "line %d: %s", y.Line, tag)
}
