package yamlconv

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oy3o/byml"
)

func sample() *byml.Node {
	return byml.Map(
		byml.Field("", byml.String("")),
		byml.Field("Bool", byml.Bool(true)),
		byml.Field("Double", byml.Float64(math.Pi)),
		byml.Field("Empty", byml.Array(byml.Map(), byml.Array())),
		byml.Field("Float", byml.Float32(-0.25)),
		byml.Field("Hash", byml.UInt32(0xFFFFFFFF)),
		byml.Field("Inf", byml.Float32(float32(math.Inf(-1)))),
		byml.Field("Int", byml.Int32(math.MinInt32)),
		byml.Field("Long", byml.Int64(math.MinInt64)),
		byml.Field("Name", byml.String("123")),
		byml.Field("Nothing", byml.Null()),
		byml.Field("ULong", byml.UInt64(math.MaxUint64)),
		byml.Field("Whole", byml.Float32(2)),
	)
}

func TestMarshalTags(t *testing.T) {
	out, err := Marshal(sample())
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "Hash: !u 0xffffffff")
	assert.Contains(t, text, "Long: !l -9223372036854775808")
	assert.Contains(t, text, "ULong: !ul 18446744073709551615")
	assert.Contains(t, text, "Double: !f64 3.141592653589793")
	assert.Contains(t, text, "Whole: 2.0")
	assert.Contains(t, text, "Inf: -.inf")
	assert.Contains(t, text, "Int: -2147483648")
	assert.Contains(t, text, `Name: "123"`)
}

func TestRoundTrip(t *testing.T) {
	tree := sample()
	out, err := Marshal(tree)
	require.NoError(t, err)

	got, err := Unmarshal(out)
	require.NoError(t, err)
	assert.True(t, byml.Equal(tree, got), "have %s\nwant %s", got, tree)
}

func TestUnmarshal(t *testing.T) {
	got, err := Unmarshal([]byte(`
Actors:
  - &link {Name: Link, Hash: !u 0x10}
  - *link
Count: 2
Scale: 1.5
`))
	require.NoError(t, err)

	link := byml.Map(byml.Field("Hash", byml.UInt32(0x10)), byml.Field("Name", byml.String("Link")))
	want := byml.Map(
		byml.Field("Actors", byml.Array(link, link.Clone())),
		byml.Field("Count", byml.Int32(2)),
		byml.Field("Scale", byml.Float32(1.5)),
	)
	assert.True(t, byml.Equal(want, got), "have %s", got)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"IntOverflow", "a: 3000000000", ErrInvalidScalar},
		{"BadUInt", "a: !u -1", ErrInvalidScalar},
		{"BadLong", "a: !l nope", ErrInvalidScalar},
		{"TaggedSequence", "a: !vec3 [1, 2, 3]", ErrUnknownTag},
		{"UnknownScalarTag", "a: !foo 3", ErrUnknownTag},
		{"ScalarRoot", "5", ErrInvalidDocument},
		{"ComplexKey", "? [a]\n: 1", ErrInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCustomTags(t *testing.T) {
	tags := TagTable{
		byml.KindUInt32: {
			Tag: "!uint",
			Format: func(n *byml.Node) (string, error) {
				v, err := n.AsUInt32()
				return strconv.FormatUint(uint64(v), 10), err
			},
			Parse: func(s string) (*byml.Node, error) {
				v, err := strconv.ParseUint(s, 10, 32)
				return byml.UInt32(uint32(v)), err
			},
		},
	}
	tree := byml.Array(byml.UInt32(7))

	out, err := Marshal(tree, WithTags(tags))
	require.NoError(t, err)
	assert.Equal(t, "- !uint 7\n", string(out))

	got, err := Unmarshal(out, WithTags(tags))
	require.NoError(t, err)
	assert.True(t, byml.Equal(tree, got))

	// The default vocabulary is untouched by the custom table.
	_, err = Unmarshal(out)
	assert.ErrorIs(t, err, ErrUnknownTag)

	// Kinds missing from the table have no YAML form.
	_, err = Marshal(byml.Array(byml.Int64(1)), WithTags(tags))
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestIndent(t *testing.T) {
	tree := byml.Map(byml.Field("a", byml.Map(byml.Field("b", byml.Int32(1)))))
	out, err := Marshal(tree, WithIndent(4))
	require.NoError(t, err)
	assert.Equal(t, "a:\n    b: 1\n", string(out))
}

func TestToYAML(t *testing.T) {
	y, err := ToYAML(byml.Map(byml.Field("k", byml.UInt32(1))))
	require.NoError(t, err)
	require.Equal(t, yaml.MappingNode, y.Kind)
	require.Len(t, y.Content, 2)
	assert.Equal(t, "!u", y.Content[1].Tag)
	assert.Equal(t, "0x00000001", y.Content[1].Value)

	back, err := FromYAML(y)
	require.NoError(t, err)
	got, err := back.Get("k").AsUInt32()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got)

	_, err = ToYAML(nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestUnmarshalRecursiveAlias(t *testing.T) {
	inputs := map[string]string{
		"Sequence":  "a: &x [1, *x]\n",
		"Mapping":   "a: &m {b: *m}\n",
		"Indirect":  "a: &outer\n  - &inner [*outer]\n",
		"RootAlias": "&r [*r]\n",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(input))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

// nestedAliases builds a document where every level references the
// previous one width times, so the expanded tree has width^depth leaves.
func nestedAliases(depth, width int) string {
	var sb strings.Builder
	sb.WriteString("l0: &l0 [" + strings.TrimSuffix(strings.Repeat("1, ", width), ", ") + "]\n")
	for i := 1; i < depth; i++ {
		ref := fmt.Sprintf("*l%d, ", i-1)
		fmt.Fprintf(&sb, "l%d: &l%d [%s]\n", i, i, strings.TrimSuffix(strings.Repeat(ref, width), ", "))
	}
	return sb.String()
}

func TestUnmarshalAliasExpansionLimit(t *testing.T) {
	_, err := Unmarshal([]byte(nestedAliases(7, 10)))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	// Modest reuse stays well inside the limit.
	got, err := Unmarshal([]byte(nestedAliases(2, 3)))
	require.NoError(t, err)
	assert.Equal(t, 3, got.Get("l1").Len())
	first, err := got.Get("l1").Index(0)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Len())
}
