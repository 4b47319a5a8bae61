package byml

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// sampleTree covers every kind the given version can store.
func sampleTree(version uint16) *Node {
	scalars := Map(
		Field("bool", Bool(true)),
		Field("false", Bool(false)),
		Field("int", Int32(math.MinInt32)),
		Field("uint", UInt32(0xFFFFFFFF)),
		Field("float", Float32(-0.25)),
		Field("null", Null()),
		Field("str", String("こんにちは")),
		Field("", String("")),
	)
	if version >= 2 {
		scalars.Set("int64", Int64(math.MinInt64))
		scalars.Set("uint64", UInt64(math.MaxUint64))
	}
	if version >= 3 {
		scalars.Set("double", Float64(math.SmallestNonzeroFloat64))
	}
	return Map(
		Field("scalars", scalars),
		Field("list", Array(Int32(-1), Bool(true), String("str"), Array(), Map())),
		Field("deep", Array(Array(Array(Map(Field("leaf", String("end"))))))),
		Field("tail", Array(scalars.Clone(), scalars.Clone())),
	)
}

type RoundTripTestSuite struct {
	suite.Suite
}

func (s *RoundTripTestSuite) TestAllVersionsAndOrders() {
	for version := uint16(MinVersion); version <= MaxVersion; version++ {
		for _, order := range []binary.ByteOrder{LE, BE} {
			s.Run(fmt.Sprintf("v%d/%s", version, order), func() {
				tree := sampleTree(version)
				data, err := Encode(tree, WithVersion(version), WithByteOrder(order))
				s.Require().NoError(err)

				h, err := DecodeHeader(data)
				s.Require().NoError(err)
				s.Assert().Equal(version, h.Version)
				s.Assert().Equal(order, h.ByteOrder())
				s.Assert().Zero(len(data) % Alignment)

				got, err := Decode(data)
				s.Require().NoError(err)
				s.Assert().True(Equal(tree, got), "want %s\nhave %s", tree, got)
			})
		}
	}
}

func (s *RoundTripTestSuite) TestArrayRoot() {
	tree := Array(String("b"), String("a"), Int32(7))
	data, err := Encode(tree, WithBigEndian(true))
	s.Require().NoError(err)
	s.Assert().Equal([]byte("BY"), data[:2])

	got, err := Decode(data)
	s.Require().NoError(err)
	s.Assert().True(Equal(tree, got))
}

func (s *RoundTripTestSuite) TestEmptyContainers() {
	for _, tree := range []*Node{Map(), Array()} {
		data, err := Encode(tree)
		s.Require().NoError(err)
		h, err := DecodeHeader(data)
		s.Require().NoError(err)
		s.Assert().Zero(h.KeyTableOffset, "no keys, no key table")
		s.Assert().Zero(h.StringTableOffset, "no strings, no string table")

		got, err := Decode(data)
		s.Require().NoError(err)
		s.Assert().True(Equal(tree, got))
	}
}

func (s *RoundTripTestSuite) TestReencodeIsStable() {
	tree := sampleTree(3)
	first, err := Encode(tree, WithVersion(3))
	s.Require().NoError(err)
	decoded, err := Decode(first)
	s.Require().NoError(err)
	second, err := Encode(decoded, WithVersion(3))
	s.Require().NoError(err)
	s.Assert().Equal(first, second)
}

func TestRoundTrip(t *testing.T) {
	suite.Run(t, new(RoundTripTestSuite))
}

// The map {"Value": UInt32(0xFFFFFFFF), "List": [Int32(-1), Bool(true)]}
// at version 2, little endian.
func TestScenarioUIntAndList(t *testing.T) {
	tree := Map(
		Field("Value", UInt32(0xFFFFFFFF)),
		Field("List", Array(Int32(-1), Bool(true))),
	)
	data, err := Encode(tree, WithVersion(2), WithByteOrder(LE))
	require.NoError(t, err)
	assert.Equal(t, []byte("YB"), data[:2])
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[2:]))

	got, err := Decode(data)
	require.NoError(t, err)

	entries, err := got.AsMap()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "List", entries[0].Key)
	assert.Equal(t, "Value", entries[1].Key)

	v, err := entries[1].Value.AsUInt32()
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), v)

	items, err := entries[0].Value.AsArray()
	require.NoError(t, err)
	require.Len(t, items, 2)
	i, err := items[0].AsInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i)
	b, err := items[1].AsBool()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestVersionGating(t *testing.T) {
	cases := []struct {
		name string
		node *Node
		min  uint16
	}{
		{"int64", Int64(1), 2},
		{"uint64", UInt64(1), 2},
		{"double", Float64(1), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree := Map(Field("v", Array(tc.node)))
			for version := uint16(MinVersion); version <= MaxVersion; version++ {
				data, err := Encode(tree, WithVersion(version))
				if version < tc.min {
					assert.ErrorIs(t, err, ErrUnsupportedValueForVersion, "version %d", version)
					assert.Nil(t, data, "no partial buffer on failure")
					continue
				}
				require.NoError(t, err, "version %d", version)
				got, err := Decode(data)
				require.NoError(t, err)
				assert.True(t, Equal(tree, got))
			}
		})
	}
}

func TestStringDedup(t *testing.T) {
	items := make([]*Node, 100)
	for i := range items {
		items[i] = String("a")
	}
	data, err := Encode(Array(items...))
	require.NoError(t, err)

	h, err := DecodeHeader(data)
	require.NoError(t, err)
	require.NotZero(t, h.StringTableOffset)
	r := NewReader(data, h.ByteOrder())
	assert.Equal(t, uint8(tagStringTable), r.Uint8At(int(h.StringTableOffset)))
	assert.Equal(t, uint32(1), r.Uint24At(int(h.StringTableOffset)+1))

	got, err := Decode(data)
	require.NoError(t, err)
	decoded, err := got.AsArray()
	require.NoError(t, err)
	require.Len(t, decoded, 100)
	for _, n := range decoded {
		s, err := n.AsString()
		require.NoError(t, err)
		assert.Equal(t, "a", s)
	}
}

func TestKeysAndStringsArePooledSeparately(t *testing.T) {
	tree := Map(Field("same", String("same")), Field("other", String("x")))
	data, err := Encode(tree)
	require.NoError(t, err)
	h, err := DecodeHeader(data)
	require.NoError(t, err)

	r := NewReader(data, h.ByteOrder())
	keys, err := readStringTable(r, int(h.KeyTableOffset))
	require.NoError(t, err)
	strs, err := readStringTable(r, int(h.StringTableOffset))
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "same"}, keys)
	assert.Equal(t, []string{"same", "x"}, strs)
}

func TestEncodeErrors(t *testing.T) {
	t.Run("InvalidVersion", func(t *testing.T) {
		for _, v := range []uint16{4, 0xFFFF} {
			_, err := Encode(Map(), WithVersion(v))
			assert.ErrorIs(t, err, ErrUnsupportedVersion)
		}
	})

	t.Run("ScalarRoot", func(t *testing.T) {
		_, err := Encode(Int32(1))
		assert.ErrorIs(t, err, ErrInvalidRoot)
		_, err = Encode(nil)
		assert.ErrorIs(t, err, ErrInvalidRoot)
	})

	t.Run("NilChild", func(t *testing.T) {
		_, err := Encode(Array(Int32(1), nil))
		assert.ErrorIs(t, err, ErrNilNode)
	})

	t.Run("SelfContainingArray", func(t *testing.T) {
		a := Array()
		a.Append(a)
		_, err := Encode(a)
		assert.ErrorIs(t, err, ErrCyclicTree)
	})

	t.Run("IndirectCycle", func(t *testing.T) {
		inner := Map()
		outer := Map(Field("inner", Array(inner)))
		inner.Set("outer", outer)
		_, err := Encode(outer)
		assert.ErrorIs(t, err, ErrCyclicTree)
	})
}

func TestEncodeSharedSubtree(t *testing.T) {
	shared := Array(String("x"), Int64(7))
	data, err := Encode(Map(Field("a", shared), Field("b", shared)))
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, Equal(got.Get("a"), got.Get("b")))
	assert.NotSame(t, got.Get("a"), got.Get("b"))
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode(Map(Field("a", Int32(1)), Field("b", Int32(2))), WithByteOrder(LE))
	require.NoError(t, err)

	expected := []byte{
		'Y', 'B', 0x02, 0x00, // magic, version
		0x10, 0x00, 0x00, 0x00, // key table
		0x00, 0x00, 0x00, 0x00, // no string table
		0x24, 0x00, 0x00, 0x00, // root
		0xC2, 0x02, 0x00, 0x00, // key table: 2 entries
		0x10, 0x00, 0x00, 0x00, 0x12, 0x00, 0x00, 0x00, 0x14, 0x00, 0x00, 0x00,
		'a', 0, 'b', 0,
		0xC1, 0x02, 0x00, 0x00, // map: 2 entries
		0x00, 0x00, 0x00, 0xD1, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0xD1, 0x02, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, expected, data)
}
