package yamlconv

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/oy3o/byml"
)

// Codec renders one node kind as a tagged YAML scalar and parses it back.
type Codec struct {
	Tag    string
	Format func(*byml.Node) (string, error)
	Parse  func(string) (*byml.Node, error)
}

// TagTable holds the kinds that need an explicit YAML tag. Kinds missing
// from the table map onto the YAML core schema: int32 is !!int, float32 is
// !!float, and bool, null and string are plain.
type TagTable map[byml.Kind]Codec

// DefaultTags returns the conventional vocabulary: !u for uint32 written as
// 0x%08x, !l for int64, !ul for uint64 and !f64 for float64.
func DefaultTags() TagTable {
	return TagTable{
		byml.KindUInt32: {
			Tag: "!u",
			Format: func(n *byml.Node) (string, error) {
				v, err := n.AsUInt32()
				return fmt.Sprintf("0x%08x", v), err
			},
			Parse: func(s string) (*byml.Node, error) {
				v, err := strconv.ParseUint(s, 0, 32)
				if err != nil {
					return nil, errors.Wrapf(ErrInvalidScalar, "!u %q: %v", s, err)
				}
				return byml.UInt32(uint32(v)), nil
			},
		},
		byml.KindInt64: {
			Tag: "!l",
			Format: func(n *byml.Node) (string, error) {
				v, err := n.AsInt64()
				return strconv.FormatInt(v, 10), err
			},
			Parse: func(s string) (*byml.Node, error) {
				v, err := strconv.ParseInt(s, 0, 64)
				if err != nil {
					return nil, errors.Wrapf(ErrInvalidScalar, "!l %q: %v", s, err)
				}
				return byml.Int64(v), nil
			},
		},
		byml.KindUInt64: {
			Tag: "!ul",
			Format: func(n *byml.Node) (string, error) {
				v, err := n.AsUInt64()
				return strconv.FormatUint(v, 10), err
			},
			Parse: func(s string) (*byml.Node, error) {
				v, err := strconv.ParseUint(s, 0, 64)
				if err != nil {
					return nil, errors.Wrapf(ErrInvalidScalar, "!ul %q: %v", s, err)
				}
				return byml.UInt64(v), nil
			},
		},
		byml.KindFloat64: {
			Tag: "!f64",
			Format: func(n *byml.Node) (string, error) {
				v, err := n.AsFloat64()
				return formatFloat(v, 64), err
			},
			Parse: func(s string) (*byml.Node, error) {
				v, err := parseFloat(s, 64)
				if err != nil {
					return nil, errors.Wrapf(ErrInvalidScalar, "!f64 %q: %v", s, err)
				}
				return byml.Float64(v), nil
			},
		},
	}
}

func (t TagTable) byTag(tag string) (Codec, bool) {
	for _, c := range t {
		if c.Tag == tag {
			return c, true
		}
	}
	return Codec{}, false
}

// formatFloat writes the shortest text that parses back to the same value
// and still reads as a YAML float.
func formatFloat(v float64, bitSize int) string {
	switch {
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	case math.IsNaN(v):
		return ".nan"
	}
	s := strconv.FormatFloat(v, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func parseFloat(s string, bitSize int) (float64, error) {
	switch strings.ToLower(s) {
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	case ".nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, bitSize)
}
