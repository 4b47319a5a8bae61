package byml

// Kind identifies the variant held by a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat32
	KindFloat64
	KindString
	KindArray
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindUInt32:
		return "uint32"
	case KindInt64:
		return "int64"
	case KindUInt64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// IsContainer reports whether the kind is an array or a map.
func (k Kind) IsContainer() bool { return k == KindArray || k == KindMap }

// minVersion is the first format version able to store the kind.
func (k Kind) minVersion() uint16 {
	switch k {
	case KindInt64, KindUInt64:
		return 2
	case KindFloat64:
		return 3
	default:
		return 1
	}
}

// outOfLine reports whether values of the kind are stored behind an offset.
func (k Kind) outOfLine() bool {
	return k == KindInt64 || k == KindUInt64 || k == KindFloat64 || k.IsContainer()
}

// Type tags as stored in the binary layout.
const (
	tagString      uint8 = 0xA0
	tagArray       uint8 = 0xC0
	tagMap         uint8 = 0xC1
	tagStringTable uint8 = 0xC2
	tagBool        uint8 = 0xD0
	tagInt32       uint8 = 0xD1
	tagFloat32     uint8 = 0xD2
	tagUInt32      uint8 = 0xD3
	tagInt64       uint8 = 0xD4
	tagUInt64      uint8 = 0xD5
	tagFloat64     uint8 = 0xD6
	tagNull        uint8 = 0xFF
)

func (k Kind) tag() uint8 {
	switch k {
	case KindBool:
		return tagBool
	case KindInt32:
		return tagInt32
	case KindUInt32:
		return tagUInt32
	case KindInt64:
		return tagInt64
	case KindUInt64:
		return tagUInt64
	case KindFloat32:
		return tagFloat32
	case KindFloat64:
		return tagFloat64
	case KindString:
		return tagString
	case KindArray:
		return tagArray
	case KindMap:
		return tagMap
	default:
		return tagNull
	}
}

// kindOfTag maps a type tag to a kind. The version gates the 64-bit kinds.
func kindOfTag(tag uint8, version uint16) (Kind, bool) {
	var k Kind
	switch tag {
	case tagString:
		k = KindString
	case tagArray:
		k = KindArray
	case tagMap:
		k = KindMap
	case tagBool:
		k = KindBool
	case tagInt32:
		k = KindInt32
	case tagFloat32:
		k = KindFloat32
	case tagUInt32:
		k = KindUInt32
	case tagInt64:
		k = KindInt64
	case tagUInt64:
		k = KindUInt64
	case tagFloat64:
		k = KindFloat64
	case tagNull:
		k = KindNull
	default:
		return 0, false
	}
	return k, version >= k.minVersion()
}
