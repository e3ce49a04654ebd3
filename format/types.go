package format

type (
	Kind            uint8
	CompressionType uint8
)

const (
	KindString   Kind = 0x1 // KindString represents a UTF-8 string attribute.
	KindInt      Kind = 0x2 // KindInt represents a 32-bit signed integer attribute.
	KindLong     Kind = 0x3 // KindLong represents a 64-bit signed integer attribute.
	KindFloat    Kind = 0x4 // KindFloat represents a 32-bit IEEE-754 attribute.
	KindDouble   Kind = 0x5 // KindDouble represents a 64-bit IEEE-754 attribute.
	KindBool     Kind = 0x6 // KindBool represents a boolean attribute.
	KindDate     Kind = 0x7 // KindDate represents an instant stored as epoch milliseconds.
	KindUUID     Kind = 0x8 // KindUUID represents a 16-byte UUID attribute.
	KindGeometry Kind = 0x9 // KindGeometry represents a WKB-encoded geometry attribute.
	KindList     Kind = 0xA // KindList is declared but has no writer/reader; encoding fails fast.
	KindMap      Kind = 0xB // KindMap is declared but has no writer/reader; encoding fails fast.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// Supported reports whether the kind has a registered writer/reader pair.
// List and Map values are explicitly out of scope for the record format.
func (k Kind) Supported() bool {
	return k >= KindString && k <= KindGeometry
}

// FixedSize returns the payload size in bytes for fixed-width kinds, not
// counting the 1-byte null sentinel. It returns -1 for variable-length
// kinds (String, Geometry) and for unsupported kinds.
func (k Kind) FixedSize() int {
	switch k {
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 4
	case KindLong, KindDouble, KindDate:
		return 8
	case KindUUID:
		return 16
	default:
		return -1
	}
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindLong:
		return "Long"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindBool:
		return "Bool"
	case KindDate:
		return "Date"
	case KindUUID:
		return "UUID"
	case KindGeometry:
		return "Geometry"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
