package wire

// ===== SIZE CALCULATOR =====
//
// Every Size* function returns exactly the number of bytes the matching Writer method
// produces. Value sizes exclude the tag; SizeField* variants include it.

// SizeVarint returns the number of bytes needed to encode the given varint
func SizeVarint(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}

// SizeVarint32 is SizeVarint for values known to fit in 32 bits
func SizeVarint32(v uint32) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	default:
		return 5
	}
}

// SizeTag returns the encoded size of the tag for field n
func SizeTag(n FieldNumber) int {
	return SizeVarint32(uint32(n) << 3)
}

// SizeInt32 is ten bytes for every negative value: int32 is sign-extended to 64 bits.
func SizeInt32(v int32) int {
	if v < 0 {
		return MaxVarintLen64
	}
	return SizeVarint32(uint32(v))
}

func SizeInt64(v int64) int   { return SizeVarint(uint64(v)) }
func SizeUint32(v uint32) int { return SizeVarint32(v) }
func SizeUint64(v uint64) int { return SizeVarint(v) }
func SizeSint32(v int32) int  { return SizeVarint(EncodeZigZag32(v)) }
func SizeSint64(v int64) int  { return SizeVarint(EncodeZigZag64(v)) }
func SizeBool(bool) int       { return 1 }
func SizeEnum(v int32) int    { return SizeInt32(v) }

func SizeFixed32() int { return 4 }
func SizeFixed64() int { return 8 }

// SizeLengthDelimited returns the size of a length prefix plus n payload bytes
func SizeLengthDelimited(n int) int {
	return SizeVarint(uint64(n)) + n
}

// SizeString counts UTF-8 bytes, which is what len reports for a Go string.
func SizeString(s string) int {
	return SizeLengthDelimited(len(s))
}

func SizeBytes(b []byte) int {
	return SizeLengthDelimited(len(b))
}

// SizeMessage returns the length-prefixed size of an embedded message
func SizeMessage(m Message) int {
	return SizeLengthDelimited(m.Size())
}

// SizePacked sums the element sizes of a packed payload (without length prefix)
func SizePacked[T any](values []T, size func(T) int) int {
	n := 0
	for _, v := range values {
		n += size(v)
	}
	return n
}

// SizePackedFixed is SizePacked for fixed-width elements
func SizePackedFixed[T any](values []T, width int) int {
	return len(values) * width
}

// FIELD SIZES (tag + value)

func SizeFieldInt32(n FieldNumber, v int32) int   { return SizeTag(n) + SizeInt32(v) }
func SizeFieldInt64(n FieldNumber, v int64) int   { return SizeTag(n) + SizeInt64(v) }
func SizeFieldUint32(n FieldNumber, v uint32) int { return SizeTag(n) + SizeUint32(v) }
func SizeFieldUint64(n FieldNumber, v uint64) int { return SizeTag(n) + SizeUint64(v) }
func SizeFieldSint32(n FieldNumber, v int32) int  { return SizeTag(n) + SizeSint32(v) }
func SizeFieldSint64(n FieldNumber, v int64) int  { return SizeTag(n) + SizeSint64(v) }
func SizeFieldBool(n FieldNumber, v bool) int     { return SizeTag(n) + SizeBool(v) }
func SizeFieldEnum(n FieldNumber, v int32) int    { return SizeTag(n) + SizeEnum(v) }
func SizeFieldFixed32(n FieldNumber) int          { return SizeTag(n) + 4 }
func SizeFieldFixed64(n FieldNumber) int          { return SizeTag(n) + 8 }
func SizeFieldString(n FieldNumber, s string) int { return SizeTag(n) + SizeString(s) }
func SizeFieldBytes(n FieldNumber, b []byte) int  { return SizeTag(n) + SizeBytes(b) }

// SizeFieldMessage uses the message's own (memoized) Size.
func SizeFieldMessage(n FieldNumber, m Message) int {
	return SizeTag(n) + SizeMessage(m)
}

// SizeFieldPacked returns the size of a packed field whose elements encode to payload
// bytes. An empty packed field is omitted from the wire and has size zero.
func SizeFieldPacked(n FieldNumber, payload int) int {
	if payload == 0 {
		return 0
	}
	return SizeTag(n) + SizeLengthDelimited(payload)
}

// SizeMapEntry returns the size of one map entry in field n. keySize and valueSize are
// the full field sizes (tag included) of the key (field 1) and value (field 2).
func SizeMapEntry(n FieldNumber, keySize, valueSize int) int {
	return SizeTag(n) + SizeLengthDelimited(keySize+valueSize)
}
