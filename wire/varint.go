package wire

// MaxVarintLen64 is the longest encoding of a 64-bit varint
const MaxVarintLen64 = 10

// AppendVarint appends the varint encoding of v to b: 7 bits per byte, low-order group
// first, high bit set on every byte except the last.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// PutVarint writes the varint encoding of v into b and returns the number of bytes
// written. b must hold at least SizeVarint(v) bytes.
func PutVarint(b []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		b[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	b[i] = byte(v)
	return i + 1
}

// ConsumeVarint decodes a varint from the front of b and returns the value and the
// number of bytes read.
func ConsumeVarint(b []byte) (uint64, int, error) {
	var result uint64
	for i := 0; i < MaxVarintLen64; i++ {
		if i >= len(b) {
			return 0, 0, ErrTruncated
		}
		c := b[i]
		if i == MaxVarintLen64-1 && c > 1 {
			// the tenth byte may only carry bit 63
			return 0, 0, ErrVarintOverflow
		}
		result |= uint64(c&0x7F) << (7 * uint(i))
		if c < 0x80 {
			return result, i + 1, nil
		}
	}
	return 0, 0, ErrVarintOverflow
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer. Bits above 32 are discarded.
func DecodeZigZag32(encoded uint64) int32 {
	return int32((uint32(encoded) >> 1) ^ uint32(-int32(encoded&1)))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding
func EncodeZigZag64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer
func DecodeZigZag64(encoded uint64) int64 {
	return int64((encoded >> 1) ^ uint64(-int64(encoded&1)))
}

// EncodeBool maps a bool onto its varint value
func EncodeBool(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// DecodeBool is lenient: any non-zero varint is true.
func DecodeBool(v uint64) bool {
	return v != 0
}
