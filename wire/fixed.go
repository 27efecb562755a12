package wire

import (
	"encoding/binary"
	"math"
)

// AppendFixed32 appends v in 4-byte little-endian layout
func AppendFixed32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendFixed64 appends v in 8-byte little-endian layout
func AppendFixed64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

// ConsumeFixed32 decodes a 4-byte little-endian value from the front of b
func ConsumeFixed32(b []byte) (uint32, int, error) {
	if len(b) < 4 {
		return 0, 0, ErrTruncated
	}
	return binary.LittleEndian.Uint32(b), 4, nil
}

// ConsumeFixed64 decodes an 8-byte little-endian value from the front of b
func ConsumeFixed64(b []byte) (uint64, int, error) {
	if len(b) < 8 {
		return 0, 0, ErrTruncated
	}
	return binary.LittleEndian.Uint64(b), 8, nil
}

// Float32ToFixed returns the raw IEEE-754 bits of v. NaN payloads are preserved.
func Float32ToFixed(v float32) uint32 { return math.Float32bits(v) }

// Float64ToFixed returns the raw IEEE-754 bits of v. NaN payloads are preserved.
func Float64ToFixed(v float64) uint64 { return math.Float64bits(v) }

// FixedToFloat32 is the inverse of Float32ToFixed
func FixedToFloat32(v uint32) float32 { return math.Float32frombits(v) }

// FixedToFloat64 is the inverse of Float64ToFixed
func FixedToFloat64(v uint64) float64 { return math.Float64frombits(v) }
