package wire

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

// scalarCase encodes v with write, checks the size calculator agreed, decodes it back
// and compares against the reference encoding.
type scalarCase[T comparable] struct {
	size      func(T) int
	write     func(*Writer, T)
	read      func(*Reader) (T, error)
	reference func([]byte, T) []byte
}

func (c scalarCase[T]) run(t *testing.T, values ...T) {
	t.Helper()
	for _, v := range values {
		buf := make([]byte, c.size(v))
		w := NewWriter(buf)
		c.write(w, v)
		if w.Remaining() != 0 {
			t.Errorf("%v: size predicted %d bytes, wrote %d", v, len(buf), w.Offset())
		}
		if want := c.reference(nil, v); !cmp.Equal(want, w.Bytes()) {
			t.Errorf("%v: encoded %x, reference %x", v, w.Bytes(), want)
		}
		got, err := c.read(NewReader(w.Bytes()))
		if err != nil {
			t.Fatalf("%v: decode: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip of %v gave %v", v, got)
		}
	}
}

func TestRoundTrip_Scalars(t *testing.T) {
	t.Run("int32", func(t *testing.T) {
		scalarCase[int32]{SizeInt32, (*Writer).WriteInt32, (*Reader).ReadInt32,
			func(b []byte, v int32) []byte { return protowire.AppendVarint(b, uint64(v)) },
		}.run(t, 0, 1, -1, 300, math.MaxInt32, math.MinInt32)
	})
	t.Run("int64", func(t *testing.T) {
		scalarCase[int64]{SizeInt64, (*Writer).WriteInt64, (*Reader).ReadInt64,
			func(b []byte, v int64) []byte { return protowire.AppendVarint(b, uint64(v)) },
		}.run(t, 0, 1, -1, math.MaxInt64, math.MinInt64)
	})
	t.Run("uint32", func(t *testing.T) {
		scalarCase[uint32]{SizeUint32, (*Writer).WriteUint32, (*Reader).ReadUint32,
			func(b []byte, v uint32) []byte { return protowire.AppendVarint(b, uint64(v)) },
		}.run(t, 0, 1, 127, 128, math.MaxUint32)
	})
	t.Run("uint64", func(t *testing.T) {
		scalarCase[uint64]{SizeUint64, (*Writer).WriteUint64, (*Reader).ReadUint64,
			protowire.AppendVarint,
		}.run(t, 0, 1, 1<<63, math.MaxUint64)
	})
	t.Run("sint32", func(t *testing.T) {
		scalarCase[int32]{SizeSint32, (*Writer).WriteSint32, (*Reader).ReadSint32,
			func(b []byte, v int32) []byte { return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v))) },
		}.run(t, 0, 1, -1, math.MaxInt32, math.MinInt32)
	})
	t.Run("sint64", func(t *testing.T) {
		scalarCase[int64]{SizeSint64, (*Writer).WriteSint64, (*Reader).ReadSint64,
			func(b []byte, v int64) []byte { return protowire.AppendVarint(b, protowire.EncodeZigZag(v)) },
		}.run(t, 0, 1, -1, math.MaxInt64, math.MinInt64)
	})
	t.Run("fixed32", func(t *testing.T) {
		scalarCase[uint32]{func(uint32) int { return SizeFixed32() }, (*Writer).WriteFixed32, (*Reader).ReadFixed32,
			protowire.AppendFixed32,
		}.run(t, 0, 1, math.MaxUint32)
	})
	t.Run("fixed64", func(t *testing.T) {
		scalarCase[uint64]{func(uint64) int { return SizeFixed64() }, (*Writer).WriteFixed64, (*Reader).ReadFixed64,
			protowire.AppendFixed64,
		}.run(t, 0, 1, math.MaxUint64)
	})
	t.Run("sfixed32", func(t *testing.T) {
		scalarCase[int32]{func(int32) int { return SizeFixed32() }, (*Writer).WriteSfixed32, (*Reader).ReadSfixed32,
			func(b []byte, v int32) []byte { return protowire.AppendFixed32(b, uint32(v)) },
		}.run(t, 0, -1, math.MaxInt32, math.MinInt32)
	})
	t.Run("sfixed64", func(t *testing.T) {
		scalarCase[int64]{func(int64) int { return SizeFixed64() }, (*Writer).WriteSfixed64, (*Reader).ReadSfixed64,
			func(b []byte, v int64) []byte { return protowire.AppendFixed64(b, uint64(v)) },
		}.run(t, 0, -1, math.MaxInt64, math.MinInt64)
	})
	t.Run("bool", func(t *testing.T) {
		scalarCase[bool]{SizeBool, (*Writer).WriteBool, (*Reader).ReadBool,
			func(b []byte, v bool) []byte { return protowire.AppendVarint(b, protowire.EncodeBool(v)) },
		}.run(t, false, true)
	})
	t.Run("string", func(t *testing.T) {
		scalarCase[string]{SizeString, (*Writer).WriteString, (*Reader).ReadString,
			protowire.AppendString,
		}.run(t, "", "hello", "héllo wörld", "emoji \U0001F600 needs four bytes", string(make([]byte, 300)))
	})
}

func TestRoundTrip_FloatBits(t *testing.T) {
	floats := []float32{0, float32(math.Copysign(0, -1)), 1.5, math.MaxFloat32, math.SmallestNonzeroFloat32,
		float32(math.Inf(1)), float32(math.Inf(-1)), float32(math.NaN()), math.Float32frombits(0x7FC00001)}
	for _, v := range floats {
		w := NewWriter(make([]byte, 4))
		w.WriteFloat(v)
		got, err := NewReader(w.Bytes()).ReadFloat()
		if err != nil {
			t.Fatalf("ReadFloat: %v", err)
		}
		if math.Float32bits(got) != math.Float32bits(v) {
			t.Errorf("float bits %08x round-tripped to %08x", math.Float32bits(v), math.Float32bits(got))
		}
	}

	doubles := []float64{0, math.Copysign(0, -1), math.Pi, math.MaxFloat64, math.SmallestNonzeroFloat64,
		math.Inf(1), math.Inf(-1), math.NaN(), math.Float64frombits(0x7FF8000000000001)}
	for _, v := range doubles {
		w := NewWriter(make([]byte, 8))
		w.WriteDouble(v)
		if want := protowire.AppendFixed64(nil, math.Float64bits(v)); !cmp.Equal(want, w.Bytes()) {
			t.Errorf("double %v encoded %x, reference %x", v, w.Bytes(), want)
		}
		got, err := NewReader(w.Bytes()).ReadDouble()
		if err != nil {
			t.Fatalf("ReadDouble: %v", err)
		}
		if math.Float64bits(got) != math.Float64bits(v) {
			t.Errorf("double bits %016x round-tripped to %016x", math.Float64bits(v), math.Float64bits(got))
		}
	}
}

func TestRoundTrip_Bytes(t *testing.T) {
	payloads := [][]byte{{}, {0}, []byte("binary\x00data"), make([]byte, 1<<14)}
	for _, p := range payloads {
		w := NewWriter(make([]byte, SizeBytes(p)))
		w.WriteBytes(p)
		if want := protowire.AppendBytes(nil, p); !cmp.Equal(want, w.Bytes()) {
			t.Errorf("bytes of length %d encoded differently from reference", len(p))
		}
		got, err := NewReader(w.Bytes()).ReadBytes()
		if err != nil {
			t.Fatalf("ReadBytes: %v", err)
		}
		if !cmp.Equal(p, got, cmpEmptyBytes) {
			t.Errorf("bytes round trip mismatch for length %d", len(p))
		}
	}
}

// cmpEmptyBytes treats nil and empty byte slices as equal
var cmpEmptyBytes = cmp.Comparer(func(a, b []byte) bool {
	return string(a) == string(b)
})

func TestTag_RoundTrip(t *testing.T) {
	fields := []FieldNumber{1, 2, 15, 16, 2047, 2048, 1 << 20, MaxFieldNumber}
	wireTypes := []WireType{WireVarint, WireFixed64, WireBytes, WireFixed32}
	for _, n := range fields {
		for _, wt := range wireTypes {
			w := NewWriter(make([]byte, SizeTag(n)))
			w.WriteTag(n, wt)
			if want := protowire.AppendTag(nil, protowire.Number(n), protowire.Type(wt)); !cmp.Equal(want, w.Bytes()) {
				t.Errorf("tag %d/%s encoded %x, reference %x", n, wt, w.Bytes(), want)
			}
			tag, err := NewReader(w.Bytes()).ReadTag()
			if err != nil {
				t.Fatalf("ReadTag(%d/%s): %v", n, wt, err)
			}
			gotN, gotWT := ParseTag(tag)
			if gotN != n || gotWT != wt {
				t.Errorf("tag round trip: want %d/%s, got %d/%s", n, wt, gotN, gotWT)
			}
		}
	}
}
