package wire

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestVarint_ConcreteEncodings(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  []byte
	}{
		{"int32 300", func(w *Writer) { w.WriteInt32(300) }, []byte{0xAC, 0x02}},
		{"int32 zero", func(w *Writer) { w.WriteInt32(0) }, []byte{0x00}},
		{"int32 -1", func(w *Writer) { w.WriteInt32(-1) }, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
		{"sint32 -1", func(w *Writer) { w.WriteSint32(-1) }, []byte{0x01}},
		{"sint32 1", func(w *Writer) { w.WriteSint32(1) }, []byte{0x02}},
		{"sint64 -2", func(w *Writer) { w.WriteSint64(-2) }, []byte{0x03}},
		{"bool true", func(w *Writer) { w.WriteBool(true) }, []byte{0x01}},
		{"uint64 max", func(w *Writer) { w.WriteUint64(math.MaxUint64) }, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
		{"fixed32 1", func(w *Writer) { w.WriteFixed32(1) }, []byte{0x01, 0x00, 0x00, 0x00}},
		{"double 1.0", func(w *Writer) { w.WriteDouble(1) }, []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(make([]byte, len(tt.want)))
			tt.write(w)
			if diff := cmp.Diff(tt.want, w.Bytes()); diff != "" {
				t.Errorf("encoding mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVarint_Decode300(t *testing.T) {
	r := NewReader([]byte{0xAC, 0x02})
	v, err := r.ReadInt32()
	if err != nil {
		t.Fatalf("ReadInt32: %v", err)
	}
	if v != 300 {
		t.Errorf("expected 300, got %d", v)
	}
	if !r.AtLimit() {
		t.Errorf("expected reader at limit, pos=%d", r.Pos())
	}
}

func TestVarint_SizeMatchesEncoding(t *testing.T) {
	// one value per magnitude class, 1 through 10 bytes
	for i := 0; i < 64; i += 7 {
		for _, v := range []uint64{1 << uint(i), 1<<uint(i) - 1, 1<<uint(i) + 1} {
			encoded := AppendVarint(nil, v)
			if got := SizeVarint(v); got != len(encoded) {
				t.Errorf("SizeVarint(%d) = %d, encoded length %d", v, got, len(encoded))
			}
			if got := protowire.SizeVarint(v); got != len(encoded) {
				t.Errorf("reference size of %d = %d, encoded length %d", v, got, len(encoded))
			}
			decoded, n, err := ConsumeVarint(encoded)
			if err != nil || n != len(encoded) || decoded != v {
				t.Errorf("ConsumeVarint(%x) = %d, %d, %v", encoded, decoded, n, err)
			}
		}
	}
	if got := SizeVarint(math.MaxUint64); got != 10 {
		t.Errorf("SizeVarint(max) = %d, want 10", got)
	}
}

func TestVarint_ConsumeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"unterminated", []byte{0x80, 0x80}, ErrTruncated},
		{"tenth byte too large", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}, ErrVarintOverflow},
		{"eleven bytes", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x81, 0x00}, ErrVarintOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ConsumeVarint(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVarint_Int32TruncatesOversizedValues(t *testing.T) {
	// 2^32 + 5 encoded as a varint decodes to 5 as int32
	r := NewReader(AppendVarint(nil, 1<<32+5))
	v, err := r.ReadInt32()
	if err != nil {
		t.Fatalf("ReadInt32: %v", err)
	}
	if v != 5 {
		t.Errorf("expected truncation to 5, got %d", v)
	}
}

func TestVarint_BoolIsLenient(t *testing.T) {
	for _, raw := range []uint64{1, 2, 0x7F, 1 << 40} {
		r := NewReader(AppendVarint(nil, raw))
		v, err := r.ReadBool()
		if err != nil {
			t.Fatalf("ReadBool(%d): %v", raw, err)
		}
		if !v {
			t.Errorf("ReadBool(%d) = false, want true", raw)
		}
	}
}

func TestZigZag(t *testing.T) {
	tests32 := []struct {
		in   int32
		want uint64
	}{
		{0, 0}, {-1, 1}, {1, 2}, {-2, 3}, {math.MaxInt32, 0xFFFFFFFE}, {math.MinInt32, 0xFFFFFFFF},
	}
	for _, tt := range tests32 {
		if got := EncodeZigZag32(tt.in); got != tt.want {
			t.Errorf("EncodeZigZag32(%d) = %d, want %d", tt.in, got, tt.want)
		}
		if got := DecodeZigZag32(tt.want); got != tt.in {
			t.Errorf("DecodeZigZag32(%d) = %d, want %d", tt.want, got, tt.in)
		}
	}

	for _, v := range []int64{0, -1, 1, math.MaxInt64, math.MinInt64, -1 << 40} {
		if got, want := EncodeZigZag64(v), protowire.EncodeZigZag(v); got != want {
			t.Errorf("EncodeZigZag64(%d) = %d, reference %d", v, got, want)
		}
		if got := DecodeZigZag64(EncodeZigZag64(v)); got != v {
			t.Errorf("zigzag64 round trip of %d gave %d", v, got)
		}
	}
}
