package wire

import (
	"encoding/binary"
)

// Writer appends encoded values into a buffer that was sized up front by the size
// calculator. It never grows the buffer: running out of room panics with *OverflowError.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter creates a writer that fills buf from the start
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the bytes written so far
func (w *Writer) Bytes() []byte {
	return w.buf[:w.pos]
}

// Offset returns the current write position
func (w *Writer) Offset() int {
	return w.pos
}

// Remaining returns the number of unwritten bytes left in the buffer
func (w *Writer) Remaining() int {
	return len(w.buf) - w.pos
}

func (w *Writer) reserve(n int) []byte {
	if w.pos+n > len(w.buf) {
		panic(&OverflowError{Offset: w.pos, Need: n, Capacity: len(w.buf)})
	}
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b
}

// VARINT METHODS

// WriteVarint writes v as a varint
func (w *Writer) WriteVarint(v uint64) {
	PutVarint(w.reserve(SizeVarint(v)), v)
}

// WriteTag writes (fieldNumber << 3) | wireType as a varint
func (w *Writer) WriteTag(fieldNumber FieldNumber, wireType WireType) {
	w.WriteVarint(uint64(MakeTag(fieldNumber, wireType)))
}

// WriteInt32 sign-extends negative values to 64 bits, producing ten bytes.
func (w *Writer) WriteInt32(v int32) {
	w.WriteVarint(uint64(v))
}

func (w *Writer) WriteInt64(v int64)   { w.WriteVarint(uint64(v)) }
func (w *Writer) WriteUint32(v uint32) { w.WriteVarint(uint64(v)) }
func (w *Writer) WriteUint64(v uint64) { w.WriteVarint(v) }
func (w *Writer) WriteSint32(v int32)  { w.WriteVarint(EncodeZigZag32(v)) }
func (w *Writer) WriteSint64(v int64)  { w.WriteVarint(EncodeZigZag64(v)) }
func (w *Writer) WriteBool(v bool)     { w.WriteVarint(EncodeBool(v)) }
func (w *Writer) WriteEnum(v int32)    { w.WriteInt32(v) }

// FIXED METHODS

func (w *Writer) WriteFixed32(v uint32) {
	binary.LittleEndian.PutUint32(w.reserve(4), v)
}

func (w *Writer) WriteFixed64(v uint64) {
	binary.LittleEndian.PutUint64(w.reserve(8), v)
}

func (w *Writer) WriteSfixed32(v int32) { w.WriteFixed32(uint32(v)) }
func (w *Writer) WriteSfixed64(v int64) { w.WriteFixed64(uint64(v)) }
func (w *Writer) WriteFloat(v float32)  { w.WriteFixed32(Float32ToFixed(v)) }
func (w *Writer) WriteDouble(v float64) { w.WriteFixed64(Float64ToFixed(v)) }

// LENGTH-DELIMITED METHODS

// WriteRaw copies b verbatim, without a length prefix
func (w *Writer) WriteRaw(b []byte) {
	copy(w.reserve(len(b)), b)
}

// WriteBytes writes a length prefix followed by b
func (w *Writer) WriteBytes(b []byte) {
	w.WriteVarint(uint64(len(b)))
	w.WriteRaw(b)
}

// WriteBytesSlice writes a length prefix followed by the slice content
func (w *Writer) WriteBytesSlice(s BytesSlice) {
	w.WriteBytes(s.Bytes())
}

// WriteString writes the UTF-8 bytes of s with a length prefix
func (w *Writer) WriteString(s string) {
	w.WriteVarint(uint64(len(s)))
	copy(w.reserve(len(s)), s)
}

// WriteEmbedded writes m's cached size as the length prefix, then m itself.
func (w *Writer) WriteEmbedded(m Message) {
	size := m.Size()
	w.WriteVarint(uint64(size))
	start := w.pos
	m.Serialize(w)
	if written := w.pos - start; written != size {
		panic(&SizeMismatchError{Declared: size, Written: written})
	}
}

// WriteMessage writes an embedded message field
func (w *Writer) WriteMessage(fieldNumber FieldNumber, m Message) {
	w.WriteTag(fieldNumber, WireBytes)
	w.WriteEmbedded(m)
}

// WriteMapEntry writes one map entry as an implicit sub-message: key in field 1, value in
// field 2. keySize and valueSize are the field sizes the callbacks will write.
func (w *Writer) WriteMapEntry(fieldNumber FieldNumber, keySize, valueSize int, writeKey, writeValue func(*Writer)) {
	w.WriteTag(fieldNumber, WireBytes)
	w.WriteVarint(uint64(keySize + valueSize))
	start := w.pos
	writeKey(w)
	writeValue(w)
	if written := w.pos - start; written != keySize+valueSize {
		panic(&SizeMismatchError{Declared: keySize + valueSize, Written: written})
	}
}

// WriteUnknownFields re-serializes every recorded unknown field verbatim
func (w *Writer) WriteUnknownFields(set UnknownFieldSet) {
	set.writeTo(w)
}

// WritePacked writes values as one length-delimited packed field. Nothing is written
// for an empty slice.
func WritePacked[T any](w *Writer, fieldNumber FieldNumber, values []T, size func(T) int, write func(*Writer, T)) {
	payload := SizePacked(values, size)
	if payload == 0 {
		return
	}
	w.WriteTag(fieldNumber, WireBytes)
	w.WriteVarint(uint64(payload))
	for _, v := range values {
		write(w, v)
	}
}

// WritePackedFixed is WritePacked for fixed-width elements
func WritePackedFixed[T any](w *Writer, fieldNumber FieldNumber, values []T, width int, write func(*Writer, T)) {
	if len(values) == 0 {
		return
	}
	w.WriteTag(fieldNumber, WireBytes)
	w.WriteVarint(uint64(len(values) * width))
	for _, v := range values {
		write(w, v)
	}
}
