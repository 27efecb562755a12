package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Decode errors. Every one of them aborts the current decode call.
var (
	ErrTruncated           = errors.New("unexpected end of buffer")
	ErrVarintOverflow      = errors.New("varint overflows 64 bits")
	ErrInvalidFieldNumber  = errors.New("invalid field number")
	ErrInvalidWireType     = errors.New("invalid wire type")
	ErrUnsupportedWireType = errors.New("unsupported wire type")
	ErrLengthMismatch      = errors.New("embedded message length mismatch")
	ErrDepthExceeded       = errors.New("message nesting too deep")
)

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["order", "items", "3"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// WrapField prefixes the field path of err with fieldName. Nested decoders call it on
// the way out so the final error names the full path to the failing field.
func WrapField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}

// OverflowError is the panic value raised when a Writer runs out of room. It means the
// size calculation and the write path disagree, which is a bug in the message type.
type OverflowError struct {
	Offset   int // write position when the overflow happened
	Need     int // bytes the failing write required
	Capacity int // total buffer length
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("wire: writer overflow at offset %d: need %d bytes, buffer holds %d", e.Offset, e.Need, e.Capacity)
}

// SizeMismatchError is the panic value raised when a message writes a different number
// of bytes than its Size reported.
type SizeMismatchError struct {
	Declared int
	Written  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("wire: message declared size %d but wrote %d bytes", e.Declared, e.Written)
}
