// Package convert maps codec primitive values to richer domain types. The codec only
// ever sees the primitive side; converters sit in the code that builds and reads
// messages.
package convert

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidValue = errors.New("invalid value")

// Converter maps a primitive P carried on the wire to a domain type D. Wrap may fail
// on primitive values that have no domain representation; Unwrap is total.
type Converter[P, D any] interface {
	Wrap(P) (D, error)
	Unwrap(D) P
}

// Func builds a Converter from a pair of functions
type Func[P, D any] struct {
	WrapFunc   func(P) (D, error)
	UnwrapFunc func(D) P
}

func (f Func[P, D]) Wrap(p P) (D, error) { return f.WrapFunc(p) }
func (f Func[P, D]) Unwrap(d D) P        { return f.UnwrapFunc(d) }

// WrapAll converts every element of a repeated field, stopping at the first failure
func WrapAll[P, D any](c Converter[P, D], values []P) ([]D, error) {
	out := make([]D, len(values))
	for i, v := range values {
		d, err := c.Wrap(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

// UnwrapAll is the inverse of WrapAll
func UnwrapAll[P, D any](c Converter[P, D], values []D) []P {
	out := make([]P, len(values))
	for i, v := range values {
		out[i] = c.Unwrap(v)
	}
	return out
}

// UUID carries a uuid.UUID as 16 raw bytes. An empty payload is uuid.Nil, so an unset
// proto3 bytes field reads back as the nil UUID.
type UUID struct{}

func (UUID) Wrap(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: uuid: %v", ErrInvalidValue, err)
	}
	return id, nil
}

func (UUID) Unwrap(id uuid.UUID) []byte {
	if id == uuid.Nil {
		return nil
	}
	b := id
	return b[:]
}

// UUIDString carries a uuid.UUID in its canonical text form
type UUIDString struct{}

func (UUIDString) Wrap(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: uuid: %v", ErrInvalidValue, err)
	}
	return id, nil
}

func (UUIDString) Unwrap(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// UnixNanos carries a time.Time as nanoseconds since the Unix epoch. The zero value
// maps to zero nanoseconds and back to the zero time.Time, keeping unset fields unset.
type UnixNanos struct{}

func (UnixNanos) Wrap(n int64) (time.Time, error) {
	if n == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, n).UTC(), nil
}

func (UnixNanos) Unwrap(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// UnixMillis is UnixNanos at millisecond precision
type UnixMillis struct{}

func (UnixMillis) Wrap(ms int64) (time.Time, error) {
	if ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (UnixMillis) Unwrap(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Duration carries a time.Duration as nanoseconds
type Duration struct{}

func (Duration) Wrap(n int64) (time.Duration, error) { return time.Duration(n), nil }
func (Duration) Unwrap(d time.Duration) int64        { return int64(d) }

// DurationMillis carries a time.Duration as whole milliseconds. Wrap rejects values
// that overflow time.Duration.
type DurationMillis struct{}

func (DurationMillis) Wrap(ms int64) (time.Duration, error) {
	if ms > math.MaxInt64/int64(time.Millisecond) || ms < math.MinInt64/int64(time.Millisecond) {
		return 0, fmt.Errorf("%w: %dms overflows time.Duration", ErrInvalidValue, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (DurationMillis) Unwrap(d time.Duration) int64 { return d.Milliseconds() }

var (
	_ Converter[[]byte, uuid.UUID]    = UUID{}
	_ Converter[string, uuid.UUID]    = UUIDString{}
	_ Converter[int64, time.Time]     = UnixNanos{}
	_ Converter[int64, time.Time]     = UnixMillis{}
	_ Converter[int64, time.Duration] = Duration{}
	_ Converter[int64, time.Duration] = DurationMillis{}
)
