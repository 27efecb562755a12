package delimited

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/anirudhraja/protocodec/wire"
)

// Reader splits a stream into message payloads. It is not safe for concurrent use.
type Reader struct {
	opts    options
	src     *bufio.Reader
	release func()
	count   int
}

// NewReader returns a Reader on r. For compressed streams the codec header is read
// here, so an empty or corrupt stream can fail immediately.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	o := newOptions(opts)
	src, release, err := decompressor(o.compression, r)
	if err != nil {
		return nil, err
	}
	return &Reader{
		opts:    o,
		src:     bufio.NewReader(src),
		release: release,
	}, nil
}

// Next returns the next message payload. It returns io.EOF when the stream ends on a
// message boundary; a stream that ends anywhere else fails with wire.ErrTruncated.
// The returned slice is owned by the caller.
func (r *Reader) Next() ([]byte, error) {
	size, err := r.readLength()
	if err != nil {
		return nil, err
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.src, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("message %d: %w: want %d bytes", r.count, wire.ErrTruncated, size)
		}
		return nil, err
	}
	r.count++
	return payload, nil
}

func (r *Reader) readLength() (int, error) {
	head, err := r.src.Peek(wire.MaxVarintLen64)
	if len(head) == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, err
	}
	v, n, err := wire.ConsumeVarint(head)
	if err != nil {
		return 0, fmt.Errorf("message %d length: %w", r.count, err)
	}
	if v > uint64(r.opts.maxMessageSize) {
		return 0, fmt.Errorf("message %d: %w: %d > %d bytes", r.count, ErrMessageTooLarge, v, r.opts.maxMessageSize)
	}
	if _, err := r.src.Discard(n); err != nil {
		return 0, err
	}
	return int(v), nil
}

// Count returns the number of messages read
func (r *Reader) Count() int { return r.count }

// Close releases codec resources. It does not close the underlying reader.
func (r *Reader) Close() {
	if r.release != nil {
		r.release()
		r.release = nil
	}
}

// Result is the outcome of decoding one message of a batch
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// ReadAll decodes every message left in r. A message that fails to decode is recorded
// in its Result and does not stop the others; the returned error is set only when the
// framing itself is broken, in which case the results read so far are still returned.
func ReadAll[T any](r *Reader, deserialize wire.Deserializer[T]) ([]Result[T], error) {
	var results []Result[T]
	for {
		payload, err := r.Next()
		if errors.Is(err, io.EOF) {
			return results, nil
		}
		if err != nil {
			return results, err
		}
		res := Result[T]{Index: len(results)}
		res.Value, res.Err = wire.Unmarshal(payload, deserialize)
		results = append(results, res)
	}
}

// Each calls fn for every message in r until fn returns an error
func Each(r *Reader, fn func(payload []byte) error) error {
	for {
		payload, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
}
