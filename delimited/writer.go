// Package delimited reads and writes streams of protobuf messages, each prefixed by
// its varint-encoded length, the framing used by writeDelimitedTo/parseDelimitedFrom
// in other protobuf runtimes.
package delimited

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/anirudhraja/protocodec/wire"
)

var (
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
	ErrClosed          = errors.New("stream closed")
)

// Writer appends length-prefixed messages to a stream. It is not safe for concurrent
// use.
type Writer struct {
	opts   options
	codec  io.WriteCloser
	out    *bufio.Writer
	buf    []byte
	count  int
	closed bool
}

// NewWriter returns a Writer on w. Close must be called to flush buffered and
// compressed data; it does not close w.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	o := newOptions(opts)
	codec, err := compressor(o.compression, w)
	if err != nil {
		return nil, err
	}
	return &Writer{
		opts:  o,
		codec: codec,
		out:   bufio.NewWriter(codec),
	}, nil
}

// WriteMessage encodes m with its length prefix
func (w *Writer) WriteMessage(m wire.Message) error {
	if w.closed {
		return ErrClosed
	}
	size := m.Size()
	if err := w.checkSize(size); err != nil {
		return err
	}
	total := wire.SizeVarint(uint64(size)) + size
	if cap(w.buf) < total {
		w.buf = make([]byte, total)
	}
	buf := w.buf[:total]
	ww := wire.NewWriter(buf)
	ww.WriteVarint(uint64(size))
	m.Serialize(ww)
	if ww.Offset() != total {
		panic(&wire.SizeMismatchError{Declared: size, Written: ww.Offset() - (total - size)})
	}
	return w.write(buf)
}

// WriteRaw writes an already encoded message with its length prefix
func (w *Writer) WriteRaw(payload []byte) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.checkSize(len(payload)); err != nil {
		return err
	}
	var prefix [wire.MaxVarintLen64]byte
	n := wire.PutVarint(prefix[:], uint64(len(payload)))
	if _, err := w.out.Write(prefix[:n]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	return w.write(payload)
}

func (w *Writer) write(b []byte) error {
	if _, err := w.out.Write(b); err != nil {
		return fmt.Errorf("failed to write message %d: %w", w.count, err)
	}
	w.count++
	return nil
}

func (w *Writer) checkSize(size int) error {
	if size > w.opts.maxMessageSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrMessageTooLarge, size, w.opts.maxMessageSize)
	}
	return nil
}

// Count returns the number of messages written
func (w *Writer) Count() int { return w.count }

// Flush pushes buffered messages to the codec. Compressed streams may still hold data
// until Close.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return w.out.Flush()
}

// Close flushes all data and finishes the compressed stream
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream: %w", err)
	}
	if err := w.codec.Close(); err != nil {
		return fmt.Errorf("failed to close %s stream: %w", w.opts.compression, err)
	}
	return nil
}
