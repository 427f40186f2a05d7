// Package transport provides the chunk sources the ingestion engine reads.
//
// A source yields raw byte chunks in arrival order. Chunk boundaries carry
// no meaning: they may split a line, a JSON token or a multi-byte
// character anywhere.
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// DefaultChunkSize is the read size used when none is given.
const DefaultChunkSize = 4096

// ChunkSource yields raw byte chunks of the backend stream.
type ChunkSource interface {
	// Next returns the next non-empty chunk.
	// Returns io.EOF once the stream has ended cleanly. Any other error
	// is a transport failure and is terminal.
	Next(ctx context.Context) ([]byte, error)
	// Close releases the underlying connection or file.
	Close() error
}

// ReaderSource adapts an io.Reader into a ChunkSource.
// Each Next call performs at most one successful Read, so a streaming
// body is surfaced as soon as bytes arrive.
type ReaderSource struct {
	r       io.Reader
	buf     []byte
	pending error
}

// NewReaderSource creates a ReaderSource reading up to chunkSize bytes per
// chunk. A non-positive size uses DefaultChunkSize. If r is an io.Closer,
// Close closes it.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{r: r, buf: make([]byte, chunkSize)}
}

// Next implements ChunkSource.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pending != nil {
		return nil, s.pending
	}

	for {
		n, err := s.r.Read(s.buf)
		if n > 0 {
			// Deliver the bytes now and report the error on the next call.
			if err != nil {
				s.pending = err
			}
			return bytes.Clone(s.buf[:n]), nil
		}
		if err != nil {
			s.pending = err
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Close implements ChunkSource.
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SliceSource replays a fixed list of chunks. Used by tests and replays
// that need exact control over chunk boundaries.
type SliceSource struct {
	chunks [][]byte
	// Err, when set, is returned instead of io.EOF after the last chunk.
	Err    error
	closed bool
}

// NewSliceSource creates a SliceSource over chunks. Empty chunks are skipped.
func NewSliceSource(chunks ...[]byte) *SliceSource {
	kept := make([][]byte, 0, len(chunks))
	for _, c := range chunks {
		if len(c) > 0 {
			kept = append(kept, c)
		}
	}
	return &SliceSource{chunks: kept}
}

// Next implements ChunkSource.
func (s *SliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, errors.New("source closed")
	}
	if len(s.chunks) == 0 {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return bytes.Clone(c), nil
}

// Close implements ChunkSource.
func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}
