// Package stream turns the backend's chunked NDJSON byte stream into
// typed events.
//
// Two stages, both synchronous:
//   - LineSplitter: raw chunks -> complete text lines, carrying one partial
//     line (and any split multi-byte character) across chunk boundaries
//   - DecodeLine: one line -> StartEvent, EndEvent or TaskEvent, or a
//     *DecodeError that the caller logs and skips
package stream

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeBufSize is the scratch size for one decoder pass.
const decodeBufSize = 4096

var (
	utf8BOM = []byte("\xef\xbb\xbf")
	cr      = []byte("\r")
)

// LineSplitter splits a chunked byte stream into newline-terminated lines.
//
// Bytes are decoded as UTF-8 with a streaming decoder: a multi-byte
// character split across chunks is held until the rest arrives, invalid
// bytes become U+FFFD and a leading byte order mark is dropped.
// After every Feed the carry holds at most one unterminated line.
//
// A LineSplitter is not safe for concurrent use.
type LineSplitter struct {
	decoder transform.Transformer
	// pending holds the undecoded bytes of an incomplete character.
	// It never contains a newline.
	pending []byte
	// carry holds decoded text not yet terminated by a newline.
	carry      []byte
	bomChecked bool
	scratch    [decodeBufSize]byte
}

// NewLineSplitter creates a splitter with an empty carry buffer.
func NewLineSplitter() *LineSplitter {
	return &LineSplitter{decoder: unicode.UTF8.NewDecoder()}
}

// Feed consumes one chunk and returns the lines it completed, in order.
// Lines are returned without their terminator; a trailing "\r" is trimmed.
// Blank lines are returned as-is.
func (s *LineSplitter) Feed(chunk []byte) []string {
	s.decode(chunk, false)
	return s.drainLines()
}

// Finish flushes the decoder and returns the unterminated remainder, if any.
// An incomplete trailing character is emitted as U+FFFD.
// The splitter is empty afterwards.
func (s *LineSplitter) Finish() (string, bool) {
	s.decode(nil, true)
	tail := string(bytes.TrimSuffix(s.carry, cr))
	s.carry = s.carry[:0]
	return tail, tail != ""
}

// Buffered returns the number of bytes held across chunk boundaries.
func (s *LineSplitter) Buffered() int {
	return len(s.carry) + len(s.pending)
}

// Reset discards all buffered state.
func (s *LineSplitter) Reset() {
	s.decoder = unicode.UTF8.NewDecoder()
	s.pending = nil
	s.carry = nil
	s.bomChecked = false
}

func (s *LineSplitter) decode(chunk []byte, atEOF bool) {
	src := chunk
	if len(s.pending) > 0 {
		src = append(s.pending, chunk...)
		s.pending = nil
	}

	for {
		nDst, nSrc, err := s.decoder.Transform(s.scratch[:], src, atEOF)
		s.carry = append(s.carry, s.scratch[:nDst]...)
		src = src[nSrc:]

		switch err {
		case nil:
			s.stripBOM()
			return
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				// No progress possible with this scratch size.
				s.carry = append(s.carry, src...)
				s.stripBOM()
				return
			}
		case transform.ErrShortSrc:
			s.pending = bytes.Clone(src)
			s.stripBOM()
			return
		default:
			s.carry = append(s.carry, src...)
			s.stripBOM()
			return
		}
	}
}

// stripBOM drops a byte order mark at the very start of the stream.
// The check happens once, as soon as any text has been decoded; the
// decoder only emits whole characters, so a BOM is never seen in part.
func (s *LineSplitter) stripBOM() {
	if s.bomChecked || len(s.carry) == 0 {
		return
	}
	s.carry = bytes.TrimPrefix(s.carry, utf8BOM)
	s.bomChecked = true
}

func (s *LineSplitter) drainLines() []string {
	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(s.carry[start:], '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(s.carry[start:start+i], cr)
		lines = append(lines, string(line))
		start += i + 1
	}
	if start > 0 {
		s.carry = append(s.carry[:0], s.carry[start:]...)
	}
	return lines
}
