package lineseek

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const (
	// scanBufferSize is the read buffer for sequential passes.
	scanBufferSize = 256 * 1024

	// probeBufferSize is the read buffer for single-line reads at an offset.
	// Longer lines are read in several chunks.
	probeBufferSize = 4 * 1024
)

// lineReader splits a byte stream on an arbitrary terminator.
// Returned lines keep their terminator; a trailing unterminated line is
// returned as-is.
type lineReader struct {
	r    *bufio.Reader
	term []byte
	tail []byte // last len(term) bytes of the current line
}

func newLineReader(r io.Reader, term []byte, size int) *lineReader {
	return &lineReader{
		r:    bufio.NewReaderSize(r, size),
		term: term,
		tail: make([]byte, 0, len(term)),
	}
}

// reset points the reader at a new stream, keeping its buffer.
func (lr *lineReader) reset(r io.Reader) {
	lr.r.Reset(r)
	lr.tail = lr.tail[:0]
}

// skip consumes one line and returns its length.
// It returns io.EOF only when no bytes remain.
func (lr *lineReader) skip() (int64, error) {
	var n int64
	lr.tail = lr.tail[:0]
	last := lr.term[len(lr.term)-1]
	for {
		chunk, err := lr.r.ReadSlice(last)
		n += int64(len(chunk))
		lr.keepTail(chunk)
		switch {
		case err == nil:
			if bytes.Equal(lr.tail, lr.term) {
				return n, nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		default:
			return n, err
		}
	}
}

// next reads one line and returns a copy of its bytes.
// It returns io.EOF only when no bytes remain.
func (lr *lineReader) next() ([]byte, error) {
	var line []byte
	last := lr.term[len(lr.term)-1]
	for {
		chunk, err := lr.r.ReadBytes(last)
		if line == nil {
			line = chunk
		} else {
			line = append(line, chunk...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return line, nil
			}
			return line, err
		}
		if bytes.HasSuffix(line, lr.term) {
			return line, nil
		}
	}
}

func (lr *lineReader) keepTail(chunk []byte) {
	k := len(lr.term)
	if len(chunk) >= k {
		lr.tail = append(lr.tail[:0], chunk[len(chunk)-k:]...)
		return
	}
	lr.tail = append(lr.tail, chunk...)
	if len(lr.tail) > k {
		lr.tail = append(lr.tail[:0], lr.tail[len(lr.tail)-k:]...)
	}
}
