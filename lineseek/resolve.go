package lineseek

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// resolver turns a line number into the bytes of that line.
type resolver struct {
	src  Source
	term []byte
	mode Mode
}

// resolve returns line n, terminator included.
//
// In exact mode the bytes are exactly those scanned for line n. In estimated
// mode the line is found by seeking to an approximate offset and may be a
// neighbour of n, or partial near the end of the file.
func (r *resolver) resolve(ctx context.Context, n int) ([]byte, error) {
	if n < 0 || n >= r.mode.LineCount() {
		return nil, fmt.Errorf("lineseek: line %d of %d: %w", n, r.mode.LineCount(), ErrOutOfRange)
	}

	ra, err := r.src.ReaderAt(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ra.Close() }()

	switch m := r.mode.(type) {
	case ExactMode:
		return readEntry(ra, m.index[n])
	case EstimatedMode:
		return r.readNear(ra, m.estimate.offset(n))
	default:
		return nil, fmt.Errorf("lineseek: unknown mode %T", m)
	}
}

// readEntry reads exactly the bytes recorded for one line.
func readEntry(ra ReaderAt, e Entry) ([]byte, error) {
	buf := make([]byte, e.Length)
	n, err := ra.ReadAt(buf, e.Start)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("lineseek: read %d bytes at %d: %w", e.Length, e.Start, err)
}

// readNear returns the first full line after pos, or the first line when pos
// is zero. Past the end of the file it returns an empty line.
func (r *resolver) readNear(ra ReaderAt, pos int64) ([]byte, error) {
	lr := newLineReader(nil, r.term, probeBufferSize)
	if err := alignAfter(ra, lr, pos); err != nil {
		if errors.Is(err, io.EOF) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("lineseek: read at %d: %w", pos, err)
	}
	line, err := lr.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("lineseek: read at %d: %w", pos, err)
	}
	return line, nil
}

// alignAfter points lr at the start of the line following the one that
// holds byte pos, or at the file start when pos is zero. It returns io.EOF
// when no line follows.
//
// Reading starts len(term)-1 bytes early so a terminator straddling pos is
// matched whole rather than as a lone suffix.
func alignAfter(ra ReaderAt, lr *lineReader, pos int64) error {
	size := ra.Size()
	pos = min(pos, size)
	if pos == 0 {
		lr.reset(io.NewSectionReader(ra, 0, size))
		return nil
	}
	start := max(pos-int64(len(lr.term)-1), 0)
	lr.reset(io.NewSectionReader(ra, start, size-start))
	_, err := lr.skip()
	return err
}
