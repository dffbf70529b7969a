package lineseek

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultIndexCeiling is the largest line count kept in an exact Index.
// At this size the table costs about 16MB.
const DefaultIndexCeiling = 1_000_000

// ctxCheckInterval is how many lines pass between context checks.
const ctxCheckInterval = 1 << 16

// buildIndex scans src once and records the start and length of every line.
//
// It returns errIndexTooLarge as soon as the line count passes ceiling; the
// partial table is dropped. Any other error is an I/O failure.
func buildIndex(ctx context.Context, src Source, term []byte, ceiling int) (Index, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	lr := newLineReader(rc, term, scanBufferSize)
	var (
		index  Index
		cursor int64
	)
	for {
		length, err := lr.skip()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lineseek: scan %s: %w", src.Name(), err)
		}

		index = append(index, Entry{Start: cursor, Length: length})
		cursor += length

		if len(index) > ceiling {
			return nil, errIndexTooLarge
		}
		if len(index)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return index, nil
}

// countLines counts the lines of src in one pass without retaining them.
func countLines(ctx context.Context, src Source, term []byte) (int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	lr := newLineReader(rc, term, scanBufferSize)
	count := 0
	for {
		_, err := lr.skip()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("lineseek: count %s: %w", src.Name(), err)
		}
		count++
		if count%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
	}
}
