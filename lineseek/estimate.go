package lineseek

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
)

// Estimation defaults.
const (
	// DefaultSeedLines is how many leading lines form the seed average.
	DefaultSeedLines = 10

	// DefaultProbeCount is how many random lines are measured.
	DefaultProbeCount = 1000
)

// estimator measures the average line length of a file by sampling.
type estimator struct {
	src        Source
	term       []byte
	seedLines  int
	probeCount int
	draw       func(n int) int
}

// estimate builds the model for a file of lineCount lines.
//
// The seed average over the leading lines places the probes; the mean length
// of the probed lines is the result. Probe line numbers are drawn with
// replacement.
func (e *estimator) estimate(ctx context.Context, lineCount int) (Estimate, error) {
	est := Estimate{LineCount: lineCount}
	if lineCount == 0 {
		return est, nil
	}

	ra, err := e.src.ReaderAt(ctx)
	if err != nil {
		return Estimate{}, err
	}
	defer func() { _ = ra.Close() }()

	lr := newLineReader(io.NewSectionReader(ra, 0, ra.Size()), e.term, probeBufferSize)

	seed, err := e.seedAverage(lr)
	if err != nil {
		return Estimate{}, fmt.Errorf("lineseek: seed average %s: %w", e.src.Name(), err)
	}
	est.SeedAverage = seed

	var total int64
	for i := 0; i < e.probeCount; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Estimate{}, err
			}
		}
		length, err := e.probe(ra, lr, e.draw(lineCount), seed)
		if err != nil {
			return Estimate{}, fmt.Errorf("lineseek: probe %s: %w", e.src.Name(), err)
		}
		total += length
	}

	est.AvgLineLength = truncMean(total, e.probeCount)
	if est.AvgLineLength == 0 {
		est.AvgLineLength = seed
	}
	return est, nil
}

// seedAverage returns the truncated mean length of the first seedLines lines.
func (e *estimator) seedAverage(lr *lineReader) (int64, error) {
	var total int64
	n := 0
	for n < e.seedLines {
		length, err := lr.skip()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		total += length
		n++
	}
	return truncMean(total, n), nil
}

// probe measures the line found after seeking near line n.
// A probe past the end of the file measures zero bytes.
func (e *estimator) probe(ra ReaderAt, lr *lineReader, n int, seed int64) (int64, error) {
	if err := alignAfter(ra, lr, approxOffset(n, seed)); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}
	length, err := lr.skip()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	return length, err
}

func truncMean(total int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return int64(float64(total) / float64(n))
}

// newRand returns a generator seeded from runtime entropy.
func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
