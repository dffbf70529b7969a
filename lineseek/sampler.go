package lineseek

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
)

// -----------------------------------------------------------------------------
// Sampler Configuration
// -----------------------------------------------------------------------------

// samplerConfig holds the resolved configuration for a sampler.
type samplerConfig struct {
	terminator []byte
	estimate   bool
	ceiling    int
	rng        *rand.Rand
	seedLines  int
	probeCount int
	logger     *slog.Logger
}

// Option configures Sampler construction.
type Option interface {
	applySampler(*samplerConfig) error
}

type optionFunc func(*samplerConfig) error

func (f optionFunc) applySampler(cfg *samplerConfig) error {
	return f(cfg)
}

// WithTerminator sets the line terminator.
// Default: "\n". Any non-empty byte sequence is accepted, e.g. "\r\n".
func WithTerminator(term string) Option {
	return optionFunc(func(cfg *samplerConfig) error {
		if term == "" {
			return fmt.Errorf("WithTerminator: empty terminator: %w", ErrInvalidOption)
		}
		cfg.terminator = []byte(term)
		return nil
	})
}

// WithEstimate forces estimated mode even when an exact index would fit.
// Default: false.
func WithEstimate(estimate bool) Option {
	return optionFunc(func(cfg *samplerConfig) error {
		cfg.estimate = estimate
		return nil
	})
}

// WithIndexCeiling sets the largest line count kept in an exact index.
// Default: DefaultIndexCeiling.
func WithIndexCeiling(lines int) Option {
	return optionFunc(func(cfg *samplerConfig) error {
		if lines < 0 {
			return fmt.Errorf("WithIndexCeiling: negative ceiling %d: %w", lines, ErrInvalidOption)
		}
		cfg.ceiling = lines
		return nil
	})
}

// WithRand sets the generator used for random line numbers and estimation
// probes. Pass a seeded generator for reproducible samples.
// Default: a PCG generator seeded from runtime entropy.
func WithRand(rng *rand.Rand) Option {
	return optionFunc(func(cfg *samplerConfig) error {
		if rng == nil {
			return fmt.Errorf("WithRand: nil generator: %w", ErrInvalidOption)
		}
		cfg.rng = rng
		return nil
	})
}

// WithSeedLines sets how many leading lines form the seed average.
// Default: DefaultSeedLines.
func WithSeedLines(n int) Option {
	return optionFunc(func(cfg *samplerConfig) error {
		if n < 1 {
			return fmt.Errorf("WithSeedLines: %d: %w", n, ErrInvalidOption)
		}
		cfg.seedLines = n
		return nil
	})
}

// WithProbeCount sets how many random lines are measured for the estimate.
// Default: DefaultProbeCount.
func WithProbeCount(n int) Option {
	return optionFunc(func(cfg *samplerConfig) error {
		if n < 1 {
			return fmt.Errorf("WithProbeCount: %d: %w", n, ErrInvalidOption)
		}
		cfg.probeCount = n
		return nil
	})
}

// WithLogger sets the logger for construction decisions.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(cfg *samplerConfig) error {
		if logger == nil {
			return fmt.Errorf("WithLogger: nil logger: %w", ErrInvalidOption)
		}
		cfg.logger = logger
		return nil
	})
}

// -----------------------------------------------------------------------------
// Sampler
// -----------------------------------------------------------------------------

// Sampler retrieves lines of one file by line number.
//
// The mode, and the index or estimate behind it, are fixed at construction.
// Reads open and close their own handle, so a Sampler is safe for concurrent
// use. Writes to the file after construction are not detected.
type Sampler struct {
	src      Source
	resolver *resolver

	mu  sync.Mutex
	rng *rand.Rand
}

// Open creates a Sampler over the local file at path.
func Open(ctx context.Context, path string, opts ...Option) (*Sampler, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, src, opts...)
}

// New creates a Sampler over src.
//
// Defaults:
//   - Terminator: "\n"
//   - Mode: exact when the file has at most DefaultIndexCeiling lines,
//     estimated otherwise
//   - Estimation: DefaultSeedLines seed lines, DefaultProbeCount probes
//
// The exact index is attempted first unless WithEstimate(true) is given.
// Passing the ceiling switches to estimated mode; I/O errors fail
// construction.
func New(ctx context.Context, src Source, opts ...Option) (*Sampler, error) {
	if src == nil {
		return nil, errors.New("lineseek: source is required")
	}

	cfg := &samplerConfig{
		terminator: []byte("\n"),
		ceiling:    DefaultIndexCeiling,
		seedLines:  DefaultSeedLines,
		probeCount: DefaultProbeCount,
	}
	for _, opt := range opts {
		if err := opt.applySampler(cfg); err != nil {
			return nil, fmt.Errorf("lineseek: %w", err)
		}
	}
	if cfg.rng == nil {
		cfg.rng = newRand()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Sampler{src: src, rng: cfg.rng}
	mode, err := s.buildMode(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.resolver = &resolver{src: src, term: cfg.terminator, mode: mode}
	return s, nil
}

func (s *Sampler) buildMode(ctx context.Context, cfg *samplerConfig) (Mode, error) {
	log := cfg.logger.With("source", s.src.Name())

	if !cfg.estimate {
		index, err := buildIndex(ctx, s.src, cfg.terminator, cfg.ceiling)
		if err == nil {
			log.DebugContext(ctx, "exact index built", "lines", len(index))
			return ExactMode{index: index}, nil
		}
		if !errors.Is(err, errIndexTooLarge) {
			return nil, err
		}
		log.DebugContext(ctx, "line count exceeds index ceiling, estimating", "ceiling", cfg.ceiling)
	}

	lineCount, err := countLines(ctx, s.src, cfg.terminator)
	if err != nil {
		return nil, err
	}
	est := &estimator{
		src:        s.src,
		term:       cfg.terminator,
		seedLines:  cfg.seedLines,
		probeCount: cfg.probeCount,
		draw:       s.intN,
	}
	model, err := est.estimate(ctx, lineCount)
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "line length estimated",
		"lines", model.LineCount,
		"seed_average", model.SeedAverage,
		"average", model.AvgLineLength)
	return EstimatedMode{estimate: model}, nil
}

// Name returns the name of the underlying source.
func (s *Sampler) Name() string {
	return s.src.Name()
}

// Mode returns the retrieval strategy in use.
func (s *Sampler) Mode() Mode {
	return s.resolver.mode
}

// Estimated reports whether lines are located by estimate.
func (s *Sampler) Estimated() bool {
	return s.resolver.mode.Kind() == ModeEstimated
}

// LineCount returns the number of lines in the file.
func (s *Sampler) LineCount() int {
	return s.resolver.mode.LineCount()
}

// Entry returns the index entry of line n.
// It reports false in estimated mode or when n is out of range.
func (s *Sampler) Entry(n int) (Entry, bool) {
	m, ok := s.resolver.mode.(ExactMode)
	if !ok || n < 0 || n >= len(m.index) {
		return Entry{}, false
	}
	return m.index[n], true
}

// Estimate returns the estimation model.
// It reports false in exact mode.
func (s *Sampler) Estimate() (Estimate, bool) {
	m, ok := s.resolver.mode.(EstimatedMode)
	if !ok {
		return Estimate{}, false
	}
	return m.estimate, true
}

// Line returns line n (0-based), terminator included.
// Returns ErrOutOfRange when n is negative or not below LineCount.
func (s *Sampler) Line(ctx context.Context, n int) (string, error) {
	line, err := s.resolver.resolve(ctx, n)
	if err != nil {
		return "", err
	}
	return string(line), nil
}

// Lines returns the requested lines in input order.
// Numbers may repeat. Returns ErrTooManyRequested when more numbers are given
// than the file has lines.
func (s *Sampler) Lines(ctx context.Context, ns []int) ([]string, error) {
	if len(ns) > s.LineCount() {
		return nil, fmt.Errorf("lineseek: %d lines requested from %d: %w", len(ns), s.LineCount(), ErrTooManyRequested)
	}
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		line, err := s.Line(ctx, n)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Random returns k lines drawn uniformly with replacement.
// Returns ErrTooManyRequested when k exceeds LineCount.
func (s *Sampler) Random(ctx context.Context, k int) ([]string, error) {
	ns, err := s.Draw(k)
	if err != nil {
		return nil, err
	}
	return s.Lines(ctx, ns)
}

// Draw returns k line numbers drawn uniformly with replacement.
func (s *Sampler) Draw(k int) ([]int, error) {
	return s.drawBelow(k, s.LineCount())
}

// drawBelow draws k numbers in [0, bound) with replacement.
func (s *Sampler) drawBelow(k, bound int) ([]int, error) {
	if k < 0 {
		return nil, fmt.Errorf("lineseek: negative sample size %d: %w", k, ErrOutOfRange)
	}
	if k > bound {
		return nil, fmt.Errorf("lineseek: %d lines requested from %d: %w", k, bound, ErrTooManyRequested)
	}
	ns := make([]int, k)
	s.mu.Lock()
	for i := range ns {
		ns[i] = s.rng.IntN(bound)
	}
	s.mu.Unlock()
	return ns, nil
}

func (s *Sampler) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
