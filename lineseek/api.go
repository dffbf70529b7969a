// Package lineseek provides random-access sampling of lines from large
// delimited text files.
//
// A Sampler resolves a line number to the bytes of that line without loading
// the file into memory. Small files get an exact per-line offset index built
// in one sequential pass. Files past the index ceiling fall back to a single
// estimated average line length, and lines are located by seeking to an
// approximate offset. Storage is pluggable through Source.
package lineseek

import (
	"context"
	"errors"
	"io"
)

// -----------------------------------------------------------------------------
// Core types
// -----------------------------------------------------------------------------

// Entry locates one physical line in a file.
//
// Length includes the line terminator. Entries in an Index are contiguous:
// entry[i].Start == entry[i-1].Start + entry[i-1].Length.
type Entry struct {
	// Start is the byte offset of the first byte of the line.
	Start int64

	// Length is the byte count of the line, terminator included.
	Length int64
}

// End returns the offset one past the last byte of the line.
func (e Entry) End() int64 {
	return e.Start + e.Length
}

// Index is the exact line table of a file, ordered by line number.
type Index []Entry

// Estimate is the statistical model used when no Index is kept.
type Estimate struct {
	// LineCount is the exact number of lines, from a full counting pass.
	LineCount int

	// AvgLineLength is the sampled mean line length in bytes.
	AvgLineLength int64

	// SeedAverage is the mean length of the first few lines, used only to
	// place the probes that produced AvgLineLength.
	SeedAverage int64
}

// offset returns the seek position used to reach line n.
// The position backs off half an average line so it lands inside line n-1.
func (e Estimate) offset(n int) int64 {
	return approxOffset(n, e.AvgLineLength)
}

func approxOffset(n int, avg int64) int64 {
	if n == 0 {
		return 0
	}
	return int64(n)*avg - avg/2
}

// -----------------------------------------------------------------------------
// Mode
// -----------------------------------------------------------------------------

// ModeKind names the retrieval strategy of a Sampler.
type ModeKind int

// Mode kinds.
const (
	ModeExact ModeKind = iota
	ModeEstimated
)

func (k ModeKind) String() string {
	switch k {
	case ModeExact:
		return "exact"
	case ModeEstimated:
		return "estimated"
	default:
		return "unknown"
	}
}

// Mode is the retrieval strategy chosen when a Sampler is built.
// It is one of ExactMode or EstimatedMode and never changes afterwards.
type Mode interface {
	// Kind reports which strategy is active.
	Kind() ModeKind

	// LineCount returns the number of lines in the file.
	LineCount() int

	isMode()
}

// ExactMode resolves lines through a complete Index.
type ExactMode struct {
	index Index
}

// Kind returns ModeExact.
func (ExactMode) Kind() ModeKind { return ModeExact }

// LineCount returns the number of indexed lines.
func (m ExactMode) LineCount() int { return len(m.index) }

func (ExactMode) isMode() {}

// EstimatedMode resolves lines through an Estimate.
type EstimatedMode struct {
	estimate Estimate
}

// Kind returns ModeEstimated.
func (EstimatedMode) Kind() ModeKind { return ModeEstimated }

// LineCount returns the counted number of lines.
func (m EstimatedMode) LineCount() int { return m.estimate.LineCount }

// Estimate returns the model backing this mode.
func (m EstimatedMode) Estimate() Estimate { return m.estimate }

func (EstimatedMode) isMode() {}

// -----------------------------------------------------------------------------
// Source interface
// -----------------------------------------------------------------------------

// Source abstracts the storage holding the sampled file.
//
// Implementations may target local files, memory, S3, or other object
// stores. Every call acquires a fresh handle; nothing is held between calls.
type Source interface {
	// Name identifies the source (a path or object key).
	Name() string

	// Open returns a sequential reader over the whole file.
	// The caller must close the reader when done.
	// Returns ErrNotFound if the file does not exist.
	Open(ctx context.Context) (io.ReadCloser, error)

	// ReaderAt returns a random-access reader over the file.
	// The caller must close the reader when done.
	// Returns ErrNotFound if the file does not exist.
	ReaderAt(ctx context.Context) (ReaderAt, error)
}

// ReaderAt provides scoped random access to a file.
type ReaderAt interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the file in bytes when it was opened.
	Size() int64
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates the sampled file does not exist.
	ErrNotFound = errNotFound{}

	// ErrOutOfRange indicates a line number outside [0, line count).
	ErrOutOfRange = errOutOfRange{}

	// ErrTooManyRequested indicates a batch or sample larger than the file.
	ErrTooManyRequested = errTooManyRequested{}

	// ErrSchemaMismatch indicates a row whose field count differs from the header.
	ErrSchemaMismatch = errSchemaMismatch{}
)

// ErrInvalidPath indicates an empty or otherwise unusable file path or key.
var ErrInvalidPath = errors.New("invalid path")

// ErrInvalidOption indicates an option value that cannot be applied.
var ErrInvalidOption = errors.New("invalid option")

// errIndexTooLarge signals that the exact scan passed the line ceiling.
// It selects estimated mode and is never returned to callers.
var errIndexTooLarge = errors.New("line index exceeds ceiling")

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type errOutOfRange struct{}

func (errOutOfRange) Error() string { return "line number out of range" }

type errTooManyRequested struct{}

func (errTooManyRequested) Error() string { return "more lines requested than the file holds" }

type errSchemaMismatch struct{}

func (errSchemaMismatch) Error() string { return "row and header have different lengths" }
