package lineseek

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Line reader
// -----------------------------------------------------------------------------

func TestLineReader_SmallBuffer(t *testing.T) {
	long := strings.Repeat("abcdefghij", 7)
	input := long + "\r\n" + "x\ry\r\n" + long
	tests := []struct {
		name string
		term string
		want []string
	}{
		{"lf", "\n", []string{long + "\r\n", "x\ry\r\n", long}},
		{"crlf", "\r\n", []string{long + "\r\n", "x\ry\r\n", long}},
		{"multi byte", "y\r\n", []string{long + "\r\nx\ry\r\n", long}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := newLineReader(strings.NewReader(input), []byte(tt.term), 16)
			for i, want := range tt.want {
				n, err := lr.skip()
				if err != nil {
					t.Fatalf("skip %d: %v", i, err)
				}
				if n != int64(len(want)) {
					t.Errorf("skip %d = %d, want %d", i, n, len(want))
				}
			}
			if _, err := lr.skip(); !errors.Is(err, io.EOF) {
				t.Errorf("expected io.EOF, got: %v", err)
			}

			lr = newLineReader(strings.NewReader(input), []byte(tt.term), 16)
			for i, want := range tt.want {
				got, err := lr.next()
				if err != nil {
					t.Fatalf("next %d: %v", i, err)
				}
				if string(got) != want {
					t.Errorf("next %d = %q, want %q", i, got, want)
				}
			}
			if _, err := lr.next(); !errors.Is(err, io.EOF) {
				t.Errorf("expected io.EOF, got: %v", err)
			}
		})
	}
}

func TestLineReader_TerminatorSplitAcrossChunks(t *testing.T) {
	// 15 bytes then "\r" lands at the buffer edge of a 16 byte reader.
	input := strings.Repeat("z", 15) + "\r\n" + "tail\r\n"
	lr := newLineReader(strings.NewReader(input), []byte("\r\n"), 16)

	n, err := lr.skip()
	if err != nil || n != 17 {
		t.Fatalf("skip = %d, %v; want 17, nil", n, err)
	}
	n, err = lr.skip()
	if err != nil || n != 6 {
		t.Fatalf("skip = %d, %v; want 6, nil", n, err)
	}
}

// -----------------------------------------------------------------------------
// Offset scanner
// -----------------------------------------------------------------------------

func TestBuildIndex_Entries(t *testing.T) {
	src := NewMemorySource("idx", []byte("ab\n\ncde\nf"))
	index, err := buildIndex(t.Context(), src, []byte("\n"), DefaultIndexCeiling)
	if err != nil {
		t.Fatal(err)
	}
	want := Index{{0, 3}, {3, 1}, {4, 4}, {8, 1}}
	if len(index) != len(want) {
		t.Fatalf("got %d entries, want %d", len(index), len(want))
	}
	for i := range want {
		if index[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, index[i], want[i])
		}
	}
}

func TestBuildIndex_TooLarge(t *testing.T) {
	src := NewMemorySource("big", []byte(strings.Repeat("l\n", 6)))

	index, err := buildIndex(t.Context(), src, []byte("\n"), 5)
	if !errors.Is(err, errIndexTooLarge) {
		t.Fatalf("expected errIndexTooLarge, got: %v", err)
	}
	if index != nil {
		t.Errorf("partial index returned: %d entries", len(index))
	}

	index, err = buildIndex(t.Context(), src, []byte("\n"), 6)
	if err != nil {
		t.Fatalf("at ceiling: %v", err)
	}
	if len(index) != 6 {
		t.Errorf("got %d entries, want 6", len(index))
	}
}

type failingSource struct {
	err error
}

func (f *failingSource) Name() string { return "failing" }

func (f *failingSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(io.MultiReader(strings.NewReader("ok\npartial"), &errReader{f.err})), nil
}

func (f *failingSource) ReaderAt(context.Context) (ReaderAt, error) {
	return nil, f.err
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

func TestNew_ScanIOErrorIsFatal(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := New(t.Context(), &failingSource{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected scan error, got: %v", err)
	}
	if errors.Is(err, errIndexTooLarge) {
		t.Error("I/O error reported as index ceiling")
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		data string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"\n\n\n", 3},
	}
	for _, tt := range tests {
		got, err := countLines(t.Context(), NewMemorySource("c", []byte(tt.data)), []byte("\n"))
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

// -----------------------------------------------------------------------------
// Length estimator
// -----------------------------------------------------------------------------

func newTestEstimator(src Source, probes int) *estimator {
	rng := rand.New(rand.NewPCG(7, 7))
	return &estimator{
		src:        src,
		term:       []byte("\n"),
		seedLines:  DefaultSeedLines,
		probeCount: probes,
		draw:       rng.IntN,
	}
}

func TestEstimator_SeedShorterThanTenLines(t *testing.T) {
	src := NewMemorySource("short", []byte("aaaa\nbb\n"))
	est, err := newTestEstimator(src, 20).estimate(t.Context(), 2)
	if err != nil {
		t.Fatal(err)
	}
	// (5 + 3) / 2
	if est.SeedAverage != 4 {
		t.Errorf("SeedAverage = %d, want 4", est.SeedAverage)
	}
	if est.LineCount != 2 {
		t.Errorf("LineCount = %d, want 2", est.LineCount)
	}
	if est.AvgLineLength <= 0 {
		t.Errorf("AvgLineLength = %d, want > 0", est.AvgLineLength)
	}
}

func TestEstimator_TruncatesMeans(t *testing.T) {
	// Seed over lines of 3, 4 and 4 bytes: 11/3 truncates to 3.
	src := NewMemorySource("trunc", []byte("ab\nabc\nabc\n"))
	est, err := newTestEstimator(src, 10).estimate(t.Context(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if est.SeedAverage != 3 {
		t.Errorf("SeedAverage = %d, want 3", est.SeedAverage)
	}
}

func TestEstimator_ProbePlacement(t *testing.T) {
	src := NewMemorySource("probe", []byte("aaaa\nbbbb\ncccc\ndddd\n"))
	ra, err := src.ReaderAt(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEstimator(src, 1)
	lr := newLineReader(strings.NewReader(""), e.term, probeBufferSize)

	tests := []struct {
		n    int
		seed int64
		want int64
	}{
		{0, 5, 5},
		{2, 5, 5},
		{3, 5, 5},
		{9, 5, 0}, // past EOF
	}
	for _, tt := range tests {
		got, err := e.probe(ra, lr, tt.n, tt.seed)
		if err != nil {
			t.Fatalf("probe(%d): %v", tt.n, err)
		}
		if got != tt.want {
			t.Errorf("probe(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestEstimator_ProbeInsideCRLF(t *testing.T) {
	// Lines of 3 bytes: approxOffset(n, 3) lands on the "\n" of line n-1.
	src := NewMemorySource("crlf", []byte(strings.Repeat("d\r\n", 50)))
	ra, err := src.ReaderAt(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEstimator(src, 1)
	e.term = []byte("\r\n")
	lr := newLineReader(nil, e.term, probeBufferSize)

	for _, n := range []int{0, 1, 2, 25, 49} {
		got, err := e.probe(ra, lr, n, 3)
		if err != nil {
			t.Fatalf("probe(%d): %v", n, err)
		}
		if got != 3 {
			t.Errorf("probe(%d) = %d, want 3", n, got)
		}
	}

	e = newTestEstimator(src, 200)
	e.term = []byte("\r\n")
	est, err := e.estimate(t.Context(), 50)
	if err != nil {
		t.Fatal(err)
	}
	if est.SeedAverage != 3 || est.AvgLineLength != 3 {
		t.Errorf("Estimate = %+v, want seed and average of 3", est)
	}
}

func TestAlignAfter(t *testing.T) {
	data := "ab\r\ncd\r\nef\r\n"
	ra, err := NewMemorySource("align", []byte(data)).ReaderAt(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		pos  int64
		want string
	}{
		{0, "ab\r\n"},
		{1, "cd\r\n"},
		{3, "cd\r\n"}, // on the "\n" of line 0
		{4, "ef\r\n"}, // a line start is dropped like any partial line
		{8, ""},
		{9, ""},
		{40, ""},
	}
	for _, tt := range tests {
		lr := newLineReader(nil, []byte("\r\n"), 16)
		var got []byte
		err := alignAfter(ra, lr, tt.pos)
		if err == nil {
			got, err = lr.next()
		}
		if err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("pos %d: %v", tt.pos, err)
		}
		if string(got) != tt.want {
			t.Errorf("pos %d: got %q, want %q", tt.pos, got, tt.want)
		}
	}
}

func TestApproxOffset(t *testing.T) {
	tests := []struct {
		n    int
		avg  int64
		want int64
	}{
		{0, 10, 0},
		{1, 10, 5},
		{3, 10, 25},
		{3, 7, 18},
		{5, 1, 5},
	}
	for _, tt := range tests {
		if got := approxOffset(tt.n, tt.avg); got != tt.want {
			t.Errorf("approxOffset(%d, %d) = %d, want %d", tt.n, tt.avg, got, tt.want)
		}
	}
}
