package lineseek

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compressor handles compression and decompression of data streams.
//
// Compressed files cannot be range-read line by line, so a Sampler reads
// them through a SpooledSource that decompresses once into a temp file.
type Compressor interface {
	// Name returns the compressor identifier (for example, "gzip", "zstd", "noop").
	Name() string

	// Extension returns the file extension (for example, ".gz", ".zst", "").
	Extension() string

	// Compress wraps a writer with compression.
	Compress(w io.Writer) (io.WriteCloser, error)

	// Decompress wraps a reader with decompression.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// CompressorFor picks a compressor from the extension of name.
// Unknown extensions get the noop compressor.
func CompressorFor(name string) Compressor {
	for _, c := range []*streamCompressor{gzipStream, zstdStream} {
		if strings.HasSuffix(name, c.ext) {
			return c
		}
	}
	return noopStream
}

// NewGzipCompressor creates a gzip compressor.
func NewGzipCompressor() Compressor { return gzipStream }

// NewZstdCompressor creates a zstd compressor.
func NewZstdCompressor() Compressor { return zstdStream }

// NewNoOpCompressor creates a compressor that passes data through unchanged.
func NewNoOpCompressor() Compressor { return noopStream }

// streamCompressor adapts a pair of stream constructors to Compressor.
type streamCompressor struct {
	name   string
	ext    string
	writer func(io.Writer) (io.WriteCloser, error)
	reader func(io.Reader) (io.ReadCloser, error)
}

var (
	gzipStream = &streamCompressor{
		name: "gzip",
		ext:  ".gz",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	}

	zstdStream = &streamCompressor{
		name: "zstd",
		ext:  ".zst",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	}

	noopStream = &streamCompressor{
		name: "noop",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return nopWriteCloser{w}, nil
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
)

func (c *streamCompressor) Name() string      { return c.name }
func (c *streamCompressor) Extension() string { return c.ext }

func (c *streamCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return c.writer(w)
}

func (c *streamCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return c.reader(r)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// -----------------------------------------------------------------------------
// Spooled Source
// -----------------------------------------------------------------------------

// SpooledSource serves a decompressed temp copy of a compressed Source.
// Close removes the temp copy.
type SpooledSource struct {
	name string
	file *fileSource
}

// NewSpooledSource decompresses src with c into a temp file.
//
// Disk usage equals the decompressed size; memory use is constant.
func NewSpooledSource(ctx context.Context, src Source, c Compressor) (*SpooledSource, error) {
	if src == nil || c == nil {
		return nil, fmt.Errorf("lineseek: spool: source and compressor are required: %w", ErrInvalidOption)
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	dr, err := c.Decompress(rc)
	if err != nil {
		return nil, fmt.Errorf("lineseek: spool %s: %s: %w", src.Name(), c.Name(), err)
	}
	defer func() { _ = dr.Close() }()

	tmp, err := os.CreateTemp("", "lineseek-spool-*")
	if err != nil {
		return nil, fmt.Errorf("lineseek: spool: creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, dr); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("lineseek: spool %s: %w", src.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("lineseek: spool: closing temp file: %w", err)
	}

	return &SpooledSource{
		name: strings.TrimSuffix(src.Name(), c.Extension()),
		file: &fileSource{path: tmp.Name()},
	}, nil
}

// Name returns the source name without the compression extension.
func (s *SpooledSource) Name() string {
	return s.name
}

// Open returns a sequential reader over the decompressed data.
func (s *SpooledSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.file.Open(ctx)
}

// ReaderAt returns a random-access reader over the decompressed data.
func (s *SpooledSource) ReaderAt(ctx context.Context) (ReaderAt, error) {
	return s.file.ReaderAt(ctx)
}

// Close removes the temp copy. Safe to call more than once.
func (s *SpooledSource) Close() error {
	err := os.Remove(s.file.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

var (
	_ Compressor = (*streamCompressor)(nil)
	_ Source     = (*SpooledSource)(nil)
)
