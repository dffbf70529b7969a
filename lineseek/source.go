package lineseek

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// -----------------------------------------------------------------------------
// File Source
// -----------------------------------------------------------------------------

// fileSource implements Source using a local file.
type fileSource struct {
	path string
}

// NewFileSource creates a Source over the file at path.
//
// The file is not opened until a read is requested. Each Open or ReaderAt
// call opens its own descriptor, so the Source itself holds nothing.
func NewFileSource(path string) (Source, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	return &fileSource{path: filepath.Clean(path)}, nil
}

func (f *fileSource) Name() string {
	return f.path
}

func (f *fileSource) Open(_ context.Context) (io.ReadCloser, error) {
	return openFile(f.path)
}

func (f *fileSource) ReaderAt(_ context.Context) (ReaderAt, error) {
	file, err := openFile(f.path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lineseek: stat %s: %w", f.path, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("lineseek: %s is a directory: %w", f.path, ErrInvalidPath)
	}
	return &fileReaderAt{File: file, size: info.Size()}, nil
}

func openFile(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("lineseek: open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("lineseek: open %s: %w", path, err)
	}
	return file, nil
}

// fileReaderAt pairs an open file with its size at open time.
type fileReaderAt struct {
	*os.File
	size int64
}

func (r *fileReaderAt) Size() int64 {
	return r.size
}

// -----------------------------------------------------------------------------
// Memory Source
// -----------------------------------------------------------------------------

// memorySource implements Source over an in-memory byte slice.
type memorySource struct {
	name string
	data []byte
}

// NewMemorySource creates a Source over a copy of data.
//
// Memory is safe for concurrent use.
func NewMemorySource(name string, data []byte) Source {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return &memorySource{name: name, data: dataCopy}
}

func (m *memorySource) Name() string {
	return m.name
}

func (m *memorySource) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *memorySource) ReaderAt(_ context.Context) (ReaderAt, error) {
	return &memoryReaderAt{Reader: bytes.NewReader(m.data)}, nil
}

type memoryReaderAt struct {
	*bytes.Reader
}

func (*memoryReaderAt) Close() error {
	return nil
}

var (
	_ Source   = (*fileSource)(nil)
	_ Source   = (*memorySource)(nil)
	_ ReaderAt = (*fileReaderAt)(nil)
	_ ReaderAt = (*memoryReaderAt)(nil)
)
