// Package s3 provides an S3-compatible line source for lineseek.
//
// This adapter supports AWS S3, MinIO, LocalStack, Cloudflare R2,
// and other S3-compatible object stores.
//
// # Access pattern
//
//   - Open: a single GetObject streaming the whole object, used by the
//     index scan and the line count pass.
//   - ReaderAt: HeadObject for the size, then one ranged GetObject per
//     ReadAt call. Exact-mode lookups cost one request per line.
//
// # Consistency
//
// The index is built from the object as it was at construction. Overwriting
// the object afterwards invalidates it without detection.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/justapithecus/lineseek/lineseek"
)

// API defines the subset of the S3 client interface used by the source.
// This enables testing with mock implementations.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config holds configuration for the S3 source.
type Config struct {
	// Bucket is the S3 bucket name. Required.
	Bucket string

	// Key is the object key of the sampled file. Required.
	Key string
}

// Source implements lineseek.Source over one S3 object.
type Source struct {
	client API
	bucket string
	key    string
}

// New creates a source for the object named by cfg.
//
// The client must be pre-configured with credentials, region, and endpoint.
// Use github.com/aws/aws-sdk-go-v2/config to load configuration.
//
// Example:
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := s3.NewFromConfig(cfg)
//	src, err := s3source.New(client, s3source.Config{Bucket: "logs", Key: "2024/app.log"})
//	sampler, err := lineseek.New(ctx, src)
func New(client API, cfg Config) (*Source, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	key, err := validateKey(cfg.Key)
	if err != nil {
		return nil, err
	}
	return &Source{client: client, bucket: cfg.Bucket, key: key}, nil
}

// Name returns the object URI.
func (s *Source) Name() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Open streams the whole object.
// Returns lineseek.ErrNotFound if the object does not exist.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3: get %s: %w", s.Name(), lineseek.ErrNotFound)
		}
		return nil, fmt.Errorf("s3: get object: %w", err)
	}
	return out.Body, nil
}

// ReaderAt returns a random-access reader backed by range reads.
// Returns lineseek.ErrNotFound if the object does not exist.
// The returned reader is safe for concurrent use.
func (s *Source) ReaderAt(ctx context.Context) (lineseek.ReaderAt, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3: head %s: %w", s.Name(), lineseek.ErrNotFound)
		}
		return nil, fmt.Errorf("s3: head object: %w", err)
	}

	return &readerAt{
		client:  s.client,
		bucket:  s.bucket,
		key:     s.key,
		size:    aws.ToInt64(out.ContentLength),
		baseCtx: ctx,
	}, nil
}

// readerAt implements lineseek.ReaderAt using S3 range reads.
type readerAt struct {
	client  API
	bucket  string
	key     string
	size    int64
	baseCtx context.Context
}

// ReadAt issues one ranged GetObject per call.
func (r *readerAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.New("s3: negative offset")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= r.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	rangeHeader := fmt.Sprintf("bytes=%d-%d", off, end)

	out, err := r.client.GetObject(r.baseCtx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		// object shrank since HeadObject
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange" {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("s3: range read: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err = io.ReadFull(out.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// short body: the range ran past the end
		err = io.EOF
	}
	return n, err
}

// Size returns the object size reported by HeadObject.
func (r *readerAt) Size() int64 {
	return r.size
}

// Close releases nothing; each ReadAt closes its own response body.
func (r *readerAt) Close() error {
	return nil
}

func validateKey(key string) (string, error) {
	if key == "" {
		return "", lineseek.ErrInvalidPath
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", lineseek.ErrInvalidPath
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", lineseek.ErrInvalidPath
	}
	return cleaned, nil
}

// isNotFound checks if an error indicates the object was not found.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}

var (
	_ lineseek.Source   = (*Source)(nil)
	_ lineseek.ReaderAt = (*readerAt)(nil)
)

// -----------------------------------------------------------------------------
// Mock S3 Client for Testing
// -----------------------------------------------------------------------------

// MockS3Client is an in-memory API for tests. Bucket names are ignored.
type MockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Request counters. RangeReadCalls counts the ranged subset of
	// GetObjectCalls.
	GetObjectCalls  int
	RangeReadCalls  int
	HeadObjectCalls int
}

// NewMockS3Client creates an empty mock client.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{objects: make(map[string][]byte)}
}

// SetObject stores a copy of data under key, replacing any previous object.
func (m *MockS3Client) SetObject(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
}

// ResetCounts zeroes the request counters.
func (m *MockS3Client) ResetCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetObjectCalls, m.RangeReadCalls, m.HeadObjectCalls = 0, 0, 0
}

func (m *MockS3Client) lookup(key string, count *int) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*count++
	data, ok := m.objects[key]
	return data, ok
}

// GetObject serves the whole object, or the bytes=start-end range when set.
func (m *MockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.lookup(aws.ToString(params.Key), &m.GetObjectCalls)
	if params.Range != nil {
		m.mu.Lock()
		m.RangeReadCalls++
		m.mu.Unlock()
	}
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	if params.Range != nil {
		var err error
		if data, err = sliceRange(data, aws.ToString(params.Range)); err != nil {
			return nil, err
		}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

// HeadObject reports the object size.
func (m *MockS3Client) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := m.lookup(aws.ToString(params.Key), &m.HeadObjectCalls)
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

// sliceRange applies an HTTP byte range, clamping the end like S3 does.
func sliceRange(data []byte, header string) ([]byte, error) {
	var start, end int64
	if _, err := fmt.Sscanf(header, "bytes=%d-%d", &start, &end); err != nil || start > end {
		return nil, &apiError{code: "InvalidArgument", message: "malformed range " + header}
	}
	size := int64(len(data))
	if start >= size {
		return nil, &apiError{code: "InvalidRange", message: "range not satisfiable"}
	}
	return data[start : min(end, size-1)+1], nil
}

// apiError is a minimal smithy.APIError.
type apiError struct {
	code    string
	message string
}

func (e *apiError) Error() string                 { return e.code + ": " + e.message }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.message }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var (
	_ API             = (*MockS3Client)(nil)
	_ smithy.APIError = (*apiError)(nil)
)
