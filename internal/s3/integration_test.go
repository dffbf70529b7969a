//go:build integration

package s3

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/justapithecus/lineseek/lineseek"
	s3source "github.com/justapithecus/lineseek/lineseek/s3"
)

// Integration tests for S3-compatible backends.
// These require running LocalStack and MinIO on their default ports.
//
// To run:
//   LINESEEK_S3_TESTS=1 go test -v -tags=integration ./internal/s3/...

func skipIfNoS3(t *testing.T) {
	if os.Getenv("LINESEEK_S3_TESTS") != "1" {
		t.Skip("LINESEEK_S3_TESTS=1 not set; skipping integration tests")
	}
}

func TestLocalStack_Integration(t *testing.T) {
	skipIfNoS3(t)

	client, err := NewLocalStackClient(context.Background())
	if err != nil {
		t.Fatalf("failed to create LocalStack client: %v", err)
	}
	runSourceIntegrationTests(t, client)
}

func TestMinIO_Integration(t *testing.T) {
	skipIfNoS3(t)

	client, err := NewMinIOClient(context.Background())
	if err != nil {
		t.Fatalf("failed to create MinIO client: %v", err)
	}
	runSourceIntegrationTests(t, client)
}

// -----------------------------------------------------------------------------
// Common Integration Test Suite
// -----------------------------------------------------------------------------

func runSourceIntegrationTests(t *testing.T, client *s3.Client) {
	ctx := context.Background()
	bucket := fmt.Sprintf("lineseek-test-%d", time.Now().UnixNano())

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	defer func() {
		out, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		if out != nil {
			for _, obj := range out.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	}()

	var b strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "line-%05d\n", i)
	}
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String("lines.txt"),
		Body:   bytes.NewReader([]byte(b.String())),
	}); err != nil {
		t.Fatalf("failed to put object: %v", err)
	}

	src, err := s3source.New(client, s3source.Config{Bucket: bucket, Key: "lines.txt"})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("exact", func(t *testing.T) {
		s, err := lineseek.New(ctx, src)
		if err != nil {
			t.Fatal(err)
		}
		line, err := s.Line(ctx, 617)
		if err != nil {
			t.Fatal(err)
		}
		if line != "line-00617\n" {
			t.Errorf("Line(617) = %q", line)
		}
	})

	t.Run("estimated", func(t *testing.T) {
		s, err := lineseek.New(ctx, src, lineseek.WithEstimate(true), lineseek.WithProbeCount(20))
		if err != nil {
			t.Fatal(err)
		}
		line, err := s.Line(ctx, 617)
		if err != nil {
			t.Fatal(err)
		}
		if line != "line-00617\n" {
			t.Errorf("Line(617) = %q", line)
		}
	})
}
