// Package s3 builds S3 clients for the lineseek S3 source and examples.
package s3

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvRegion    = "LINESEEK_S3_REGION"
	EnvEndpoint  = "LINESEEK_S3_ENDPOINT"
	EnvPathStyle = "LINESEEK_S3_PATH_STYLE"
	EnvAccessKey = "LINESEEK_S3_ACCESS_KEY"
	EnvSecretKey = "LINESEEK_S3_SECRET_KEY"
)

// ClientConfig holds configuration for creating an S3 client.
type ClientConfig struct {
	// Region is the AWS region (required).
	Region string

	// Endpoint is an optional custom endpoint URL for S3-compatible
	// services (MinIO, LocalStack, R2).
	Endpoint string

	// UsePathStyle enables path-style addressing instead of virtual-hosted
	// style. LocalStack and default MinIO need it.
	UsePathStyle bool

	// Credentials are the AWS credentials to use.
	// If nil, uses the default credential chain.
	Credentials aws.CredentialsProvider
}

// ConfigFromEnv reads a ClientConfig through getenv.
//
// Region defaults to us-east-1. Static credentials are used only when both
// keys are set; otherwise the default chain applies.
func ConfigFromEnv(getenv func(string) string) ClientConfig {
	cfg := ClientConfig{
		Region:   getenv(EnvRegion),
		Endpoint: getenv(EnvEndpoint),
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if v, err := strconv.ParseBool(getenv(EnvPathStyle)); err == nil {
		cfg.UsePathStyle = v
	}
	access, secret := getenv(EnvAccessKey), getenv(EnvSecretKey)
	if access != "" && secret != "" {
		cfg.Credentials = credentials.NewStaticCredentialsProvider(access, secret, "")
	}
	return cfg
}

// NewClient creates a new S3 client with the given configuration.
//
// For LocalStack:
//
//	client, err := s3client.NewClient(ctx, s3client.ClientConfig{
//	    Region:       "us-east-1",
//	    Endpoint:     "http://localhost:4566",
//	    UsePathStyle: true,
//	    Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
//	})
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Credentials != nil {
		opts = append(opts, config.WithCredentialsProvider(cfg.Credentials))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, s3Options(cfg)...), nil
}

func s3Options(cfg ClientConfig) []func(*s3.Options) {
	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3Opts
}

// NewLocalStackClient creates an S3 client configured for LocalStack.
// Defaults: endpoint=http://localhost:4566, region=us-east-1, credentials=test/test.
func NewLocalStackClient(ctx context.Context) (*s3.Client, error) {
	return NewClient(ctx, ClientConfig{
		Region:       "us-east-1",
		Endpoint:     "http://localhost:4566",
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
	})
}

// NewMinIOClient creates an S3 client configured for MinIO.
// Defaults: endpoint=http://localhost:9000, region=us-east-1, credentials=minioadmin/minioadmin.
func NewMinIOClient(ctx context.Context) (*s3.Client, error) {
	return NewClient(ctx, ClientConfig{
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("minioadmin", "minioadmin", ""),
	})
}
