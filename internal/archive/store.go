// Package archive uploads saved constancias to S3-compatible object storage
// (Cloudflare R2 or AWS S3) together with the context they were built from.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Config holds bucket settings.
type Config struct {
	Endpoint        string // Explicit endpoint; derived from AccountID when empty
	AccountID       string // Cloudflare account for R2
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string // Defaults to "auto" (R2)
}

// ResolveEndpoint returns the explicit endpoint or the R2 endpoint of the account.
func (c Config) ResolveEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	}
	return ""
}

// Validate reports missing settings.
func (c Config) Validate() error {
	var errs []error
	if c.ResolveEndpoint() == "" {
		errs = append(errs, errors.New("endpoint or account id is required"))
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		errs = append(errs, errors.New("access key id and secret access key are required"))
	}
	if c.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	return errors.Join(errs...)
}

// ObjectStore is the subset of object storage the archiver needs.
type ObjectStore interface {
	// PutIfAbsent stores body under key unless the key exists. created is
	// false when an object was already there.
	PutIfAbsent(ctx context.Context, key string, body io.Reader, contentType string) (created bool, err error)
}

// S3Store is an ObjectStore backed by the AWS SDK.
type S3Store struct {
	s3     *s3.Client
	bucket string
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store creates a client for cfg.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("archive: invalid config: %w", err)
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	endpoint := cfg.ResolveEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // Required for R2
	})
	return &S3Store{s3: client, bucket: cfg.Bucket}, nil
}

// PutIfAbsent uses If-None-Match: * so an archived constancia is never replaced.
func (s *S3Store) PutIfAbsent(ctx context.Context, key string, body io.Reader, contentType string) (bool, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		IfNoneMatch: aws.String("*"),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.s3.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("archive: put %q: %w", key, err)
	}
	return true, nil
}

// isPreconditionFailed checks for a 412 Precondition Failed response.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 412 {
		return true
	}
	return strings.Contains(err.Error(), "PreconditionFailed")
}
