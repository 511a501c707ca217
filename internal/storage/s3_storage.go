package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by S3Storage. *s3.Client
// satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Storage stores uploads in an S3 compatible bucket under an optional
// key prefix.
type S3Storage struct {
	client S3Client
	bucket string
	prefix string
}

func NewS3Storage(client S3Client, bucket, prefix string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds a client with static credentials. A custom endpoint
// switches to path-style addressing for MinIO and similar servers.
func NewS3Client(config S3Config) (*s3.Client, error) {
	if config.Bucket == "" {
		return nil, errors.New("S3 bucket is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	options := s3.Options{
		Region: config.Region,
	}
	if config.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     config.AccessKeyID,
			SecretAccessKey: config.SecretAccessKey,
			Source:          "faik",
		}
		options.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return creds, nil
			},
		))
	} else {
		options.Credentials = aws.AnonymousCredentials{}
	}
	if config.Endpoint != "" {
		options.BaseEndpoint = aws.String(config.Endpoint)
		options.UsePathStyle = true
	}

	return s3.New(options), nil
}

func (s *S3Storage) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// SaveFile uploads r. PutObject needs a seekable body for request signing
// over plain HTTP, so callers should pass a *bytes.Reader or *os.File.
func (s *S3Storage) SaveFile(ctx context.Context, r io.Reader, info FileInfo) (string, error) {
	name := newObjectName(info.Filename)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   r,
	}
	if info.ContentType != "" {
		input.ContentType = aws.String(info.ContentType)
	}
	if info.Size > 0 {
		input.ContentLength = aws.Int64(info.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return name, nil
}

func (s *S3Storage) OpenFile(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("failed to open file %s: %w", name, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	return out.Body, nil
}

func (s *S3Storage) DeleteFile(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", name, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var (
	_ Storage = (*LocalStorage)(nil)
	_ Storage = (*S3Storage)(nil)
)
