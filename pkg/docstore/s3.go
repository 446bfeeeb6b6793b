package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store stores documents in an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	client := s3.NewFromConfig(cfg)
//	store := docstore.NewS3Store(client, "my-bucket", "boards/")
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed document store. prefix is prepended
// to every object key (e.g. "boards/").
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) key(name string) string {
	return s.prefix + name
}

// Fetch retrieves a document by name.
func (s *S3Store) Fetch(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("docstore: s3 get: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("docstore: s3 read: %w", err)
	}
	return data, nil
}

// Put stores a document, overwriting any previous version.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return ErrNameRequired
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("docstore: s3 put: %w", err)
	}
	return nil
}

// Close is a no-op; the S3 client is owned by the caller.
func (s *S3Store) Close() error { return nil }
