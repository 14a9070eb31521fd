// Package objectstore builds S3 clients for the Celery object-store result backend.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// API is the subset of the S3 client used by the result queries.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Config struct {
	Region string
	// EndpointURL targets an S3-compatible store such as MinIO; path-style addressing is used.
	EndpointURL string
}

// Store reads objects from a single bucket.
type Store struct {
	api    API
	bucket string
}

// ObjectList is the result of a single listing call.
type ObjectList struct {
	Keys      []string
	Truncated bool
}

var ErrBucketRequired = errors.New("objectstore: bucket is required")

// NewClient loads the default AWS credential chain and returns an S3 client.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	}), nil
}

func NewStore(api API, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	return &Store{api: api, bucket: bucket}, nil
}

func (s *Store) Bucket() string {
	return s.bucket
}

// List issues one ListObjectsV2 call for prefix. Continuation tokens are not followed.
func (s *Store) List(ctx context.Context, prefix string) (*ObjectList, error) {
	out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, err
	}
	return &ObjectList{Keys: objectKeys(out.Contents), Truncated: aws.ToBool(out.IsTruncated)}, nil
}

// Get reads the whole body of key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %q: %w", key, err)
	}
	return data, nil
}

// Ping checks that the bucket is reachable by listing at most one key.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	return err
}

func objectKeys(contents []types.Object) []string {
	keys := make([]string, 0, len(contents))
	for _, obj := range contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys
}
