// Package publish uploads run artifacts to an S3-compatible bucket.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sink receives a finished artifact under name.
type Sink interface {
	Put(ctx context.Context, name string, content []byte) error
}

// S3Config describes the destination bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Sink stores artifacts as objects named <prefix>/<name>.
type S3Sink struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// NewS3Sink validates cfg and creates the client. No request is made until
// the first Put.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Sink{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put uploads content as a JSON object.
func (s *S3Sink) Put(ctx context.Context, name string, content []byte) error {
	key := s.ObjectKey(name)
	if key == "" {
		return fmt.Errorf("object name is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// ObjectKey returns the object name used for an artifact.
func (s *S3Sink) ObjectKey(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return ""
	}
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}
