package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"recipe-server/core"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// Options are the connection settings of an S3-compatible endpoint.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type minioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewStore connects to the endpoint and creates the bucket when it does not exist yet.
func NewStore(ctx context.Context, opts Options) (*minioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logrus.WithField("bucket", opts.Bucket).Info("Created blob bucket")
	}

	return &minioStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: publicURL(opts),
	}, nil
}

// publicURL is the prefix of every object URL: http(s)://endpoint/bucket unless overridden.
func publicURL(opts Options) string {
	if opts.PublicBaseURL != "" {
		return strings.TrimRight(opts.PublicBaseURL, "/")
	}
	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
}

func (s *minioStore) Remote() bool {
	return true
}

func objectKey(ref string) (string, error) {
	if ref == "" || ref == "." || ref == ".." || path.Base(ref) != ref {
		return "", fmt.Errorf("%w: invalid blob key %q", core.ErrValidation, ref)
	}
	return ref, nil
}

func (s *minioStore) Put(ctx context.Context, name, contentType string, data []byte) (core.BlobRef, error) {
	key, err := objectKey(name)
	if err != nil {
		return core.BlobRef{}, err
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: "inline",
	})
	if err != nil {
		return core.BlobRef{}, fmt.Errorf("failed to upload to minio: %w", err)
	}

	logrus.WithFields(logrus.Fields{"bucket": s.bucket, "key": key, "size": len(data)}).Info("Blob uploaded to MinIO")
	return core.BlobRef{Ref: key, URL: s.baseURL + "/" + key}, nil
}

func (s *minioStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key, err := objectKey(ref)
	if err != nil {
		return nil, err
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller starts streaming.
	if _, err := object.Stat(); err != nil {
		object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: blob %s", core.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return object, nil
}

func (s *minioStore) Delete(ctx context.Context, ref string) error {
	key, err := objectKey(ref)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
