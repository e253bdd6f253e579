package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"recipe-server/core"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// objectAPI is the part of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	s3Client objectAPI
	bucket   string
	baseURL  string
}

// NewStore creates an S3-backed blob store using the default AWS credential chain.
// publicBaseURL overrides the virtual-hosted bucket URL returned for uploaded objects.
func NewStore(ctx context.Context, bucketName, region, publicBaseURL string) (*s3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return newStore(s3.NewFromConfig(cfg), bucketName, region, publicBaseURL), nil
}

func newStore(client objectAPI, bucketName, region, publicBaseURL string) *s3Store {
	baseURL := strings.TrimRight(publicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucketName, region)
	}
	return &s3Store{s3Client: client, bucket: bucketName, baseURL: baseURL}
}

func (s *s3Store) Remote() bool {
	return true
}

func objectKey(ref string) (string, error) {
	// The reference must be a plain object name, not a path.
	if ref == "" || ref == "." || ref == ".." || path.Base(ref) != ref {
		return "", fmt.Errorf("%w: invalid blob key %q", core.ErrValidation, ref)
	}
	return ref, nil
}

func (s *s3Store) Put(ctx context.Context, name, contentType string, data []byte) (core.BlobRef, error) {
	key, err := objectKey(name)
	if err != nil {
		return core.BlobRef{}, err
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("inline"),
	})
	if err != nil {
		return core.BlobRef{}, fmt.Errorf("failed to upload blob %s: %w", key, err)
	}

	logrus.WithFields(logrus.Fields{"bucket": s.bucket, "key": key, "size": len(data)}).Info("Blob uploaded to S3")
	return core.BlobRef{Ref: key, URL: s.baseURL + "/" + key}, nil
}

func (s *s3Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key, err := objectKey(ref)
	if err != nil {
		return nil, err
	}

	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: blob %s", core.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return resp.Body, nil
}

func (s *s3Store) Delete(ctx context.Context, ref string) error {
	key, err := objectKey(ref)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
