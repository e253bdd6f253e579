package blobs

import (
	"context"
	"fmt"
	"recipe-server/blobs/aws"
	"recipe-server/blobs/local"
	"recipe-server/blobs/minio"
	"recipe-server/config"
	"recipe-server/core"

	"github.com/sirupsen/logrus"
)

// GetBlobStore builds the blob store chosen by cfg.BlobBackend. It is called once at startup.
func GetBlobStore(ctx context.Context, cfg config.BlobConfig) (core.BlobStore, error) {
	backend := cfg.BlobBackend()
	fields := logrus.Fields{"blobStorage": backend}

	var (
		store core.BlobStore
		err   error
	)
	switch backend {
	case "minio":
		fields["endpoint"] = cfg.MinIO.Endpoint
		fields["bucket"] = cfg.MinIO.Bucket
		store, err = minio.NewStore(ctx, minio.Options{
			Endpoint:      cfg.MinIO.Endpoint,
			AccessKey:     cfg.MinIO.AccessKey,
			SecretKey:     cfg.MinIO.SecretKey,
			Bucket:        cfg.MinIO.Bucket,
			UseSSL:        cfg.MinIO.UseSSL,
			PublicBaseURL: cfg.MinIO.PublicBaseURL,
		})
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME environment variable must be set for s3 blob storage")
		}
		fields["bucket"] = cfg.S3.Bucket
		store, err = aws.NewStore(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.PublicBaseURL)
	default:
		fields["uploadsDir"] = cfg.UploadsDir
		store, err = local.NewStore(cfg.UploadsDir)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(fields).Info("Use blob storage")
	return store, nil
}
