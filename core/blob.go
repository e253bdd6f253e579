package core

import (
	"context"
	"io"
)

// BlobKind selects the allow-list an upload is checked against.
type BlobKind string

const (
	BlobPDF   BlobKind = "pdf"
	BlobImage BlobKind = "image"
)

type (
	// BlobRef identifies a stored blob. URL is only set by external object stores.
	BlobRef struct {
		Ref string `json:"ref"`
		URL string `json:"url,omitempty"`
	}

	// BlobStore persists uploaded files either on local disk or in an external object store.
	BlobStore interface {
		Put(ctx context.Context, name, contentType string, data []byte) (BlobRef, error)
		Open(ctx context.Context, ref string) (io.ReadCloser, error)
		Delete(ctx context.Context, ref string) error
		// Remote reports whether blobs live outside the local uploads directory.
		Remote() bool
	}

	// Ingestor validates an upload and hands it to the configured BlobStore.
	Ingestor interface {
		Ingest(ctx context.Context, upload *Upload, kind BlobKind) (BlobRef, error)
	}
)
