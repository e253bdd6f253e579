// Package ingest validates uploaded files and forwards them to the configured blob store.
package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"recipe-server/core"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// DefaultMaxSize applies when New is given a non-positive limit.
const DefaultMaxSize int64 = 20 << 20

type rule struct {
	types      []string
	extensions []string
}

var allowList = map[core.BlobKind]rule{
	core.BlobPDF: {
		types:      []string{"application/pdf"},
		extensions: []string{".pdf"},
	},
	core.BlobImage: {
		types:      []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
	},
}

// Allows reports whether a stored blob name carries an extension accepted for kind.
func Allows(kind core.BlobKind, name string) bool {
	return allowList[kind].allowsExtension(strings.ToLower(filepath.Ext(name)))
}

func (r rule) allowsExtension(ext string) bool {
	for _, e := range r.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (r rule) allowsType(contentType string) bool {
	for _, t := range r.types {
		if t == contentType {
			return true
		}
	}
	return false
}

// sniffed returns the allow-listed type matching the detected content, if any.
func (r rule) sniffed(m *mimetype.MIME) (string, bool) {
	for _, t := range r.types {
		if m.Is(t) {
			return t, true
		}
	}
	return "", false
}

type Ingestor struct {
	store   core.BlobStore
	maxSize int64
	now     func() time.Time
}

func New(store core.BlobStore, maxSize int64) *Ingestor {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Ingestor{store: store, maxSize: maxSize, now: time.Now}
}

// Ingest checks the upload against the allow-list of kind and stores it under a generated
// name. The declared type, the extension and the sniffed content must all be allowed.
func (i *Ingestor) Ingest(ctx context.Context, upload *core.Upload, kind core.BlobKind) (core.BlobRef, error) {
	if upload == nil || upload.Body == nil {
		return core.BlobRef{}, fmt.Errorf("%w: %s file is required", core.ErrValidation, kind)
	}
	r, ok := allowList[kind]
	if !ok {
		return core.BlobRef{}, fmt.Errorf("%w: unknown blob kind %q", core.ErrUnsupportedType, kind)
	}

	log := logrus.WithFields(logrus.Fields{
		"kind":         kind,
		"filename":     upload.Filename,
		"content_type": upload.ContentType,
	})

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !r.allowsExtension(ext) {
		log.Warn("Rejected upload with disallowed extension")
		return core.BlobRef{}, fmt.Errorf("%w: extension %q is not allowed for %s", core.ErrUnsupportedType, ext, kind)
	}

	declared := declaredType(upload.ContentType)
	// Browsers fall back to octet-stream for types they do not know; sniffing still applies.
	if declared != "" && declared != "application/octet-stream" && !r.allowsType(declared) {
		log.Warn("Rejected upload with disallowed content type")
		return core.BlobRef{}, fmt.Errorf("%w: content type %q is not allowed for %s", core.ErrUnsupportedType, declared, kind)
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, i.maxSize+1))
	if err != nil {
		log.WithError(err).Error("Failed to read upload")
		return core.BlobRef{}, fmt.Errorf("%w: %w", core.ErrUploadFailed, err)
	}
	if int64(len(data)) > i.maxSize {
		return core.BlobRef{}, fmt.Errorf("%w: file exceeds %d bytes", core.ErrValidation, i.maxSize)
	}

	detected := mimetype.Detect(data)
	contentType, ok := r.sniffed(detected)
	if !ok {
		log.WithField("detected", detected.String()).Warn("Rejected upload whose content does not match its type")
		return core.BlobRef{}, fmt.Errorf("%w: content is %s, not %s", core.ErrUnsupportedType, detected.String(), kind)
	}

	ref, err := i.store.Put(ctx, i.blobName(ext), contentType, data)
	if err != nil {
		log.WithError(err).Error("Failed to store upload")
		return core.BlobRef{}, fmt.Errorf("%w: %w", core.ErrUploadFailed, err)
	}

	log.WithFields(logrus.Fields{"ref": ref.Ref, "size": len(data)}).Info("Upload ingested")
	return ref, nil
}

// blobName is the upload time in milliseconds, a random suffix and the original extension.
func (i *Ingestor) blobName(ext string) string {
	id := strings.ToLower(core.NewID())
	return fmt.Sprintf("%d-%s%s", i.now().UnixMilli(), id[len(id)-8:], ext)
}

func declaredType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}
