package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"recipe-server/core"
	"strings"

	"github.com/sirupsen/logrus"
)

type diskStore struct {
	basePath string
}

// NewStore creates a blob store that writes into the uploads directory at basePath.
func NewStore(basePath string) (*diskStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &diskStore{basePath: basePath}, nil
}

// Dir is the directory blobs are written to, for serving them statically.
func (s *diskStore) Dir() string {
	return s.basePath
}

func (s *diskStore) Remote() bool {
	return false
}

// resolve maps a blob name onto a path inside basePath, rejecting anything that escapes it.
func (s *diskStore) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid blob name %q", core.ErrValidation, name)
	}
	return filepath.Join(s.basePath, name), nil
}

func (s *diskStore) Put(ctx context.Context, name, contentType string, data []byte) (core.BlobRef, error) {
	filePath, err := s.resolve(name)
	if err != nil {
		return core.BlobRef{}, err
	}
	log := logrus.WithFields(logrus.Fields{
		"blob":         name,
		"file_path":    filePath,
		"content_type": contentType,
		"size":         len(data),
	})

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		log.WithError(err).Error("Failed to create blob file")
		return core.BlobRef{}, err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(filePath)
		log.WithError(err).Error("Failed to write blob file")
		return core.BlobRef{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(filePath)
		return core.BlobRef{}, err
	}

	log.Info("Blob stored on disk")
	return core.BlobRef{Ref: name}, nil
}

func (s *diskStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	filePath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("blob", ref).Warn("Blob file not found")
			return nil, fmt.Errorf("%w: blob %s", core.ErrNotFound, ref)
		}
		return nil, err
	}
	return f, nil
}

func (s *diskStore) Delete(ctx context.Context, ref string) error {
	filePath, err := s.resolve(ref)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"blob": ref, "file_path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Blob file not found for deletion, considered successful.")
			return nil
		}
		log.WithError(err).Error("Failed to delete blob file")
		return err
	}

	log.Info("Blob deleted")
	return nil
}
