package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"recipe-server/core"
	"sync"

	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
	// mu serializes file access inside this process only.
	mu sync.Mutex
}

// NewStore creates a filesystem-backed collection store rooted at basePath and makes sure
// every collection file exists.
func NewStore(basePath string) (*fsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &fsStore{basePath: basePath}
	for _, c := range core.AllCollections {
		filePath := s.collectionPath(c)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			if err := os.WriteFile(filePath, []byte("[]"), 0644); err != nil {
				return nil, fmt.Errorf("failed to initialise %s: %w", filePath, err)
			}
		}
	}
	return s, nil
}

func (s *fsStore) collectionPath(c core.Collection) string {
	return filepath.Join(s.basePath, string(c)+".json")
}

func (s *fsStore) ReadAll(ctx context.Context, c core.Collection) ([]json.RawMessage, error) {
	filePath := s.collectionPath(c)
	log := logrus.WithFields(logrus.Fields{"collection": c, "file_path": filePath})

	s.mu.Lock()
	data, err := os.ReadFile(filePath)
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Collection file does not exist, returning empty collection")
		} else {
			log.WithError(err).Warn("Failed to read collection file, returning empty collection")
		}
		return []json.RawMessage{}, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []json.RawMessage{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.WithError(err).Warn("Collection file is not a JSON array, returning empty collection")
		return []json.RawMessage{}, nil
	}
	if records == nil {
		records = []json.RawMessage{}
	}

	log.Debugf("Read %d records", len(records))
	return records, nil
}

func (s *fsStore) WriteAll(ctx context.Context, c core.Collection, records []json.RawMessage) error {
	filePath := s.collectionPath(c)
	log := logrus.WithFields(logrus.Fields{"collection": c, "file_path": filePath, "records": len(records)})

	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.WithError(err).Error("Failed to marshal collection")
		return fmt.Errorf("failed to marshal %s: %w", c, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write next to the target and rename so readers never see a half-written file.
	tmp, err := os.CreateTemp(s.basePath, string(c)+"-*.json.tmp")
	if err != nil {
		log.WithError(err).Error("Failed to create temporary collection file")
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		log.WithError(err).Error("Failed to write collection file")
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		log.WithError(err).Error("Failed to close collection file")
		return err
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		log.WithError(err).Error("Failed to replace collection file")
		return err
	}

	log.Debug("Collection written")
	return nil
}
