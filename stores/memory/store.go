package memory

import (
	"context"
	"encoding/json"
	"recipe-server/core"
	"sync"

	"github.com/sirupsen/logrus"
)

// memStore keeps every collection as the encoded JSON array, the same shape the filesystem
// store writes, so corrupt data behaves identically.
type memStore struct {
	mu          sync.RWMutex
	collections map[core.Collection][]byte
}

// NewStore creates a new in-memory collection store.
func NewStore() *memStore {
	return &memStore{collections: make(map[core.Collection][]byte)}
}

func (s *memStore) ReadAll(ctx context.Context, c core.Collection) ([]json.RawMessage, error) {
	s.mu.RLock()
	data, ok := s.collections[c]
	s.mu.RUnlock()

	if !ok || len(data) == 0 {
		return []json.RawMessage{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		logrus.WithField("collection", c).Warn("Stored collection is not a JSON array, returning empty collection")
		return []json.RawMessage{}, nil
	}
	return records, nil
}

func (s *memStore) WriteAll(ctx context.Context, c core.Collection, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.collections[c] = data
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{"collection": c, "records": len(records)}).Debug("Collection written")
	return nil
}

// SetRaw replaces the stored bytes of a collection verbatim.
func (s *memStore) SetRaw(c core.Collection, data []byte) {
	s.mu.Lock()
	s.collections[c] = append([]byte(nil), data...)
	s.mu.Unlock()
}
