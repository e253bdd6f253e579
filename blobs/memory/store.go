package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"recipe-server/core"
	"sync"
)

type blob struct {
	contentType string
	data        []byte
}

// Store keeps blobs in memory. With a base URL it behaves like an external object store.
type Store struct {
	mu      sync.RWMutex
	blobs   map[string]blob
	baseURL string
	// PutErr, when set, is returned by every Put.
	PutErr error
}

// NewStore returns a local-style store: Put returns only a reference.
func NewStore() *Store {
	return &Store{blobs: make(map[string]blob)}
}

// NewRemoteStore returns a store whose references carry baseURL + "/" + name as their URL.
func NewRemoteStore(baseURL string) *Store {
	s := NewStore()
	s.baseURL = baseURL
	return s
}

func (s *Store) Remote() bool {
	return s.baseURL != ""
}

func (s *Store) Put(ctx context.Context, name, contentType string, data []byte) (core.BlobRef, error) {
	if s.PutErr != nil {
		return core.BlobRef{}, s.PutErr
	}

	s.mu.Lock()
	s.blobs[name] = blob{contentType: contentType, data: append([]byte(nil), data...)}
	s.mu.Unlock()

	ref := core.BlobRef{Ref: name}
	if s.baseURL != "" {
		ref.URL = s.baseURL + "/" + name
	}
	return ref, nil
}

func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.RLock()
	b, ok := s.blobs[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", core.ErrNotFound, ref)
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
	return nil
}

// Has reports whether a blob is stored under ref.
func (s *Store) Has(ref string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[ref]
	return ok
}

// ContentType returns the content type a blob was stored with.
func (s *Store) ContentType(ref string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blobs[ref].contentType
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
