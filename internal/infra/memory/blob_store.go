package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// BlobStore keeps uploaded documents in memory. Used for development and tests.
type BlobStore struct {
	baseURL string

	mu    sync.RWMutex
	blobs map[string]blob
}

type blob struct {
	contentType string
	data        []byte
}

func NewBlobStore(baseURL string) *BlobStore {
	if baseURL == "" {
		baseURL = "memory://blobs"
	}
	return &BlobStore{baseURL: baseURL, blobs: make(map[string]blob)}
}

func (s *BlobStore) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.blobs[key] = blob{contentType: contentType, data: buf.Bytes()}
	s.mu.Unlock()
	return s.baseURL + "/" + key, nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// Get returns a stored blob's bytes and content type.
func (s *BlobStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	return b.data, b.contentType, ok
}

// Len reports how many blobs are stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
