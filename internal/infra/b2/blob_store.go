package b2

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kurin/blazer/b2"
)

// BlobStore keeps uploaded documents in a Backblaze B2 bucket.
type BlobStore struct {
	client  *b2.Client
	bucket  *b2.Bucket
	baseURL string
}

// Open connects to B2 and resolves the bucket. baseURL overrides the download host when the
// bucket sits behind a CDN.
func Open(ctx context.Context, accountID, appKey, bucketName, baseURL string) (*BlobStore, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s/file/%s", client.BaseURL(), bucket.Name())
	}
	return &BlobStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *BlobStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes the object. A missing object is not an error.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
