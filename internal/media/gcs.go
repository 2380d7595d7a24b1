package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// GCS stores objects in a Cloud Storage bucket, typically the Firebase
// project's default bucket.
type GCS struct {
	bucket  *storage.BucketHandle
	baseURL string
}

// NewGCS wraps bucket. Objects are addressed through the public
// storage.googleapis.com endpoint.
func NewGCS(bucket *storage.BucketHandle, bucketName string) *GCS {
	return &GCS{
		bucket:  bucket,
		baseURL: "https://storage.googleapis.com/" + bucketName + "/",
	}
}

// Put implements Store.
func (g *GCS) Put(ctx context.Context, obj Object) (string, error) {
	w := g.bucket.Object(obj.Key).NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.CacheControl = "public, max-age=86400"
	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", obj.Key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", obj.Key, err)
	}
	return g.baseURL + obj.Key, nil
}

// Key implements Store.
func (g *GCS) Key(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, g.baseURL)
	return key, ok && key != ""
}

// Delete implements Store.
func (g *GCS) Delete(ctx context.Context, url string) error {
	key, ok := g.Key(url)
	if !ok {
		return nil
	}
	err := g.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

var _ Store = (*GCS)(nil)
