// Package gcskv keeps store blobs as objects in a Google Cloud Storage bucket.
// It assumes Application Default Credentials are configured
// (gcloud auth application-default login).
package gcskv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/smart-finance/internal/store"
)

// ObjectStore reads and writes whole objects. GCSObjectStore is the
// production implementation; tests substitute their own.
type ObjectStore interface {
	// Read returns the object's contents. A missing object yields an error
	// wrapping storage.ErrObjectNotExist.
	Read(ctx context.Context, bucket, object string) ([]byte, error)

	// Write replaces the object's contents.
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error

	// Close releases the underlying client.
	Close() error
}

// GCSObjectStore is the ObjectStore backed by a storage.Client.
type GCSObjectStore struct {
	client *storage.Client
}

// NewGCSObjectStore creates a storage client using Application Default
// Credentials.
func NewGCSObjectStore(ctx context.Context) (*GCSObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSObjectStore{client: client}, nil
}

// Read implements ObjectStore.
func (s *GCSObjectStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Write implements ObjectStore.
func (s *GCSObjectStore) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s/%s: %w", bucket, object, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s/%s: %w", bucket, object, err)
	}
	return nil
}

// Close implements ObjectStore.
func (s *GCSObjectStore) Close() error {
	return s.client.Close()
}

// KV stores key K as object <prefix>/K in bucket.
type KV struct {
	objects ObjectStore
	bucket  string
	prefix  string
}

// Open creates a storage client for bucket. Objects are written under prefix,
// which may be empty.
func Open(ctx context.Context, bucket, prefix string) (*KV, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcskv.Open: bucket is required")
	}
	objects, err := NewGCSObjectStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcskv.Open: %w", err)
	}
	return NewWithObjectStore(objects, bucket, prefix), nil
}

// NewWithObjectStore builds a KV over an existing ObjectStore.
func NewWithObjectStore(objects ObjectStore, bucket, prefix string) *KV {
	return &KV{objects: objects, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Get implements store.KV.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := k.objects.Read(ctx, k.bucket, k.objectName(key))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gcskv.Get: %w", err)
	}
	return data, nil
}

// Put implements store.KV.
func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	contentType := "application/json"
	if key == store.KeyTheme {
		contentType = "text/plain; charset=utf-8"
	}
	if err := k.objects.Write(ctx, k.bucket, k.objectName(key), contentType, value); err != nil {
		return fmt.Errorf("gcskv.Put: %s: %w", key, err)
	}
	return nil
}

// Close implements store.KV.
func (k *KV) Close() error {
	return k.objects.Close()
}

// FetchURI downloads the object behind a gs:// URI using this client.
func (k *KV) FetchURI(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}
	data, err := k.objects.Read(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("FetchURI: %w", err)
	}
	return data, nil
}

// URI returns the gs:// location of key.
func (k *KV) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", k.bucket, k.objectName(key))
}

func (k *KV) objectName(key string) string {
	return objectName(k.prefix, key)
}

func objectName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// ParseURI splits gs://bucket/path/to/object into bucket and object path.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ExtractFilename returns the last path element of a GCS URI.
// e.g., "gs://bucket/folder/receipt.png" → "receipt.png"
func ExtractFilename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

var (
	_ store.KV    = (*KV)(nil)
	_ ObjectStore = (*GCSObjectStore)(nil)
)
