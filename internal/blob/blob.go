// Package blob keeps an optional copy of each uploaded raw file in Google
// Cloud Storage. The extracted text in the database stays the source of truth;
// blobs are written and deleted best-effort by the upload and subject
// services.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const refScheme = "gs://"

// Store is the subset of object storage the services need. A nil Store means
// remote copies are disabled.
type Store interface {
	// Put uploads r under key and returns a reference to store alongside the
	// file row.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Delete removes the object behind ref. Missing objects are not an error.
	Delete(ctx context.Context, ref string) error
}

// GCS is a Store backed by a single bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS connects to bucket. When emulatorHost is set (e.g.
// "http://localhost:4443") the client talks to a fake-gcs-server without
// credentials; otherwise application default credentials are used.
func NewGCS(ctx context.Context, bucket, emulatorHost string) (*GCS, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("blob: bucket name required")
	}

	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(emulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error { return g.client.Close() }

// Put streams r into the bucket.
func (g *GCS) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("blob: write %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("blob: close writer %q: %w", key, err)
	}
	return Ref(g.bucket, key), nil
}

// Delete removes the object behind ref. Refs for other buckets are rejected.
func (g *GCS) Delete(ctx context.Context, ref string) error {
	bucket, key, err := ParseRef(ref)
	if err != nil {
		return err
	}
	if bucket != g.bucket {
		return fmt.Errorf("blob: ref %q is not in bucket %q", ref, g.bucket)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := g.client.Bucket(bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("blob: delete %q: %w", ref, err)
	}
	return nil
}

// ObjectKey builds a fresh object key for an upload. Every upload gets its own
// key so a re-upload never overwrites the object still referenced by the row
// it replaces.
func ObjectKey(ownerID, subjectID, fileName string) string {
	return strings.Join([]string{
		"notes",
		url.PathEscape(ownerID),
		url.PathEscape(subjectID),
		uuid.NewString(),
		url.PathEscape(fileName),
	}, "/")
}

// Ref formats a stored object reference.
func Ref(bucket, key string) string { return refScheme + bucket + "/" + key }

// ParseRef splits a "gs://bucket/key" reference.
func ParseRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, refScheme)
	if !ok {
		return "", "", fmt.Errorf("blob: invalid ref %q", ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("blob: invalid ref %q", ref)
	}
	return bucket, key, nil
}

// ContentType returns the MIME type stored with an uploaded file.
func ContentType(fileName string) string {
	if strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}
