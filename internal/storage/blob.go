package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrEmptyKey = errors.New("empty blob key")

// PutOptions mirrors the put flags of the hosted blob store the site started on.
// Keys are always deterministic: callers that want a unique key build it themselves.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// PutResult describes a stored blob.
type PutResult struct {
	Pathname string `json:"pathname"`
	URL      string `json:"url"`
	ETag     string `json:"etag,omitempty"`
}

// BlobInfo is one entry of a List result.
type BlobInfo struct {
	Pathname     string    `json:"pathname"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// BlobStore is the object store used for collection documents and uploads.
// Put overwrites; there is no conditional put.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (*PutResult, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// Fetcher reads a blob back through its public URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusError is returned by fetchers for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}
