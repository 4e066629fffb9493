package storage

import (
	"context"

	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
)

// Backend is an opened blob store with the fetcher that reads it back.
type Backend struct {
	Store   BlobStore
	Fetcher Fetcher
	// Memory is set when no MinIO endpoint is configured.
	Memory *MemoryStorage
	ping   func(ctx context.Context) error
}

// Ping checks that the store is reachable.
func (b *Backend) Ping(ctx context.Context) error { return b.ping(ctx) }

// Open connects to MinIO when cfg is enabled and falls back to an in-process
// store otherwise. MinIO objects are read back over their public URLs.
func Open(cfg *MinIOConfig) (*Backend, error) {
	if !cfg.Enabled() {
		m := NewMemoryStorage()
		logger.Warnf("blob store: in-memory (contents are lost on restart)")
		return &Backend{Store: m, Fetcher: m, Memory: m, ping: m.Ping}, nil
	}
	s, err := NewMinIOStorage(cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("blob store: minio %s bucket=%s", cfg.Endpoint, cfg.Bucket)
	return &Backend{Store: s, Fetcher: NewHTTPFetcher(nil), ping: s.Ping}, nil
}
