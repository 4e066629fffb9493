package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexsite/lexsite/backend/go-services/internal/document"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/metrics"
	"github.com/lexsite/lexsite/backend/go-services/pkg/retry"
)

var errVerifyMismatch = errors.New("read-back does not match written document")

// Options tunes the write path. Zero values fall back to the defaults.
type Options struct {
	// WriteAttempts is the total number of put+verify attempts (default 3).
	WriteAttempts int
	// WriteBackoff is multiplied by the attempt number between attempts (default 100ms).
	WriteBackoff time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.WriteAttempts <= 0 {
		o.WriteAttempts = 3
	}
	if o.WriteBackoff < 0 {
		o.WriteBackoff = 0
	} else if o.WriteBackoff == 0 {
		o.WriteBackoff = 100 * time.Millisecond
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// BlobRepo stores one collection as a single JSON blob at a fixed key.
type BlobRepo[T document.Entity] struct {
	store   storage.BlobStore
	fetcher storage.Fetcher
	locker  Locker
	spec    document.Spec[T]
	opts    Options
	retryer retry.Retryer
}

func NewBlobRepo[T document.Entity](store storage.BlobStore, fetcher storage.Fetcher, locker Locker, spec document.Spec[T], opts Options) *BlobRepo[T] {
	opts = opts.withDefaults()
	return &BlobRepo[T]{
		store:   store,
		fetcher: fetcher,
		locker:  locker,
		spec:    spec,
		opts:    opts,
		retryer: retry.NewLinearBackoffRetryer(opts.WriteBackoff, opts.WriteAttempts),
	}
}

// Key returns the blob key of the collection.
func (r *BlobRepo[T]) Key() string { return r.spec.Key }

// Read returns the stored document, or an empty one (version 0) when the blob
// does not exist. Any failure is returned as ErrReadFailure.
func (r *BlobRepo[T]) Read(ctx context.Context) (*document.Document[T], error) {
	raw, found, err := r.readRaw(ctx)
	if err != nil {
		return nil, r.readFailure(err)
	}
	if !found {
		return &document.Document[T]{Items: []T{}}, nil
	}
	doc, err := decode(r.spec, raw)
	if err != nil {
		return nil, r.readFailure(err)
	}
	return doc, nil
}

func (r *BlobRepo[T]) readFailure(err error) error {
	metrics.StoreReadFailures.WithLabelValues(r.spec.Name).Inc()
	logger.Warnf("read %s failed: %v", r.spec.Key, err)
	return fmt.Errorf("%w: %s: %w", document.ErrReadFailure, r.spec.Key, err)
}

func (r *BlobRepo[T]) readRaw(ctx context.Context) ([]byte, bool, error) {
	blobs, err := r.store.List(ctx, r.spec.Key)
	if err != nil {
		return nil, false, fmt.Errorf("list: %w", err)
	}
	var url string
	for _, b := range blobs {
		if b.Pathname == r.spec.Key {
			url = b.URL
			break
		}
	}
	if url == "" {
		return nil, false, nil
	}
	raw, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Write persists doc if the stored version still equals doc.Version, and returns
// the written document with its new version. A moved version yields
// ErrVersionConflict without writing.
func (r *BlobRepo[T]) Write(ctx context.Context, doc *document.Document[T]) (*document.Document[T], error) {
	unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := r.Read(ctx)
	if err != nil {
		return nil, err
	}
	if current.Version != doc.Version {
		metrics.StoreConflicts.WithLabelValues(r.spec.Name).Inc()
		return nil, fmt.Errorf("%w: %s is at version %d, write based on %d", document.ErrVersionConflict, r.spec.Key, current.Version, doc.Version)
	}

	now := r.opts.Now().UTC()
	next := &document.Document[T]{Version: doc.Version + 1, UpdatedAt: &now, Items: doc.Items}
	if next.Items == nil {
		next.Items = []T{}
	}
	body, err := encode(r.spec, next)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrWriteFailure, err)
	}
	if err := r.put(ctx, body, func(ctx context.Context) error { return r.verify(ctx, next) }); err != nil {
		return nil, err
	}
	logger.Debugf("wrote %s version=%d items=%d", r.spec.Key, next.Version, len(next.Items))
	return next, nil
}

func (r *BlobRepo[T]) lock(ctx context.Context) (func(), error) {
	unlock, err := r.locker.Lock(ctx, r.spec.Key)
	if err == nil {
		return unlock, nil
	}
	if errors.Is(err, ErrLockTimeout) {
		metrics.StoreConflicts.WithLabelValues(r.spec.Name).Inc()
		return nil, fmt.Errorf("%w: %w", document.ErrVersionConflict, err)
	}
	return nil, fmt.Errorf("%w: acquire lock: %w", document.ErrWriteFailure, err)
}

// put uploads body and runs check, retrying both with linear backoff.
func (r *BlobRepo[T]) put(ctx context.Context, body []byte, check func(context.Context) error) error {
	policy := retry.Policy{
		Retryer: r.retryer,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warnf("write %s attempt %d failed, retrying in %s: %v", r.spec.Key, attempt, delay, err)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		if _, err := r.store.Put(ctx, r.spec.Key, body, storage.PutOptions{ContentType: "application/json", CacheControl: "no-store"}); err != nil {
			metrics.StoreWrites.WithLabelValues(r.spec.Name, "put_error").Inc()
			return err
		}
		if err := check(ctx); err != nil {
			metrics.StoreWrites.WithLabelValues(r.spec.Name, "verify_mismatch").Inc()
			return err
		}
		metrics.StoreWrites.WithLabelValues(r.spec.Name, "ok").Inc()
		return nil
	})
	if err != nil {
		logger.Errorf("write %s failed: %v", r.spec.Key, err)
		return fmt.Errorf("%w: %s: %w", document.ErrWriteFailure, r.spec.Key, err)
	}
	return nil
}

// verify reads the blob back and compares version and the ordered id list.
func (r *BlobRepo[T]) verify(ctx context.Context, want *document.Document[T]) error {
	raw, found, err := r.readRaw(ctx)
	if err != nil {
		return fmt.Errorf("verify read: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: blob missing", errVerifyMismatch)
	}
	got, err := decode(r.spec, raw)
	if err != nil {
		return fmt.Errorf("verify decode: %w", err)
	}
	if got.Version != want.Version || len(got.Items) != len(want.Items) {
		return fmt.Errorf("%w: version %d/%d items %d/%d", errVerifyMismatch, got.Version, want.Version, len(got.Items), len(want.Items))
	}
	for i, id := range want.IDs() {
		if got.Items[i].EntityID() != id {
			return fmt.Errorf("%w: item %d is %q, want %q", errVerifyMismatch, i, got.Items[i].EntityID(), id)
		}
	}
	return nil
}

// ExportRaw returns the stored bytes of the collection document.
func (r *BlobRepo[T]) ExportRaw(ctx context.Context) ([]byte, bool, error) {
	raw, found, err := r.readRaw(ctx)
	if err != nil {
		return nil, false, r.readFailure(err)
	}
	return raw, found, nil
}

// ImportRaw replaces the collection with raw (a document in any accepted layout).
// The restored document gets a version above the current one so that writers
// holding an older read are rejected.
func (r *BlobRepo[T]) ImportRaw(ctx context.Context, raw []byte) error {
	restored, err := decode(r.spec, raw)
	if err != nil {
		return fmt.Errorf("%w: %w", document.ErrValidation, err)
	}
	unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := r.Read(ctx)
	if err != nil {
		return err
	}
	now := r.opts.Now().UTC()
	next := &document.Document[T]{Version: current.Version + 1, UpdatedAt: &now, Items: restored.Items}
	body, err := encode(r.spec, next)
	if err != nil {
		return fmt.Errorf("%w: %w", document.ErrWriteFailure, err)
	}
	return r.put(ctx, body, func(ctx context.Context) error { return r.verify(ctx, next) })
}
