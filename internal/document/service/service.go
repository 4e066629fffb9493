package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/lexsite/lexsite/backend/go-services/internal/document"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/metrics"
	"github.com/lexsite/lexsite/backend/go-services/pkg/retry"
)

// Repository is the document store a collection service mutates.
type Repository[T document.Entity] interface {
	Read(ctx context.Context) (*document.Document[T], error)
	Write(ctx context.Context, doc *document.Document[T]) (*document.Document[T], error)
}

// Service defines the collection operations used by the handler layer.
type Service[T document.Entity] interface {
	Document(ctx context.Context) (*document.Document[T], error)
	Published(ctx context.Context) ([]T, error)
	Create(ctx context.Context, fields T) (T, error)
	Update(ctx context.Context, id string, patch map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string, publish bool) (T, error)
}

type Options struct {
	// Attempts is the number of read-modify-write cycles per mutation (default 5).
	Attempts int
	// Backoff is multiplied by the attempt number between cycles (default 200ms).
	Backoff time.Duration
	Now     func() time.Time
	NewID   func(now time.Time) string
}

// New returns a Service for the collection described by spec.
func New[T document.Entity](repo Repository[T], spec document.Spec[T], opts Options) Service[T] {
	if opts.Attempts <= 0 {
		opts.Attempts = 5
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	} else if opts.Backoff == 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewID
	}
	return &collectionService[T]{
		repo:    repo,
		spec:    spec,
		opts:    opts,
		retryer: retry.NewLinearBackoffRetryer(opts.Backoff, opts.Attempts),
	}
}

type collectionService[T document.Entity] struct {
	repo    Repository[T]
	spec    document.Spec[T]
	opts    Options
	retryer retry.Retryer
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns "<unix millis>-<7 base36 chars>".
func NewID(now time.Time) string {
	suffix := make([]byte, 7)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		suffix[i] = idAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

func (s *collectionService[T]) run(ctx context.Context, op string, failure error, fn func(ctx context.Context) error) error {
	policy := retry.Policy{
		Retryer:   s.retryer,
		Retryable: document.Retryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			metrics.MutationRetries.WithLabelValues(s.spec.Name, op).Inc()
			logger.Warnf("%s %s attempt %d failed, retrying in %s: %v", op, s.spec.Singular, attempt, delay, err)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error { return fn(ctx) })
	if err != nil && errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %w", failure, err)
	}
	return err
}

func (s *collectionService[T]) notFound(id string) error {
	return fmt.Errorf("%w: %s %s", document.ErrNotFound, s.spec.Singular, id)
}

func (s *collectionService[T]) Document(ctx context.Context) (*document.Document[T], error) {
	return s.repo.Read(ctx)
}

func (s *collectionService[T]) Published(ctx context.Context) ([]T, error) {
	doc, err := s.repo.Read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Published(), nil
}

func (s *collectionService[T]) Create(ctx context.Context, fields T) (T, error) {
	var zero, created T
	if err := fields.Validate(); err != nil {
		return zero, err
	}
	var lastID string
	err := s.run(ctx, "create", document.ErrCreateFailure, func(ctx context.Context) error {
		doc, err := s.repo.Read(ctx)
		if err != nil {
			return err
		}
		// an earlier attempt may have landed even though its verification failed
		if lastID != "" {
			if i := doc.Find(lastID); i >= 0 {
				created = doc.Items[i]
				return nil
			}
		}
		now := s.opts.Now().UTC()
		id := s.opts.NewID(now)
		for doc.Find(id) >= 0 {
			id = s.opts.NewID(now)
		}
		fields.Stamp(id, now)
		lastID = id
		doc.Items = append(doc.Items, fields)
		if _, err := s.repo.Write(ctx, doc); err != nil {
			return err
		}
		created = fields
		return nil
	})
	if err != nil {
		return zero, err
	}
	logger.Infof("created %s %s", s.spec.Singular, created.EntityID())
	return created, nil
}

func (s *collectionService[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero, updated T
	err := s.run(ctx, "update", document.ErrUpdateFailure, func(ctx context.Context) error {
		doc, err := s.repo.Read(ctx)
		if err != nil {
			return err
		}
		i := doc.Find(id)
		if i < 0 {
			return s.notFound(id)
		}
		merged, err := s.merge(doc.Items[i], patch, s.opts.Now().UTC())
		if err != nil {
			return err
		}
		doc.Items[i] = merged
		if _, err := s.repo.Write(ctx, doc); err != nil {
			return err
		}
		updated = merged
		return nil
	})
	if err != nil {
		return zero, err
	}
	return updated, nil
}

// merge overlays patch onto the JSON form of cur. id, createdAt and publishedAt
// never come from the patch; published only does for collections that publish
// through update.
func (s *collectionService[T]) merge(cur T, patch map[string]any, now time.Time) (T, error) {
	var zero T
	b, err := json.Marshal(cur)
	if err != nil {
		return zero, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return zero, err
	}
	for k, v := range patch {
		switch k {
		case "id", "createdAt", "publishedAt":
			continue
		case "published":
			if !s.spec.PublishViaUpdate {
				continue
			}
		}
		fields[k] = v
	}
	if b, err = json.Marshal(fields); err != nil {
		return zero, err
	}
	out := s.spec.New()
	if err := json.Unmarshal(b, out); err != nil {
		return zero, fmt.Errorf("%w: %v", document.ErrValidation, err)
	}
	if s.spec.PublishViaUpdate && out.IsPublished() != cur.IsPublished() {
		if out.IsPublished() {
			s.publishAt(out, now)
		} else {
			out.SetPublished(false, nil)
		}
	}
	if err := out.Validate(); err != nil {
		return zero, err
	}
	return out, nil
}

func (s *collectionService[T]) publishAt(it T, now time.Time) {
	t := now
	if c := it.Created(); t.Before(c) {
		t = c
	}
	it.SetPublished(true, &t)
}

// Delete removes id. Deleting an absent id succeeds without writing.
func (s *collectionService[T]) Delete(ctx context.Context, id string) error {
	return s.run(ctx, "delete", document.ErrDeleteFailure, func(ctx context.Context) error {
		doc, err := s.repo.Read(ctx)
		if err != nil {
			return err
		}
		i := doc.Find(id)
		if i < 0 {
			return nil
		}
		items := make([]T, 0, len(doc.Items)-1)
		items = append(items, doc.Items[:i]...)
		doc.Items = append(items, doc.Items[i+1:]...)
		_, err = s.repo.Write(ctx, doc)
		return err
	})
}

func (s *collectionService[T]) Publish(ctx context.Context, id string, publish bool) (T, error) {
	var zero, out T
	err := s.run(ctx, "publish", document.ErrPublishFailure, func(ctx context.Context) error {
		doc, err := s.repo.Read(ctx)
		if err != nil {
			return err
		}
		i := doc.Find(id)
		if i < 0 {
			return s.notFound(id)
		}
		it := doc.Items[i]
		if publish {
			s.publishAt(it, s.opts.Now().UTC())
		} else {
			it.SetPublished(false, nil)
		}
		if _, err := s.repo.Write(ctx, doc); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return zero, err
	}
	return out, nil
}
