package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lexsite/lexsite/backend/go-services/internal/document"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newResourceRepo(m *storage.MemoryStorage) *BlobRepo[*document.Resource] {
	return NewBlobRepo(m, m, NewMemoryLocker(time.Second), document.ResourcesSpec(), Options{
		WriteBackoff: -1,
		Now:          func() time.Time { return fixedNow },
	})
}

func resource(id string, published bool) *document.Resource {
	return &document.Resource{
		ID: id, ResourceType: document.ResourceBooks, Heading: "h", Body: "b",
		Images: []string{}, Links: []document.Link{}, Published: published, CreatedAt: fixedNow,
	}
}

func TestBlobRepo_ReadMissingIsEmpty(t *testing.T) {
	repo := newResourceRepo(storage.NewMemoryStorage())
	doc, err := repo.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(0), doc.Version)
	require.Empty(t, doc.Items)
	require.NotNil(t, doc.Items)
}

func TestBlobRepo_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	repo := newResourceRepo(m)

	written, err := repo.Write(ctx, &document.Document[*document.Resource]{
		Items: []*document.Resource{resource("a", true), resource("b", false)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), written.Version)

	doc, err := repo.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), doc.Version)
	require.Equal(t, []string{"a", "b"}, doc.IDs())
	require.Equal(t, fixedNow, *doc.UpdatedAt)

	raw, ok := m.Object("resources.json")
	require.True(t, ok)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Equal(t, []any{"a"}, wire["publishedIndex"])
}

func TestBlobRepo_ReadFailurePropagates(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	repo := newResourceRepo(m)
	_, err := repo.Write(ctx, &document.Document[*document.Resource]{Items: []*document.Resource{resource("a", false)}})
	require.NoError(t, err)

	m.FailFetches = 1
	_, err = repo.Read(ctx)
	require.ErrorIs(t, err, document.ErrReadFailure)

	m.FailLists = 1
	_, err = repo.Write(ctx, &document.Document[*document.Resource]{Version: 1})
	require.ErrorIs(t, err, document.ErrReadFailure)
	require.Equal(t, 1, m.Puts())
}

func TestBlobRepo_CorruptDocumentIsReadFailure(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	_, err := m.Put(ctx, "resources.json", []byte("{not json"), storage.PutOptions{})
	require.NoError(t, err)

	repo := newResourceRepo(m)
	_, err = repo.Read(ctx)
	require.ErrorIs(t, err, document.ErrReadFailure)
	_, err = repo.Write(ctx, &document.Document[*document.Resource]{})
	require.ErrorIs(t, err, document.ErrReadFailure)
	require.Equal(t, 1, m.Puts())
}

func TestBlobRepo_VersionConflict(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	repo := newResourceRepo(m)
	_, err := repo.Write(ctx, &document.Document[*document.Resource]{Items: []*document.Resource{resource("a", false)}})
	require.NoError(t, err)

	_, err = repo.Write(ctx, &document.Document[*document.Resource]{Version: 0})
	require.ErrorIs(t, err, document.ErrVersionConflict)
	require.True(t, document.Retryable(err))

	doc, err := repo.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, doc.IDs())
}

func TestBlobRepo_RetriesPutAndStaleVerification(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	repo := newResourceRepo(m)
	_, err := repo.Write(ctx, &document.Document[*document.Resource]{Items: []*document.Resource{resource("a", false)}})
	require.NoError(t, err)

	m.FailPuts = 1
	m.StaleFetches = 1
	written, err := repo.Write(ctx, &document.Document[*document.Resource]{
		Version: 1,
		Items:   []*document.Resource{resource("a", false), resource("b", false)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), written.Version)
	require.Equal(t, 3, m.Puts())
}

func TestBlobRepo_WriteFailureAfterAttempts(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	repo := newResourceRepo(m)
	m.FailPuts = 3
	_, err := repo.Write(ctx, &document.Document[*document.Resource]{Items: []*document.Resource{resource("a", false)}})
	require.ErrorIs(t, err, document.ErrWriteFailure)
	require.Equal(t, 0, m.Puts())
}

func TestBlobRepo_LegacyLayout(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	legacy := `{"testimonials":[{"id":"t1","name":"A","content":"c","published":true,"createdAt":"2024-01-01T00:00:00Z"},null]}`
	_, err := m.Put(ctx, "testimonials.json", []byte(legacy), storage.PutOptions{})
	require.NoError(t, err)

	repo := NewBlobRepo(m, m, NewMemoryLocker(0), document.TestimonialsSpec(), Options{WriteBackoff: -1})
	doc, err := repo.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), doc.Version)
	require.Equal(t, []string{"t1"}, doc.IDs())
	require.True(t, doc.Items[0].Published)
}

func TestBlobRepo_ImportRawBumpsVersion(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStorage()
	repo := newResourceRepo(m)
	_, err := repo.Write(ctx, &document.Document[*document.Resource]{Items: []*document.Resource{resource("a", false)}})
	require.NoError(t, err)
	raw, found, err := repo.ExportRaw(ctx)
	require.NoError(t, err)
	require.True(t, found)

	_, err = repo.Write(ctx, &document.Document[*document.Resource]{Version: 1})
	require.NoError(t, err)

	require.NoError(t, repo.ImportRaw(ctx, raw))
	doc, err := repo.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), doc.Version)
	require.Equal(t, []string{"a"}, doc.IDs())

	require.ErrorIs(t, repo.ImportRaw(ctx, []byte("nope")), document.ErrValidation)
}

func TestMemoryLocker_Timeout(t *testing.T) {
	l := NewMemoryLocker(20 * time.Millisecond)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	_, err = l.Lock(context.Background(), "k")
	require.ErrorIs(t, err, ErrLockTimeout)
	_, err = l.Lock(context.Background(), "other")
	require.NoError(t, err)
	unlock()
	unlock()
	unlock2, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLocker(client, "", time.Minute, 50*time.Millisecond)
	ctx := context.Background()
	unlock, err := l.Lock(ctx, "resources.json")
	require.NoError(t, err)
	require.True(t, mr.Exists("lock:collection:resources.json"))

	_, err = l.Lock(ctx, "resources.json")
	require.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	require.False(t, mr.Exists("lock:collection:resources.json"))
	unlock2, err := l.Lock(ctx, "resources.json")
	require.NoError(t, err)

	// a stale release must not drop someone else's lock
	unlock()
	require.True(t, mr.Exists("lock:collection:resources.json"))
	unlock2()

	unlock3, err := l.Lock(ctx, "resources.json")
	require.NoError(t, err)
	require.NoError(t, mr.Set("lock:collection:resources.json", "other-holder"))
	unlock3()
	got, err := mr.Get("lock:collection:resources.json")
	require.NoError(t, err)
	require.Equal(t, "other-holder", got)
}

func TestRedisLocker_RefreshesWhileHeld(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	const key = "lock:collection:resources.json"
	l := NewRedisLocker(client, "", 300*time.Millisecond, 50*time.Millisecond)
	unlock, err := l.Lock(context.Background(), "resources.json")
	require.NoError(t, err)

	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool { return mr.TTL(key) > 200*time.Millisecond }, 2*time.Second, 10*time.Millisecond)

	unlock()
	require.False(t, mr.Exists(key))
	unlock()
}

func TestBlobRepo_RedisLockTimeoutIsConflict(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLocker(client, "", time.Minute, 30*time.Millisecond)
	m := storage.NewMemoryStorage()
	repo := NewBlobRepo(m, m, l, document.ResourcesSpec(), Options{WriteBackoff: -1})

	unlock, err := l.Lock(context.Background(), "resources.json")
	require.NoError(t, err)
	defer unlock()
	_, err = repo.Write(context.Background(), &document.Document[*document.Resource]{})
	require.ErrorIs(t, err, document.ErrVersionConflict)
}
