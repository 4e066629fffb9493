package storage

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrInjected = errors.New("injected blob store failure")

type memObject struct {
	data        []byte
	prev        []byte
	contentType string
	modTime     time.Time
}

// MemoryStorage is an in-process BlobStore and Fetcher used by tests and by
// services started without MinIO. It also serves blobs over HTTP so it can sit
// behind an httptest server. Failure counters let tests inject faults.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]*memObject
	baseURL string
	puts    int

	// Each counter fails the next N calls of that kind.
	FailPuts    int
	FailLists   int
	FailFetches int
	// StaleFetches serves the previous version of an object for the next N fetches.
	StaleFetches int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: map[string]*memObject{}, baseURL: "memory://blobs"}
}

// SetBaseURL changes the prefix of generated URLs (e.g. to an httptest server URL).
func (m *MemoryStorage) SetBaseURL(u string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseURL = strings.TrimRight(u, "/")
}

func (m *MemoryStorage) url(key string) string {
	return m.baseURL + "/" + key
}

func (m *MemoryStorage) Put(ctx context.Context, key string, data []byte, opts PutOptions) (*PutResult, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPuts > 0 {
		m.FailPuts--
		return nil, ErrInjected
	}
	m.puts++
	cp := append([]byte(nil), data...)
	obj, ok := m.objects[key]
	if !ok {
		obj = &memObject{}
		m.objects[key] = obj
	}
	obj.prev = obj.data
	obj.data = cp
	obj.contentType = opts.ContentType
	obj.modTime = time.Now().UTC()
	return &PutResult{Pathname: key, URL: m.url(key)}, nil
}

func (m *MemoryStorage) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLists > 0 {
		m.FailLists--
		return nil, ErrInjected
	}
	out := []BlobInfo{}
	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, BlobInfo{Pathname: k, URL: m.url(k), Size: int64(len(o.data)), LastModified: o.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pathname < out[j].Pathname })
	return out, nil
}

func (m *MemoryStorage) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFetches > 0 {
		m.FailFetches--
		return nil, ErrInjected
	}
	key := strings.TrimPrefix(rawURL, m.baseURL+"/")
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	o, ok := m.objects[key]
	if !ok {
		return nil, &StatusError{URL: rawURL, Code: http.StatusNotFound}
	}
	if m.StaleFetches > 0 && o.prev != nil {
		m.StaleFetches--
		return append([]byte(nil), o.prev...), nil
	}
	return append([]byte(nil), o.data...), nil
}

// ServeHTTP serves GET /<key>.
func (m *MemoryStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	m.mu.RLock()
	o, ok := m.objects[key]
	var data []byte
	var ct string
	if ok {
		data, ct = o.data, o.contentType
	}
	m.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = w.Write(data)
}

// Object returns the stored bytes for key.
func (m *MemoryStorage) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), o.data...), true
}

// Puts returns the number of successful puts.
func (m *MemoryStorage) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Ping always succeeds.
func (m *MemoryStorage) Ping(ctx context.Context) error { return ctx.Err() }
