package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexsite/lexsite/backend/go-services/internal/document"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/repository"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/service"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, admin ...gin.HandlerFunc) (*gin.Engine, *storage.MemoryStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := storage.NewMemoryStorage()
	locker := repository.NewMemoryLocker(time.Second)

	rspec := document.ResourcesSpec()
	rrepo := repository.NewBlobRepo(m, m, locker, rspec, repository.Options{WriteBackoff: -1})
	tspec := document.TestimonialsSpec()
	trepo := repository.NewBlobRepo(m, m, locker, tspec, repository.Options{WriteBackoff: -1})

	g := gin.New()
	api := g.Group("/api")
	RegisterCollectionRoutes(api, rspec, service.New[*document.Resource](rrepo, rspec, service.Options{Backoff: -1}), admin...)
	RegisterCollectionRoutes(api, tspec, service.New[*document.Testimonial](trepo, tspec, service.Options{Backoff: -1}), admin...)
	return g, m
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	g.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCollectionHandler_PublishLifecycle(t *testing.T) {
	g, _ := setup(t)

	// create
	w := do(g, http.MethodPost, "/api/resources", `{"resourceType":"Legal Post","heading":"<h1>Tenancy</h1>","body":"<p>x</p>"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	res := decode(t, w)
	require.Equal(t, true, res["success"])
	id := res["resource"].(map[string]any)["id"].(string)
	require.NotEmpty(t, id)

	// not yet public
	w = do(g, http.MethodGet, "/api/resources/published", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode(t, w)["items"])

	// publish
	w = do(g, http.MethodPost, "/api/resources/publish", `{"id":"`+id+`","publish":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["resource"].(map[string]any)["published"])

	w = do(g, http.MethodGet, "/api/resources/published", "")
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, id, items[0].(map[string]any)["id"])

	w = do(g, http.MethodGet, "/api/resources", "")
	body := decode(t, w)
	require.Equal(t, []any{id}, body["publishedIndex"])
	require.EqualValues(t, 2, body["version"])

	// delete
	w = do(g, http.MethodDelete, "/api/resources?id="+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(g, http.MethodGet, "/api/resources/published", "")
	require.Empty(t, decode(t, w)["items"])
	w = do(g, http.MethodGet, "/api/resources", "")
	body = decode(t, w)
	require.Empty(t, body["items"])
	require.Empty(t, body["publishedIndex"])
}

func TestCollectionHandler_UpdateAndErrors(t *testing.T) {
	g, _ := setup(t)

	w := do(g, http.MethodPost, "/api/testimonials", `{"name":"Ravi","content":"Thorough and kind."}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["testimonial"].(map[string]any)["id"].(string)

	w = do(g, http.MethodPut, "/api/testimonials", `{"id":"`+id+`","role":"Founder","published":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	tm := decode(t, w)["testimonial"].(map[string]any)
	require.Equal(t, "Founder", tm["role"])
	require.Equal(t, true, tm["published"])
	require.NotNil(t, tm["publishedAt"])

	w = do(g, http.MethodGet, "/api/testimonials", "")
	_, hasIndex := decode(t, w)["publishedIndex"]
	require.False(t, hasIndex)

	require.Equal(t, http.StatusBadRequest, do(g, http.MethodPut, "/api/testimonials", `{"role":"x"}`).Code)
	require.Equal(t, http.StatusNotFound, do(g, http.MethodPut, "/api/testimonials", `{"id":"nope","role":"x"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(g, http.MethodPut, "/api/testimonials", `{"id":"`+id+`","name":""}`).Code)
	require.Equal(t, http.StatusBadRequest, do(g, http.MethodDelete, "/api/testimonials", "").Code)
	require.Equal(t, http.StatusBadRequest, do(g, http.MethodPost, "/api/testimonials/publish", `{"id":"`+id+`"}`).Code)
	require.Equal(t, http.StatusNotFound, do(g, http.MethodPost, "/api/testimonials/publish", `{"id":"nope","publish":false}`).Code)
	require.Equal(t, http.StatusBadRequest, do(g, http.MethodPost, "/api/testimonials", `{"name":"only"}`).Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodDelete, "/api/testimonials?id=nope", "").Code)
}

func TestCollectionHandler_ReadFailureIs500(t *testing.T) {
	g, m := setup(t)
	require.Equal(t, http.StatusCreated, do(g, http.MethodPost, "/api/resources", `{"resourceType":"Books","heading":"h","body":"b"}`).Code)
	puts := m.Puts()

	m.FailFetches = 1
	w := do(g, http.MethodPost, "/api/resources", `{"resourceType":"Books","heading":"h2","body":"b"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, "failed to create resource", body["error"])
	require.Equal(t, puts, m.Puts())

	m.FailLists = 1
	require.Equal(t, http.StatusInternalServerError, do(g, http.MethodGet, "/api/resources", "").Code)
}

func TestCollectionHandler_WriteExhaustionIs500(t *testing.T) {
	g, m := setup(t)
	w := do(g, http.MethodPost, "/api/resources", `{"resourceType":"Books","heading":"h","body":"b"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["resource"].(map[string]any)["id"].(string)

	m.FailPuts = 1000
	cases := []struct {
		method, path, body, msg string
	}{
		{http.MethodPut, "/api/resources", `{"id":"` + id + `","heading":"h2"}`, "failed to update resource"},
		{http.MethodPost, "/api/resources/publish", `{"id":"` + id + `","publish":true}`, "failed to publish resource"},
		{http.MethodDelete, "/api/resources?id=" + id, "", "failed to delete resource"},
	}
	for _, tc := range cases {
		w := do(g, tc.method, tc.path, tc.body)
		require.Equal(t, http.StatusInternalServerError, w.Code, tc.path)
		body := decode(t, w)
		require.Equal(t, false, body["success"])
		require.Equal(t, tc.msg, body["error"])
	}

	m.FailPuts = 0
	w = do(g, http.MethodGet, "/api/resources", "")
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, "h", items[0].(map[string]any)["heading"])
}

func TestCollectionHandler_AdminGuard(t *testing.T) {
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	g, m := setup(t, deny)

	require.Equal(t, http.StatusUnauthorized, do(g, http.MethodPost, "/api/resources", `{"resourceType":"Books","heading":"h","body":"b"}`).Code)
	require.Equal(t, http.StatusUnauthorized, do(g, http.MethodDelete, "/api/resources?id=x", "").Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/api/resources", "").Code)
	require.Equal(t, 0, m.Puts())
}
