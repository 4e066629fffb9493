package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier accepts exactly one raw token.
type fakeVerifier struct {
	accept string
	sub    string
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	if raw == f.accept {
		return &fakeToken{data: map[string]interface{}{"sub": f.sub}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

type fakeBlacklist struct {
	tokens map[string]bool
	err    error
}

func (b *fakeBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	return b.tokens[token], b.err
}

func serve(h gin.HandlerFunc, authHeader string) *httptest.ResponseRecorder {
	g := gin.New()
	g.GET("/", h, func(c *gin.Context) {
		claims, _ := c.Get("claims")
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	rw := serve(AuthMiddleware(nil, &fakeVerifier{accept: "good"}), "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	rw := serve(AuthMiddleware(nil, &fakeVerifier{accept: "good"}), "BadHeader")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_NotConfigured(t *testing.T) {
	rw := serve(AuthMiddleware(nil), "Bearer good")
	require.Equal(t, http.StatusServiceUnavailable, rw.Code)
}

func TestAuthMiddleware_AnyVerifierMayAccept(t *testing.T) {
	mw := AuthMiddleware(nil, &fakeVerifier{accept: "local", sub: "admin"}, &fakeVerifier{accept: "idp", sub: "sso-user"})

	rw := serve(mw, "Bearer idp")
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "sso-user", got["claims"]["sub"])

	require.Equal(t, http.StatusOK, serve(mw, "bearer local").Code)
	require.Equal(t, http.StatusUnauthorized, serve(mw, "Bearer other").Code)
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	bl := &fakeBlacklist{tokens: map[string]bool{"good": true}}
	rw := serve(AuthMiddleware(bl, &fakeVerifier{accept: "good"}), "Bearer good")
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	bl.err = errors.New("redis down")
	rw = serve(AuthMiddleware(bl, &fakeVerifier{accept: "good"}), "Bearer good")
	require.Equal(t, http.StatusInternalServerError, rw.Code)
}

func TestCORS(t *testing.T) {
	g := gin.New()
	g.Use(CORS([]string{"https://firm.example"}))
	g.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://firm.example")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusNoContent, rw.Code)
	require.Equal(t, "https://firm.example", rw.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))
}
