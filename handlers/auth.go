package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexsite/lexsite/backend/go-services/internal/config"
	"github.com/lexsite/lexsite/backend/go-services/internal/sessions"
	"github.com/lexsite/lexsite/backend/go-services/internal/tokens"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/middleware"
	"golang.org/x/crypto/bcrypt"
)

// LoginRequest is the admin password login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenRevoker blacklists access tokens until they expire.
type TokenRevoker interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
}

// AuthHandler holds dependencies
type AuthHandler struct {
	admin       config.AdminConfig
	issuer      *tokens.Issuer
	sessionsSvc *sessions.Service
	revoker     TokenRevoker
	refreshTTL  time.Duration
}

// NewAuthHandler wires admin login. issuer may be nil when only an external
// identity provider issues admin tokens; login then answers 503.
func NewAuthHandler(cfg *config.Config, issuer *tokens.Issuer, s *sessions.Service, revoker TokenRevoker) *AuthHandler {
	ttl := cfg.JWT.RefreshTokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &AuthHandler{admin: cfg.Admin, issuer: issuer, sessionsSvc: s, revoker: revoker, refreshTTL: ttl}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func (h *AuthHandler) enabled() bool {
	return h.issuer != nil && h.admin.PasswordHash != "" && h.sessionsSvc != nil
}

// Login checks the admin credentials and returns an access and a refresh token.
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin login is not configured"})
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.admin.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		logger.Warnf("admin login failed for %q from %s", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), h.admin.Username, h.refreshTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, exp, err := h.issuer.Issue(h.admin.Username)
	if err != nil {
		logger.Errorf("failed to sign access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	logger.Infof("admin %s logged in", h.admin.Username)
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"tokenType":    "Bearer",
		"expiresIn":    int(time.Until(exp).Seconds()),
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	if !h.enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin login is not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Errorf("refresh validation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	access, exp, err := h.issuer.Issue(sess.Sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "tokenType": "Bearer", "expiresIn": int(time.Until(exp).Seconds())})
}

// Logout invalidates the refresh token and blacklists the presented access token
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if at, ok := middleware.BearerToken(c); ok && h.revoker != nil {
		if exp, err := parseExpFromJWT(at); err == nil {
			if err := h.revoker.Add(c.Request.Context(), at, time.Until(exp)); err != nil {
				logger.Errorf("blacklist access token: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
				return
			}
		}
	}
	if h.sessionsSvc != nil {
		if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
			logger.Errorf("delete session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// This performs payload-only parsing (no signature verification) and is suitable
// for computing remaining TTLs for blacklisting purposes.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	payload := parts[1]
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		// try standard base64 (pad) as a fallback
		b, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
