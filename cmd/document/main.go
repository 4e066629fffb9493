// Command document serves only the collections API (resources and
// testimonials), with the same store wiring as the main server.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/lexsite/lexsite/backend/go-services/handlers"
	"github.com/lexsite/lexsite/backend/go-services/internal/config"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/repository"
	"github.com/lexsite/lexsite/backend/go-services/internal/sessions"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/lexsite/lexsite/backend/go-services/internal/tokens"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	port := os.Getenv("DOC_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(cfg.Server.AllowedOrigins))

	backend, err := storage.Open(&cfg.MinIO)
	if err != nil {
		logger.Fatalf("failed to open blob store: %v", err)
	}
	if backend.Memory != nil {
		backend.Memory.SetBaseURL("/blobs")
		r.GET("/blobs/*key", gin.WrapH(http.StripPrefix("/blobs", backend.Memory)))
	}

	var rdb *redis.Client
	var locker repository.Locker = repository.NewMemoryLocker(cfg.Store.LockWait)
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("cannot reach Redis (%v); using a process-local write lock", err)
			rdb = nil
		} else {
			locker = repository.NewRedisLocker(rdb, "", cfg.Store.LockTTL, cfg.Store.LockWait)
		}
	}

	var verifiers []middleware.Verifier
	if cfg.JWT.Secret != "" {
		issuer, err := tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
		if err != nil {
			logger.Fatalf("invalid JWT configuration: %v", err)
		}
		verifiers = append(verifiers, issuer)
	}
	admin := middleware.AuthMiddleware(sessions.NewRedisBlacklist(rdb), verifiers...)

	handlers.NewCollections(backend.Store, backend.Fetcher, locker, cfg.Store).Register(r.Group("/api"), admin)
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })

	logger.Infof("document service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
