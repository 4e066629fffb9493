package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexsite/lexsite/backend/go-services/handlers"
	"github.com/lexsite/lexsite/backend/go-services/internal/config"
	"github.com/lexsite/lexsite/backend/go-services/internal/database"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/repository"
	"github.com/lexsite/lexsite/backend/go-services/internal/inquiry"
	"github.com/lexsite/lexsite/backend/go-services/internal/mail"
	"github.com/lexsite/lexsite/backend/go-services/internal/oidc"
	"github.com/lexsite/lexsite/backend/go-services/internal/sessions"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/lexsite/lexsite/backend/go-services/internal/tokens"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/metrics"
	"github.com/lexsite/lexsite/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: minio=%v mongo=%v redis=%v oidc=%v smtp=%v", cfg.MinIO.Enabled(), cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.OIDC.Issuer != "", cfg.Mail.Host != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.CORS(cfg.Server.AllowedOrigins))

	// Redis backs the write lock, rate limits, sessions and the token blacklist
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		c := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Ping(pctx).Err()
		cancel()
		if err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = c.Close()
		} else {
			logger.Infof("connected to Redis at %s", addr)
			rdb = c
			defer rdb.Close()
		}
	}

	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			logger.Warnf("could not connect to MongoDB: %v", err)
		} else {
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			r.Use(middleware.RedisRateLimitMiddleware(rdb, "global", cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
		} else {
			r.Use(middleware.RateLimitMiddleware("global", cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// blob store
	backend, err := storage.Open(&cfg.MinIO)
	if err != nil {
		logger.Fatalf("failed to open blob store: %v", err)
	}
	if backend.Memory != nil {
		backend.Memory.SetBaseURL("/blobs")
		r.GET("/blobs/*key", gin.WrapH(http.StripPrefix("/blobs", backend.Memory)))
	}

	var locker repository.Locker
	if rdb != nil {
		locker = repository.NewRedisLocker(rdb, "", cfg.Store.LockTTL, cfg.Store.LockWait)
	} else {
		logger.Warnf("collection write lock is process-local; run a single instance or configure Redis")
		locker = repository.NewMemoryLocker(cfg.Store.LockWait)
	}

	// admin authentication
	var verifiers []middleware.Verifier
	var issuer *tokens.Issuer
	if cfg.JWT.Secret != "" {
		issuer, err = tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
		if err != nil {
			logger.Fatalf("invalid JWT configuration: %v", err)
		}
		verifiers = append(verifiers, issuer)
	}
	oidcReady := true
	if cfg.OIDC.Issuer != "" && cfg.OIDC.ClientID != "" {
		octx, cancel := context.WithTimeout(ctx, 10*time.Second)
		ver, err := oidc.NewVerifier(octx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		cancel()
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
			oidcReady = false
		} else {
			verifiers = append(verifiers, ver)
		}
	}
	blacklist := sessions.NewRedisBlacklist(rdb)
	admin := middleware.AuthMiddleware(blacklist, verifiers...)

	var sessionsSvc *sessions.Service
	switch {
	case rdb != nil:
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "session:"))
	case mongoClient != nil:
		srepo := sessions.NewMongoRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("sessions"))
		if err := srepo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("sessions indexes: %v", err)
		}
		sessionsSvc = sessions.NewService(srepo)
	default:
		sessionsSvc = sessions.NewService(sessions.NewMemoryRepository())
	}
	handlers.NewAuthHandler(cfg, issuer, sessionsSvc, blacklist).Register(r.Group("/"))

	// inquiries
	var mailer mail.Mailer = &mail.LogMailer{}
	if cfg.Mail.Host != "" {
		mailer = mail.NewSMTPMailer(cfg.Mail)
	} else {
		logger.Warnf("SMTP_HOST is not set; inquiry emails are only logged")
	}
	var inquiryRepo inquiry.Repository = inquiry.NewMemoryRepository()
	if mongoClient != nil {
		inquiryRepo = inquiry.NewMongoRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("inquiries"))
	}
	var inquiryLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			inquiryLimit = middleware.RedisRateLimitMiddleware(rdb, "inquiry", cfg.RateLimit.InquiryRPS, cfg.RateLimit.InquiryBurst, cfg.RateLimit.Window)
		} else {
			inquiryLimit = middleware.RateLimitMiddleware("inquiry", cfg.RateLimit.InquiryRPS, cfg.RateLimit.InquiryBurst)
		}
	}

	api := r.Group("/api")
	handlers.NewCollections(backend.Store, backend.Fetcher, locker, cfg.Store).Register(api, admin)
	handlers.NewUploadHandler(backend.Store, cfg.Upload.MaxBytes).Register(api, admin)
	handlers.NewInquiryHandler(inquiry.NewService(inquiryRepo, mailer, cfg.Mail.To)).Register(api, inquiryLimit, admin)
	handlers.RegisterSwagger(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the blob store answers and configured deps are up
	r.GET("/ready", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		deps := map[string]bool{
			"storage": backend.Ping(pctx) == nil,
			"redis":   cfg.Redis.Host == "" || (rdb != nil && rdb.Ping(pctx).Err() == nil),
			"mongodb": cfg.MongoDB.URI == "" || (mongoClient != nil && mongoClient.Ping(pctx, nil) == nil),
			"oidc":    oidcReady,
		}
		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting site API on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
