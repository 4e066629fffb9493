// Command backup exports the collection documents to an archive file or
// restores them from one.
//
//	backup -export site.lwsb
//	backup -restore site.lwsb
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lexsite/lexsite/backend/go-services/handlers"
	"github.com/lexsite/lexsite/backend/go-services/internal/backup"
	"github.com/lexsite/lexsite/backend/go-services/internal/config"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/repository"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	exportPath := flag.String("export", "", "write all collection documents to `file`")
	restorePath := flag.String("restore", "", "restore collection documents from `file`")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	if (*exportPath == "") == (*restorePath == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -export or -restore is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if !cfg.MinIO.Enabled() {
		logger.Fatalf("MINIO_ENDPOINT is required")
	}
	backend, err := storage.Open(&cfg.MinIO)
	if err != nil {
		logger.Fatalf("failed to open blob store: %v", err)
	}

	// restores must take the same lock as the running servers
	var locker repository.Locker = repository.NewMemoryLocker(cfg.Store.LockWait)
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		locker = repository.NewRedisLocker(rdb, "", cfg.Store.LockTTL, cfg.Store.LockWait)
	} else if *restorePath != "" {
		logger.Warnf("REDIS_HOST is not set; restore does not coordinate with running servers")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	cols := handlers.NewCollections(backend.Store, backend.Fetcher, locker, cfg.Store).Backup()

	if *exportPath != "" {
		if err := export(ctx, cols, *exportPath); err != nil {
			logger.Fatalf("export failed: %v", err)
		}
		return
	}
	if err := restore(ctx, cols, *restorePath); err != nil {
		logger.Fatalf("restore failed: %v", err)
	}
}

func export(ctx context.Context, cols []backup.Collection, path string) error {
	a, err := backup.Export(ctx, cols, time.Now())
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := backup.Write(f, a); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Infof("exported %v to %s", a.Keys(), path)
	return nil
}

func restore(ctx context.Context, cols []backup.Collection, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	a, err := backup.Read(f)
	if err != nil {
		return err
	}
	restored, err := backup.Restore(ctx, cols, a)
	if err != nil {
		return err
	}
	logger.Infof("restored %v from archive created %s", restored, a.CreatedAt.Format(time.RFC3339))
	return nil
}
