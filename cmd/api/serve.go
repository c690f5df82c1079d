package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/app"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/area"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/config"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/localstore"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/objectstore"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/planaccion"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/search"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
)

func serve(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.OpenWithRetry(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, logger)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	catalog := area.Default()
	dataStore := store.NewPostgresStore(db)
	if err := dataStore.SeedAreas(ctx, storeAreas(catalog)); err != nil {
		return fmt.Errorf("seed areas failed: %w", err)
	}

	opts := app.Options{
		Store:          dataStore,
		Areas:          catalog,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		DownloadURLTTL: cfg.DownloadURLTTL,
	}

	if cfg.StorageConfigured() {
		bucket, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return err
		}
		if err := bucket.Ensure(ctx, cfg.DBConnectTimeout, logger); err != nil {
			logger.Warn("bucket check failed; storage routes will report errors", zap.String("bucket", bucket.Name()), zap.Error(err))
		}
		opts.Objects = bucket
	} else {
		logger.Warn("object storage credentials missing; storage routes will report errors")
	}

	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
	}
	searchService := search.NewService(indexOrNil(meili), search.NewPostgres(dataStore), logger)
	go searchService.ReindexAll(ctx)
	opts.Search = searchService

	var backend localstore.Backend
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := localstore.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		logger.Info("using redis for plan de acción storage")
		backend = redisStore
	} else {
		logger.Info("using process memory for plan de acción storage")
		backend = localstore.NewMemoryStore()
	}
	opts.Plan = planaccion.NewService(backend)

	httpServer := app.NewHTTPServer(app.NewService(opts), cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

// indexOrNil keeps a nil *Meili from becoming a non-nil search.Index.
func indexOrNil(m *search.Meili) search.Index {
	if m == nil {
		return nil
	}
	return m
}
