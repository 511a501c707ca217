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

	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/analysis"
	"github.com/kdimtricp/faik/internal/api"
	"github.com/kdimtricp/faik/internal/audio"
	"github.com/kdimtricp/faik/internal/cache"
	"github.com/kdimtricp/faik/internal/classifier"
	"github.com/kdimtricp/faik/internal/config"
	"github.com/kdimtricp/faik/internal/database"
	"github.com/kdimtricp/faik/internal/detection"
	"github.com/kdimtricp/faik/internal/logging"
	"github.com/kdimtricp/faik/internal/storage"
)

const modelRetryInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(database.Config{
		Type:       cfg.Database.Type,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		SQLitePath: cfg.Database.Path,
	})
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	if _, err := database.NewMigrator(db).Run(ctx, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	store, err := newStorage(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage: ", err)
	}

	resultCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		log.Fatal("Failed to initialize result cache: ", err)
	}
	if resultCache != nil {
		defer resultCache.Close()
	}

	classifierConfig := classifier.NewConfig()
	classifierConfig.BaseURL = cfg.Classifier.URL
	classifierConfig.ModelName = cfg.Classifier.ModelName
	classifierConfig.Timeout = cfg.Classifier.Timeout
	classifierConfig.MaxRetries = cfg.Classifier.MaxRetries

	backend, err := classifier.NewHTTPClient(classifierConfig)
	if err != nil {
		log.Fatal("Failed to initialize classifier: ", err)
	}
	model := classifier.NewService(backend)
	go loadModel(ctx, model)

	policy, err := detection.ParseFailurePolicy(cfg.Detection.FailurePolicy)
	if err != nil {
		log.Fatal(err)
	}

	service := analysis.NewService(
		audio.NewLoader(audio.LoaderConfig{
			SampleRate: cfg.Audio.SampleRate,
			FFmpegPath: cfg.Audio.FFmpegPath,
		}),
		model,
		database.NewAnalysisRepository(db),
		store,
		resultCache,
		analysis.Config{
			Evaluator: detection.EvaluatorConfig{
				Workers:      cfg.Detection.Workers,
				ChunkTimeout: cfg.Detection.ChunkTimeout,
				Policy:       policy,
			},
		},
	)

	app := &api.App{
		Analysis:      service,
		Model:         model,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(log.Fields{
		"port":            cfg.Server.Port,
		"database":        db.Type(),
		"storage":         cfg.Storage.Backend,
		"cache":           cfg.Cache.Backend,
		"classifier":      cfg.Classifier.URL,
		"max_upload_size": cfg.Server.MaxUploadSize,
	}).Info("server starting")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}

// loadModel keeps asking the classifier backend to describe its model until
// it answers. Until then analysis requests get 503.
func loadModel(ctx context.Context, model *classifier.Service) {
	err := retry.Do(ctx, retry.NewConstant(modelRetryInterval), func(ctx context.Context) error {
		if err := model.Load(ctx); err != nil {
			log.WithError(err).Warn("classifier model not available, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Error("giving up on classifier model")
	}
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return storage.NewLocalStorage(cfg.UploadDir)
	case "s3":
		client, err := storage.NewS3Client(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Storage(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// newCache returns nil when caching is disabled.
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.ResultCache, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "badger":
		return cache.NewBadgerCache(cache.BadgerOptions{Dir: cfg.Dir, TTL: cfg.TTL})
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
