// Package bootstrap provides dependency initialization for the Wan video API.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/maauso/wanvideo-api/internal/config"
	"github.com/maauso/wanvideo-api/internal/enhance"
	"github.com/maauso/wanvideo-api/internal/job"
	"github.com/maauso/wanvideo-api/internal/storage"
	"github.com/maauso/wanvideo-api/internal/wan"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	WanClient *wan.HTTPClient
	Jobs      *job.Service
	Enhancer  *enhance.Enhancer
	// Images is nil when S3 is not configured.
	Images storage.ImageStore

	closers []func() error
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	deps := &Dependencies{}

	// Initialize Wan client
	wanOpts := []wan.ClientOption{
		wan.WithAPIKey(cfg.WanAPIKey()),
		wan.WithHTTPClient(httpClient),
	}
	if cfg.DashScopeBaseURL != "" {
		wanOpts = append(wanOpts, wan.WithBaseURL(cfg.DashScopeBaseURL))
	}
	deps.WanClient = wan.NewClient(wanOpts...)
	if !deps.WanClient.HasCredentials() {
		logger.Warn("DASHSCOPE_API_KEY not set, video generation calls will fail")
	}

	// Initialize prompt enhancer
	gemini := enhance.NewGeminiGenerator(cfg.GeminiAPIKey,
		enhance.WithGeminiModel(cfg.GeminiModel),
		enhance.WithGeminiBaseURL(cfg.GeminiBaseURL),
	)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, prompt enhancement calls will fail")
	}
	deps.Enhancer = enhance.NewEnhancer(gemini, logger)

	// Initialize job repository
	repo, err := deps.initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps.Jobs = job.NewService(deps.WanClient, repo, logger,
		job.WithPollInterval(cfg.PollInterval()),
		job.WithMaxAttempts(cfg.PollMaxAttempts),
	)

	// Initialize image storage
	images, err := initImageStore(ctx, cfg, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	if images != nil {
		deps.Images = images
	}

	return deps, nil
}

// Close releases connections opened by NewDependencies.
func (d *Dependencies) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// initRepository picks Redis when REDIS_ADDR is set, memory otherwise.
func (d *Dependencies) initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (job.Repository, error) {
	if !cfg.RedisEnabled() {
		logger.Info("in-memory job repository configured", slog.Duration("ttl", cfg.JobTTL()))
		return job.NewMemoryRepository(job.WithMemoryTTL(cfg.JobTTL())), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	d.closers = append(d.closers, client.Close)

	logger.Info("redis job repository configured",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
		slog.Duration("ttl", cfg.JobTTL()),
	)
	return job.NewRedisRepository(client, cfg.JobTTL()), nil
}

// initImageStore creates the S3 image store, or returns nil when S3 is not configured.
func initImageStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.S3Storage, error) {
	if !cfg.S3Enabled() {
		logger.Info("image upload disabled, S3 not configured")
		return nil, nil
	}

	s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		URLTTL:          cfg.UploadURLTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 storage: %w", err)
	}
	logger.Info("S3 image storage configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return s3Store, nil
}
