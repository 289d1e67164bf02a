// Package bootstrap provides dependency initialization for the video generation API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/maauso/concepto-video-api/internal/config"
	"github.com/maauso/concepto-video-api/internal/generator"
	"github.com/maauso/concepto-video-api/internal/httpclient"
	"github.com/maauso/concepto-video-api/internal/job"
	"github.com/maauso/concepto-video-api/internal/kling"
	"github.com/maauso/concepto-video-api/internal/media"
	"github.com/maauso/concepto-video-api/internal/runway"
	"github.com/maauso/concepto-video-api/internal/sora"
	"github.com/maauso/concepto-video-api/internal/storage"
	"github.com/maauso/concepto-video-api/internal/veo"
)

// vendorTimeout bounds a single vendor call. Polling spans many calls.
const vendorTimeout = 5 * time.Minute

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service *job.GenerationService
	// ArtifactsDir is set when videos are stored on local disk and must be
	// served by the HTTP server.
	ArtifactsDir string

	closers []func()
}

// Close releases resources such as the database pool.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize storage
	store, artifactsDir, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.ArtifactsDir = artifactsDir

	// Initialize vendor adapters
	hc := &http.Client{Timeout: vendorTimeout}
	registry, err := initRegistry(cfg, hc, store, logger)
	if err != nil {
		return nil, err
	}

	// Initialize job repository
	repo, closeRepo, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeRepo != nil {
		deps.closers = append(deps.closers, closeRepo)
	}

	deps.Service = job.NewGenerationService(
		registry,
		repo,
		job.NewPoller(logger),
		job.NewMaterializer(store, logger),
		logger,
	)

	return deps, nil
}

// initRegistry registers an adapter for every vendor with credentials.
func initRegistry(cfg *config.Config, hc *http.Client, store storage.Storage, logger *slog.Logger) (*generator.Registry, error) {
	registry := generator.NewRegistry()
	fetcher := httpclient.NewFetcher(hc, cfg.MaxMediaBytes)

	if cfg.RunwayEnabled() {
		client, err := runway.NewClient(cfg.RunwayAPIKey,
			runway.WithBaseURL(cfg.RunwayBaseURL),
			runway.WithAPIVersion(cfg.RunwayAPIVersion),
			runway.WithHTTPClient(hc),
		)
		if err != nil {
			return nil, fmt.Errorf("create Runway client: %w", err)
		}
		registry.Register(generator.NewRunwayAdapter(client, fetcher).WithPollInterval(cfg.PollInterval))
	}

	if cfg.VeoEnabled() {
		client, err := veo.NewClient(cfg.VeoAPIKey(),
			veo.WithBaseURL(cfg.VeoBaseURL),
			veo.WithHTTPClient(hc),
		)
		if err != nil {
			return nil, fmt.Errorf("create Veo client: %w", err)
		}
		registry.Register(generator.NewVeoAdapter(client, fetcher).WithPollInterval(cfg.PollInterval))
	}

	if cfg.SoraEnabled() {
		client, err := sora.NewClient(cfg.OpenAIAPIKey,
			sora.WithBaseURL(cfg.SoraBaseURL),
			sora.WithHTTPClient(hc),
		)
		if err != nil {
			return nil, fmt.Errorf("create Sora client: %w", err)
		}
		processor := media.NewFFmpegProcessor(cfg.FFmpegPath)
		registry.Register(generator.NewSoraAdapter(client, fetcher, processor, store).WithPollInterval(cfg.PollInterval))
	}

	if cfg.KlingEnabled() {
		client, err := kling.NewClient(kling.Credentials{
			APIKey:    cfg.KlingAPIKey,
			AccessKey: cfg.KlingAccessKey,
			SecretKey: cfg.KlingSecretKey,
		},
			kling.WithBaseURL(cfg.KlingBaseURL),
			kling.WithHTTPClient(hc),
		)
		if err != nil {
			return nil, fmt.Errorf("create Kling client: %w", err)
		}
		registry.Register(generator.NewKlingAdapter(client).WithPollInterval(cfg.PollInterval))
	}

	logger.Info("video vendors registered",
		slog.Any("vendors", cfg.EnabledVendors()),
		slog.Duration("poll_interval", cfg.PollInterval),
	)
	return registry, nil
}

// initStorage creates the appropriate storage backend based on configuration.
// The returned directory is non-empty only for local storage.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, string, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			PublicBaseURL:   cfg.ArtifactPublicBaseURL,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, "", fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, "", nil
	}

	publicBase := cfg.ArtifactPublicBaseURL
	if publicBase == "" {
		publicBase = fmt.Sprintf("http://localhost:%d/artifacts", cfg.Port)
	}
	localStore, err := storage.NewLocalStorage(cfg.TempDir, storage.WithPublicBaseURL(publicBase))
	if err != nil {
		return nil, "", fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
		slog.String("public_base_url", publicBase),
	)
	return localStore, localStore.ArtifactsDir(), nil
}

// initRepository returns the PostgreSQL repository when DATABASE_URL is set,
// otherwise an in-memory one.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (job.Repository, func(), error) {
	if !cfg.PostgresEnabled() {
		logger.Info("in-memory job repository configured")
		return job.NewMemoryRepository(), nil, nil
	}

	pool, err := job.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	repo := job.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("postgres job repository configured")
	return repo, pool.Close, nil
}
