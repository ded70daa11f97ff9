package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"materials/internal/adapter/repo"
	"materials/internal/http/handlers"
	httpapi "materials/internal/http/httpapi"
	"materials/internal/infra"
	"materials/internal/infra/credentials"
	"materials/internal/materials"
	"materials/internal/providers/genai"
	"materials/internal/providers/image"
	"materials/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	shutdownTracing, err := infra.InitTracing(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	metrics := infra.NewMetrics()

	store, filesRoot, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to init storage")
	}

	generator, err := newGenerator(ctx, cfg, runner, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init image generator")
	}

	svc := materials.NewService(materials.Options{
		Materials:   repo.NewMaterialRepository(runner),
		Projects:    repo.NewProjectRepository(runner),
		Store:       store,
		Generator:   generator,
		Logger:      logger,
		Metrics:     metrics,
		URLPrefix:   cfg.FilesURLPrefix,
		ScratchDir:  cfg.ScratchDir,
		AspectRatio: cfg.DefaultAspectRatio,
		Resolution:  cfg.DefaultResolution,
	})

	app := &handlers.App{
		Materials:      svc,
		DB:             dbpool,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimitPerMin,
		FilesURLPrefix: cfg.FilesURLPrefix,
		FilesRoot:      filesRoot,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("storage", cfg.StorageDriver).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to flush traces")
	}
	logger.Info().Msg("server stopped")
}

// newStore picks the storage driver. The local root is also returned so the
// router can serve it; S3 objects are served by the bucket.
func newStore(ctx context.Context, cfg *infra.Config) (storage.Store, string, error) {
	if cfg.StorageDriver == infra.StorageDriverS3 {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		return s3Store, "", err
	}

	fileStore, err := storage.NewFileStore(cfg.StorageRoot)
	if err != nil {
		return nil, "", err
	}
	root := fileStore.BasePath()
	if !strings.HasPrefix(cfg.FilesURLPrefix, "/") {
		root = ""
	}
	return fileStore, root, nil
}

func newGenerator(ctx context.Context, cfg *infra.Config, runner *infra.SQLRunner, logger infra.Logger) (image.Generator, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	apiKey, err := credentials.NewStore(runner).Resolve(lookupCtx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not configured; using synthetic image generator")
		return image.NewSyntheticGenerator(), nil
	}

	genLogger := logger.With().Str("component", "genai").Logger()
	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiImageModel,
		HTTPClient: &http.Client{Timeout: cfg.GeminiTimeout},
		Logger:     &genLogger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("model", client.Model()).Msg("gemini image generator enabled")
	return image.NewGeminiGenerator(client), nil
}
