// Command httpd runs the reader HTTP service: article extraction,
// CEFR-leveled simplification, and cached news listings.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/reader/internal/api"
	"github.com/jonesrussell/reader/internal/config"
	"github.com/jonesrussell/reader/internal/elasticsearch"
	"github.com/jonesrussell/reader/internal/extractor"
	"github.com/jonesrussell/reader/internal/fetcher"
	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/metrics"
	"github.com/jonesrussell/reader/internal/news"
	"github.com/jonesrussell/reader/internal/ratelimit"
	"github.com/jonesrussell/reader/internal/redisclient"
	"github.com/jonesrussell/reader/internal/service"
	"github.com/jonesrussell/reader/internal/simplifier"
	"github.com/jonesrussell/reader/internal/store"
)

func main() {
	cfg, err := config.Load(config.Path("config.yml"))
	if err != nil {
		logger.Must(logger.Config{}).Fatal("Failed to load configuration", logger.Error(err))
	}

	log := logger.Must(cfg.Logging)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting reader service",
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	esClient, err := elasticsearch.NewClient(ctx, elasticsearch.Config{
		URL:         cfg.Elasticsearch.URL,
		Username:    cfg.Elasticsearch.Username,
		Password:    cfg.Elasticsearch.Password,
		MaxRetries:  cfg.Elasticsearch.MaxRetries,
		PingTimeout: cfg.Elasticsearch.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to Elasticsearch", logger.Error(err))
	}

	if err := store.EnsureIndices(ctx, esClient, log, map[string]string{
		cfg.Elasticsearch.ExtractionIndex: store.ExtractionMapping,
		cfg.Elasticsearch.SimplifyIndex:   store.SimplificationMapping,
		cfg.Elasticsearch.NewsIndex:       store.NewsMapping,
	}); err != nil {
		log.Fatal("Failed to prepare indices", logger.Error(err))
	}

	extractions := store.NewExtractionStore(esClient, cfg.Elasticsearch.ExtractionIndex, cfg.Cache.ExtractionTTL, log)
	simplifications := store.NewSimplificationStore(esClient, cfg.Elasticsearch.SimplifyIndex, cfg.Cache.SimplifyTTL, log)
	listings := store.NewNewsStore(esClient, cfg.Elasticsearch.NewsIndex, cfg.Cache.NewsTTL, log)

	m := metrics.New(cfg.Service.Name)

	reader := service.New(
		fetcher.New(fetcher.Config{
			Timeout:    cfg.Fetcher.Timeout,
			Retries:    cfg.Fetcher.Retries,
			RetryDelay: cfg.Fetcher.RetryDelay,
		}, log),
		extractor.New(),
		simplifier.New(
			simplifier.NewAnthropicClient(cfg.Simplifier.APIKey, cfg.Simplifier.Model),
			cfg.Simplifier.MaxOutputTokens,
			log,
		),
		news.NewClient(cfg.News.BaseURL, cfg.News.APIKey, log),
		extractions,
		simplifications,
		listings,
		m,
		log,
	)

	checks := map[string]api.HealthChecker{
		"elasticsearch": func() error {
			res, pingErr := esClient.Ping()
			if pingErr != nil {
				return pingErr
			}
			return res.Body.Close()
		},
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		redisClient, redisErr := redisclient.New(redisclient.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if redisErr != nil {
			log.Fatal("Failed to connect to Redis", logger.Error(redisErr))
		}
		defer func() {
			_ = redisClient.Close()
		}()

		limiter = ratelimit.New(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, log)
		checks["redis"] = func() error {
			return redisClient.Ping(context.Background()).Err()
		}
	}

	server := api.NewServer(api.ServerConfig{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		JWTSecret:      cfg.Auth.JWTSecret,
		CORSOrigins:    cfg.Service.CORSOrigins,
	}, api.NewHandler(reader, log), m, limiter, checks, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("Server failed", logger.Error(err))
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("Graceful shutdown failed", logger.Error(err))
	}

	log.Info("Reader service stopped")
}
