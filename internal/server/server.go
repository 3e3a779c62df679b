// Package server assembles the HTTP API: echo routing, dependency wiring
// and the migration entry point.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/spectrumnews/spectrum/config"
	"github.com/spectrumnews/spectrum/internal/aggregator"
	"github.com/spectrumnews/spectrum/internal/cache"
	"github.com/spectrumnews/spectrum/internal/scrape"
	"github.com/spectrumnews/spectrum/internal/sentiment"
	"github.com/spectrumnews/spectrum/internal/store"
	"github.com/spectrumnews/spectrum/news"
	"github.com/spectrumnews/spectrum/news/newsapi"
	openai_provider "github.com/spectrumnews/spectrum/provider/openai"
	"github.com/spectrumnews/spectrum/social/bluesky"
	"github.com/spectrumnews/spectrum/social/reddit"
)

// Run validates configuration, builds every dependency and serves the API
// until the listener fails.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return err
	}
	if err := cfg.Providers.OpenAI.Validate(); err != nil {
		return err
	}
	if err := cfg.NewsAPI.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	rotator, err := news.NewKeyRotator(
		newsapi.NewClient(cfg.NewsAPI.Endpoint), cfg.NewsAPI.Keys, cfg.NewsAPI.MaxAttempts)
	if err != nil {
		return err
	}

	llm := openai_provider.NewOpenAIClient(
		cfg.Providers.OpenAI.APIKey,
		cfg.Providers.OpenAI.CompletionModel,
		cfg.Providers.OpenAI.Temperature,
		cfg.Providers.OpenAI.MaxTokens,
		cfg.Providers.OpenAI.Timeout,
	)

	contentCache, err := buildCache(cfg)
	if err != nil {
		return err
	}

	outlets := scrape.NewRegistry()
	agg := aggregator.New(
		rotator,
		reddit.NewClient(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent),
		bluesky.NewClient(cfg.Bluesky.Host, cfg.Bluesky.Handle, cfg.Bluesky.AppPassword),
		llm,
		sentiment.New(),
		outlets,
		aggregator.Limits{
			MaxLeft:             cfg.Limits.MaxLeftArticles,
			MaxRight:            cfg.Limits.MaxRightArticles,
			MaxTotal:            cfg.Limits.MaxTotalArticles,
			MinContentLength:    cfg.Limits.MinContentLength,
			SocialResults:       cfg.Limits.SocialResults,
			ClassifyConcurrency: cfg.Limits.ClassifyConcurrency,
		},
		log.New(log.Writer(), "[AGG] ", log.LstdFlags),
	)

	h := &Handler{
		Store:    st,
		Agg:      agg,
		Provider: llm,
		Cache:    contentCache,
		Outlets:  outlets,
		Logger:   baseLogger,
	}
	h.Register(e)

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// buildCache selects the content-cache backend. Memory is the default; the
// redis backend requires a reachable server and fails fast when it is not.
func buildCache(cfg *config.Config) (cache.ContentCache, error) {
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	switch cfg.Cache.Backend {
	case "", "memory":
		maxEntries := cfg.Cache.MaxEntries
		if maxEntries <= 0 {
			maxEntries = cache.DefaultMaxEntries
		}
		return cache.NewMemory(maxEntries, ttl), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		return cache.NewRedis(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}
