package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/spectrumnews/spectrum/internal/cache"
	"github.com/spectrumnews/spectrum/internal/scrape"
	"github.com/spectrumnews/spectrum/internal/store"
	"github.com/spectrumnews/spectrum/models"
	"github.com/spectrumnews/spectrum/provider"
)

// insightsArticleLimit caps how much of each article feeds the insights
// context block.
const insightsArticleLimit = 2000

// SearchRunner executes one aggregated search. *aggregator.Aggregator
// satisfies it.
type SearchRunner interface {
	Run(ctx context.Context, query string) []models.ArticleRecord
}

// OutletMatcher resolves a URL to its outlet. *scrape.Registry satisfies it.
type OutletMatcher interface {
	Match(url string) (scrape.Outlet, bool)
}

// Handler wires the HTTP routes to the store, aggregator and LLM provider.
type Handler struct {
	Store    *store.Store
	Agg      SearchRunner
	Provider provider.Provider
	Cache    cache.ContentCache
	Outlets  OutletMatcher
	Logger   *log.Logger
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.welcome)
	e.GET("/search", h.search)
	e.GET("/summary", h.summary)
	e.POST("/insights", h.insights)
}

func (h *Handler) welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to the Spectrum news aggregation API",
	})
}

func (h *Handler) search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	ctx := c.Request().Context()

	sessionID, err := h.Store.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	results := h.Agg.Run(ctx, query)

	if err := h.Store.UpsertArticles(ctx, sessionID, results); err != nil {
		return fmt.Errorf("persist results: %w", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"results":    results,
	})
}

func (h *Handler) summary(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	url := c.QueryParam("url")
	if sessionID == "" || url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id and url are required")
	}
	ctx := c.Request().Context()

	ok, err := h.Store.SessionExists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound,
			"Session not found. Please search for content first.")
	}

	record, err := h.Store.GetArticle(ctx, sessionID, url)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound,
			"URL not found in this session. Please search for content first.")
	}
	if err != nil {
		return fmt.Errorf("load article: %w", err)
	}

	content := h.resolveContent(ctx, record)

	summary, err := h.Provider.Summarize(ctx, record.Title, content)
	if err != nil {
		h.Logger.Printf("summary generation failed for %s: %v", url, err)
		return c.JSON(http.StatusOK, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url":     record.URL,
		"title":   record.Title,
		"source":  record.Source,
		"summary": summary,
	})
}

type insightsRequest struct {
	SessionID string `json:"session_id"`
	Articles  []struct {
		URL  string `json:"url"`
		Bias string `json:"bias"`
	} `json:"articles"`
}

func (h *Handler) insights(c echo.Context) error {
	var req insightsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" || len(req.Articles) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id and articles are required")
	}
	ctx := c.Request().Context()

	ok, err := h.Store.SessionExists(ctx, req.SessionID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound,
			"Session not found. Please search for content first.")
	}

	var left, right strings.Builder
	for _, item := range req.Articles {
		record, err := h.Store.GetArticle(ctx, req.SessionID, item.URL)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load article %s: %w", item.URL, err)
		}

		content := h.resolveContent(ctx, record)
		if len(content) > insightsArticleLimit {
			content = content[:insightsArticleLimit]
		}

		bias := item.Bias
		if bias == "" {
			bias = record.Bias
		}
		block := fmt.Sprintf("[%s] %s\n%s\n\n", record.Source, record.Title, content)
		if bias == models.BiasRight {
			right.WriteString(block)
		} else {
			left.WriteString(block)
		}
	}

	insights, err := h.Provider.Insights(ctx, left.String(), right.String())
	if err != nil {
		h.Logger.Printf("insights generation failed for session %s: %v", req.SessionID, err)
		return c.JSON(http.StatusOK, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, insights)
}

// resolveContent returns the fullest text available for a record. Outlet
// articles go cache → scrape → stored short-form contents; social posts are
// already complete and skip the cache entirely.
func (h *Handler) resolveContent(ctx context.Context, record models.ArticleRecord) string {
	outlet, ok := h.Outlets.Match(record.URL)
	if !ok || record.Platform != "" || record.Source == "Reddit" {
		return record.Contents
	}

	if text, hit := h.Cache.Get(ctx, record.URL); hit {
		return text
	}

	text, err := outlet.Fetch(ctx, record.URL)
	if err != nil {
		h.Logger.Printf("scrape failed for %s, using stored contents: %v", record.URL, err)
		return record.Contents
	}

	h.Cache.Set(ctx, record.URL, text)
	return text
}
