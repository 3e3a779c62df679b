package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRateLimited marks a throttling response from the provider, either an
// HTTP 429 or an error body whose code names a rate limit. Callers rotate to
// the next credential on this error and fail fast on anything else.
var ErrRateLimited = errors.New("newsapi: rate limited")

type Article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	PublishedAt string `json:"publishedAt"`
}

type response struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Client talks to the NewsAPI "everything" endpoint. The API key is passed
// per call so a rotating credential pool can sit on top of one client.
type Client struct {
	Endpoint   string
	PageSize   int
	HTTPClient *http.Client
}

func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "https://newsapi.org/v2/everything"
	}
	return &Client{
		Endpoint:   endpoint,
		PageSize:   100,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Everything searches articles for the query, optionally restricted to a
// comma-separated domain list.
func (c *Client) Everything(ctx context.Context, apiKey, query, domains string) ([]Article, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("language", "en")
	params.Add("sortBy", "publishedAt")
	params.Add("pageSize", fmt.Sprintf("%d", c.PageSize))
	if domains != "" {
		params.Add("domains", domains)
	}

	reqURL := fmt.Sprintf("%s?%s", c.Endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status == "error" {
		if strings.Contains(strings.ToLower(result.Code), "ratelimit") {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("newsapi error: %s", result.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi error: %s", resp.Status)
	}

	return result.Articles, nil
}
