// Package bluesky implements post search over the Bluesky XRPC API with an
// app-password session.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spectrumnews/spectrum/internal/helpers"
	"github.com/spectrumnews/spectrum/models"
)

// Client searches Bluesky posts. Login happens lazily on the first call and
// the access token is reused until the server rejects it.
type Client struct {
	Host        string
	Handle      string
	AppPassword string
	HTTPClient  *http.Client

	mu        sync.Mutex
	accessJWT string
}

func NewClient(host, handle, appPassword string) *Client {
	if host == "" {
		host = "https://bsky.social"
	}
	return &Client{
		Host:        host,
		Handle:      handle,
		AppPassword: appPassword,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessJWT != "" {
		return c.accessJWT, nil
	}

	payload, err := json.Marshal(map[string]string{
		"identifier": c.Handle,
		"password":   c.AppPassword,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.Host+"/xrpc/com.atproto.server.createSession", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create bluesky session: %w", err)
	}
	body, err := helpers.ReadAllAndClose(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read session response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bluesky login error: %s", resp.Status)
	}

	var session struct {
		AccessJWT string `json:"accessJwt"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.AccessJWT == "" {
		return "", fmt.Errorf("bluesky login error: empty access token")
	}
	c.accessJWT = session.AccessJWT
	return c.accessJWT, nil
}

func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.accessJWT = ""
	c.mu.Unlock()
}

type post struct {
	URI    string `json:"uri"`
	Author struct {
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Record struct {
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
	} `json:"record"`
	LikeCount   int `json:"likeCount"`
	RepostCount int `json:"repostCount"`
	ReplyCount  int `json:"replyCount"`
	QuoteCount  int `json:"quoteCount"`
}

// SearchPosts queries app.bsky.feed.searchPosts and maps each hit to an
// article record. Sentiment and bias fields are left for the aggregator.
func (c *Client) SearchPosts(ctx context.Context, query, sort string, limit int) ([]models.ArticleRecord, error) {
	token, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	if sort != "" {
		params.Set("sort", sort)
	}

	reqURL := fmt.Sprintf("%s/xrpc/app.bsky.feed.searchPosts?%s", c.Host, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search bluesky: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateSession()
		return nil, fmt.Errorf("bluesky error: %s (session invalidated)", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bluesky error: %s", resp.Status)
	}

	var result struct {
		Posts []post `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	records := make([]models.ArticleRecord, 0, len(result.Posts))
	for _, p := range result.Posts {
		records = append(records, toRecord(p))
	}
	return records, nil
}

func toRecord(p post) models.ArticleRecord {
	text := p.Record.Text
	title := text
	if len(title) > 100 {
		title = title[:100] + "..."
	}

	// at://did:plc:xyz/app.bsky.feed.post/<id> -> bsky.app profile URL
	parts := strings.Split(p.URI, "/")
	postID := ""
	if len(parts) > 0 {
		postID = parts[len(parts)-1]
	}

	displayName := p.Author.DisplayName
	if displayName == "" {
		displayName = p.Author.Handle
	}

	return models.ArticleRecord{
		Source:      "Bluesky",
		Title:       title,
		URL:         fmt.Sprintf("https://bsky.app/profile/%s/post/%s", p.Author.Handle, postID),
		Contents:    text,
		Handle:      p.Author.Handle,
		Username:    "@" + p.Author.Handle,
		DisplayName: displayName,
		Platform:    "bluesky",
		Date:        helpers.ToEpoch(p.Record.CreatedAt),
		Likes:       p.LikeCount,
		Reposts:     p.RepostCount,
		Replies:     p.ReplyCount,
		Quotes:      p.QuoteCount,
	}
}
