// Package reddit implements post search against the Reddit API using
// app-only OAuth2 credentials.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/spectrumnews/spectrum/internal/helpers"
	"github.com/spectrumnews/spectrum/models"
)

const (
	tokenURL = "https://www.reddit.com/api/v1/access_token"
	apiHost  = "https://oauth.reddit.com"

	// Comment collection bounds carried over from the exploration tooling:
	// ten top-level threads, three reply levels, five posts hydrated at once.
	maxTopLevelComments = 10
	maxCommentDepth     = 3
	commentWorkers      = 5
)

// Client searches Reddit with application-only auth. The bearer token is
// cached and refreshed under a mutex; Client is safe for concurrent use.
type Client struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	HTTPClient   *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(clientID, clientSecret, userAgent string) *Client {
	if userAgent == "" {
		userAgent = "spectrum/1.0"
	}
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserAgent:    userAgent,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token: %w", err)
	}
	body, err := helpers.ReadAllAndClose(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reddit token error: %s", resp.Status)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("reddit token error: empty access_token")
	}

	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	params.Set("raw_json", "1")
	reqURL := fmt.Sprintf("%s%s?%s", apiHost, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type submission struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

type comment struct {
	Body       string          `json:"body"`
	Author     string          `json:"author"`
	Score      int             `json:"score"`
	Permalink  string          `json:"permalink"`
	RepliesRaw json.RawMessage `json:"replies"`
}

// Search queries /r/<subreddit>/search sorted by relevance and returns posts
// as article records, each hydrated with a bounded comment tree. Sentiment
// and bias fields are left empty for the aggregator to fill.
func (c *Client) Search(ctx context.Context, query, subreddit string, limit int) ([]models.ArticleRecord, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("sort", "relevance")

	var result listing
	if err := c.getJSON(ctx, fmt.Sprintf("/r/%s/search", subreddit), params, &result); err != nil {
		return nil, err
	}

	var posts []models.ArticleRecord
	var subs []submission
	for _, child := range result.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var sub submission
		if err := json.Unmarshal(child.Data, &sub); err != nil {
			continue
		}
		contents := sub.Selftext
		if contents == "" {
			contents = "[Link post - no text content]"
		}
		posts = append(posts, models.ArticleRecord{
			Source:      "Reddit",
			Title:       sub.Title,
			URL:         "https://reddit.com" + sub.Permalink,
			Contents:    contents,
			Author:      sub.Author,
			Subreddit:   sub.Subreddit,
			Score:       sub.Score,
			NumComments: sub.NumComments,
			Date:        int64(sub.CreatedUTC),
			AISummary:   fmt.Sprintf("Post about %s with %d comments and %d upvotes", truncate(sub.Title, 50), sub.NumComments, sub.Score),
		})
		subs = append(subs, sub)
	}

	c.hydrateComments(ctx, posts, subs)
	return posts, nil
}

// hydrateComments fetches comment trees for the posts, at most
// commentWorkers at a time. A failed fetch leaves the post without comments;
// the search result is still useful.
func (c *Client) hydrateComments(ctx context.Context, posts []models.ArticleRecord, subs []submission) {
	sem := semaphore.NewWeighted(commentWorkers)
	var wg sync.WaitGroup
	for i := range posts {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			comments, err := c.fetchComments(ctx, subs[i].Permalink)
			if err == nil {
				posts[i].Comments = comments
			}
		}(i)
	}
	wg.Wait()
}

func (c *Client) fetchComments(ctx context.Context, permalink string) ([]models.Comment, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", maxTopLevelComments))
	params.Set("depth", fmt.Sprintf("%d", maxCommentDepth))

	var listings []listing
	path := strings.TrimSuffix(permalink, "/") + ".json"
	if err := c.getJSON(ctx, path, params, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var comments []models.Comment
	for _, child := range listings[1].Data.Children {
		if len(comments) >= maxTopLevelComments {
			break
		}
		if node, ok := buildComment(child, 0); ok {
			comments = append(comments, node)
		}
	}
	return comments, nil
}

// buildComment converts one comment thing into a tree node. "more" stubs and
// AutoModerator comments are dropped.
func buildComment(t thing, depth int) (models.Comment, bool) {
	if t.Kind != "t1" {
		return models.Comment{}, false
	}
	var cm comment
	if err := json.Unmarshal(t.Data, &cm); err != nil {
		return models.Comment{}, false
	}
	if strings.EqualFold(cm.Author, "automoderator") {
		return models.Comment{}, false
	}

	node := models.Comment{
		URL:     "https://reddit.com" + cm.Permalink,
		Content: cm.Body,
		Author:  cm.Author,
		Score:   cm.Score,
		Depth:   depth,
		Replies: []models.Comment{},
	}

	if depth < maxCommentDepth && len(cm.RepliesRaw) > 0 {
		// replies is "" for leaves and a listing object otherwise.
		var replies listing
		if err := json.Unmarshal(cm.RepliesRaw, &replies); err == nil {
			for _, child := range replies.Data.Children {
				if reply, ok := buildComment(child, depth+1); ok {
					node.Replies = append(node.Replies, reply)
				}
			}
		}
	}
	return node, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
