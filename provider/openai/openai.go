package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spectrumnews/spectrum/models"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// Truncation limits applied before prompting: classification sees at most
// 500 chars of content, summaries 3000, and each insights side 8000.
const (
	classifyContentLimit = 500
	summaryContentLimit  = 3000
	insightsSideLimit    = 8000
)

// client implements provider.Provider using OpenAI's chat completions API.
type client struct {
	apiKey          string
	apiURL          string
	completionModel string
	temperature     float64
	maxTokens       int
	httpClient      *http.Client
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// request represents a request to the OpenAI API
type request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, completionModel string, temperature float64, maxTokens int, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &client{
		apiKey:          apiKey,
		apiURL:          openaiAPIURL,
		completionModel: completionModel,
		temperature:     temperature,
		maxTokens:       maxTokens,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// ClassifyBias asks the model to label a post "left" or "right". Anything
// else in the reply is an error; the caller applies its own fallback.
func (c *client) ClassifyBias(ctx context.Context, title, content, community string) (string, error) {
	communityInfo := ""
	if community != "" {
		communityInfo = fmt.Sprintf("\nSubreddit: r/%s", community)
	}
	prompt := fmt.Sprintf(`Analyze the political bias of this social media post. Classify it as either 'left' (liberal/progressive) or 'right' (conservative).

Title: %s
Content: %s%s

Respond with ONLY one word: either 'left' or 'right'.`, title, truncate(content, classifyContentLimit), communityInfo)

	reply, err := c.sendRequest(ctx, []Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return "", err
	}

	bias := strings.ToLower(strings.TrimSpace(reply))
	if bias != models.BiasLeft && bias != models.BiasRight {
		return "", fmt.Errorf("unrecognized bias label: %q", reply)
	}
	return bias, nil
}

// Summarize produces a concise English summary of the article.
func (c *client) Summarize(ctx context.Context, title, content string) (string, error) {
	prompt := fmt.Sprintf(`Provide a concise summary (3-5 sentences) of the following article. The summary MUST be in English, regardless of the original language.

Title: %s

Content:
%s

Summary (in English):`, title, truncate(content, summaryContentLimit))

	reply, err := c.sendRequest(ctx, []Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Insights produces per-side takeaways plus exactly three common-ground
// items, requested as a JSON object response.
func (c *client) Insights(ctx context.Context, leftContext, rightContext string) (models.Insights, error) {
	prompt := fmt.Sprintf(`Analyze the following articles from different political perspectives and provide insights.

LEFT-LEANING ARTICLES:
%s

RIGHT-LEANING ARTICLES:
%s

Provide three things:
1. key_takeaway_left: A 2-3 sentence key insight or takeaway from the left-leaning perspective
2. key_takeaway_right: A 2-3 sentence key insight or takeaway from the right-leaning perspective
3. common_ground: An array of EXACTLY 3 objects, each with:
   - "title": A short 2-4 word title for the common ground area (e.g., "Infrastructure Modernization", "Data Privacy Rights", "Energy Security")
   - "bullet_point": A complete sentence describing the common ground or shared concern in that area

Format your response as JSON with these three keys: key_takeaway_left (string), key_takeaway_right (string), common_ground (array of 3 objects with title and bullet_point)`,
		truncate(leftContext, insightsSideLimit), truncate(rightContext, insightsSideLimit))

	reply, err := c.sendRequest(ctx, []Message{{Role: "user", Content: prompt}}, &responseFormat{Type: "json_object"})
	if err != nil {
		return models.Insights{}, err
	}

	var insights models.Insights
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &insights); err != nil {
		return models.Insights{}, fmt.Errorf("failed to parse insights: %w", err)
	}
	return insights, nil
}

// sendRequest sends a request to the OpenAI API
func (c *client) sendRequest(ctx context.Context, messages []Message, format *responseFormat) (string, error) {
	requestBody := request{
		Model:          c.completionModel,
		Messages:       messages,
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: format,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var openaiResp response
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return openaiResp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
