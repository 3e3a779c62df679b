package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/spectrumnews/spectrum/internal/helpers"
)

const (
	fetchTimeout = 15 * time.Second
	maxChars     = 20000
	userAgent    = "Mozilla/5.0 (compatible; SpectrumBot/1.0; +https://github.com/spectrumnews/spectrum)"
)

var errEmptyBody = errors.New("scrape: no article text extracted")

// fetcher downloads outlet pages and extracts article text. Each outlet has
// a selector for its article body; when the selector yields nothing the page
// goes through readability as a fallback, since outlets reshuffle their
// markup without notice.
type fetcher struct {
	httpClient *http.Client
}

func newFetcher() *fetcher {
	return &fetcher{httpClient: &http.Client{Timeout: fetchTimeout}}
}

func (f *fetcher) cnn(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, ".article__content p.paragraph", ".article__content p")
}

func (f *fetcher) cbs(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, "section.content__body p")
}

func (f *fetcher) nbc(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, "div.article-body__content p")
}

func (f *fetcher) abc(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, "div[data-testid='prism-article-body'] p", "article p")
}

func (f *fetcher) fox(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, "div.article-body p")
}

func (f *fetcher) breitbart(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, "div.entry-content p")
}

func (f *fetcher) nypost(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, "div.single__content p", "div.entry-content p")
}

func (f *fetcher) oann(ctx context.Context, url string) (string, error) {
	return f.extract(ctx, url, "div.entry-content p")
}

func (f *fetcher) extract(ctx context.Context, pageURL string, selectors ...string) (string, error) {
	html, err := f.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		for _, selector := range selectors {
			var paragraphs []string
			doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
				if text := strings.TrimSpace(s.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			})
			if len(paragraphs) > 0 {
				return clip(strings.Join(paragraphs, "\n\n")), nil
			}
		}
	}

	return f.readabilityFallback(html, pageURL)
}

func (f *fetcher) readabilityFallback(html, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", errEmptyBody
	}
	return clip(text), nil
}

func (f *fetcher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", fmt.Errorf("scrape: %s returned %s", pageURL, resp.Status)
	}

	body, err := helpers.ReadAllAndClose(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

func clip(s string) string {
	if len(s) > maxChars {
		return s[:maxChars]
	}
	return s
}
