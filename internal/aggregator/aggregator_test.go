package aggregator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/spectrumnews/spectrum/internal/scrape"
	"github.com/spectrumnews/spectrum/internal/sentiment"
	"github.com/spectrumnews/spectrum/models"
	"github.com/spectrumnews/spectrum/news/newsapi"
)

type fakeNews struct {
	articles []newsapi.Article
	err      error
	domains  string
}

func (f *fakeNews) Search(_ context.Context, _, domains string) ([]newsapi.Article, error) {
	f.domains = domains
	return f.articles, f.err
}

type fakeReddit struct {
	posts []models.ArticleRecord
	err   error
}

func (f *fakeReddit) Search(context.Context, string, string, int) ([]models.ArticleRecord, error) {
	return f.posts, f.err
}

type fakeBluesky struct {
	posts []models.ArticleRecord
	err   error
}

func (f *fakeBluesky) SearchPosts(context.Context, string, string, int) ([]models.ArticleRecord, error) {
	return f.posts, f.err
}

type fakeClassifier struct {
	mu       sync.Mutex
	calls    int
	classify func(title, content, community string) (string, error)
}

func (f *fakeClassifier) ClassifyBias(_ context.Context, title, content, community string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.classify != nil {
		return f.classify(title, content, community)
	}
	return models.BiasRight, nil
}

// longContent is a single token so HTML stripping cannot change its length.
func longContent(n int) string {
	return strings.Repeat("a", n)
}

func newsArticle(url string, contentLen int) newsapi.Article {
	a := newsapi.Article{
		Title:       "headline",
		URL:         url,
		Content:     longContent(contentLen),
		PublishedAt: "2025-06-01T12:00:00Z",
	}
	a.Source.Name = "raw source"
	return a
}

func testAggregator(news NewsSearcher, reddit RedditSearcher, bluesky BlueskySearcher, classifier BiasClassifier, limits Limits) *Aggregator {
	quiet := log.New(io.Discard, "", 0)
	return New(news, reddit, bluesky, classifier, sentiment.New(), scrape.NewRegistry(), limits, quiet)
}

func TestRunMergesSourcesInOrder(t *testing.T) {
	news := &fakeNews{articles: []newsapi.Article{
		newsArticle("https://cnn.com/a", 200),
		newsArticle("https://foxnews.com/b", 200),
	}}
	reddit := &fakeReddit{posts: []models.ArticleRecord{
		{Source: "Reddit", Title: "r1", URL: "https://reddit.com/r1", Contents: "reddit text", Subreddit: "news"},
	}}
	bluesky := &fakeBluesky{posts: []models.ArticleRecord{
		{Source: "Bluesky", Title: "b1", URL: "https://bsky.app/b1", Contents: "bluesky text", Platform: "bluesky"},
	}}

	agg := testAggregator(news, reddit, bluesky, &fakeClassifier{}, Limits{})
	results := agg.Run(context.Background(), "election")

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	wantSources := []string{"CNN", "Fox News", "Reddit", "Bluesky"}
	for i, want := range wantSources {
		if results[i].Source != want {
			t.Fatalf("result %d: expected source %q, got %q", i, want, results[i].Source)
		}
	}
	if news.domains == "" || !strings.Contains(news.domains, "cnn.com") {
		t.Fatalf("expected registry domains in news query, got %q", news.domains)
	}
}

func TestRunDropsUnconfiguredDomains(t *testing.T) {
	news := &fakeNews{articles: []newsapi.Article{
		newsArticle("https://example.com/a", 200),
		newsArticle("https://cnn.com/b", 200),
	}}

	agg := testAggregator(news, &fakeReddit{}, &fakeBluesky{}, &fakeClassifier{}, Limits{})
	results := agg.Run(context.Background(), "q")

	if len(results) != 1 || results[0].Source != "CNN" {
		t.Fatalf("expected only the CNN article, got %+v", results)
	}
}

func TestRunMinContentBoundary(t *testing.T) {
	news := &fakeNews{articles: []newsapi.Article{
		newsArticle("https://cnn.com/short", 99),
		newsArticle("https://cnn.com/exact", 100),
	}}

	agg := testAggregator(news, &fakeReddit{}, &fakeBluesky{}, &fakeClassifier{}, Limits{MinContentLength: 100})
	results := agg.Run(context.Background(), "q")

	if len(results) != 1 || results[0].URL != "https://cnn.com/exact" {
		t.Fatalf("expected only the 100-char article admitted, got %+v", results)
	}
}

func TestRunBiasCapSkipsButKeepsOtherSide(t *testing.T) {
	articles := []newsapi.Article{
		newsArticle("https://cnn.com/1", 200),
		newsArticle("https://cnn.com/2", 200),
		newsArticle("https://cnn.com/3", 200), // over the left cap
		newsArticle("https://foxnews.com/1", 200),
	}

	agg := testAggregator(&fakeNews{articles: articles}, &fakeReddit{}, &fakeBluesky{}, &fakeClassifier{},
		Limits{MaxLeft: 2, MaxRight: 2, MaxTotal: 10})
	results := agg.Run(context.Background(), "q")

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[2].Source != "Fox News" {
		t.Fatalf("expected right article admitted after left cap, got %+v", results[2])
	}
}

func TestRunTotalCapStopsAdmission(t *testing.T) {
	var articles []newsapi.Article
	for i := 0; i < 6; i++ {
		articles = append(articles, newsArticle(fmt.Sprintf("https://cnn.com/%d", i), 200))
	}

	agg := testAggregator(&fakeNews{articles: articles}, &fakeReddit{}, &fakeBluesky{}, &fakeClassifier{},
		Limits{MaxLeft: 10, MaxRight: 10, MaxTotal: 4})
	results := agg.Run(context.Background(), "q")

	if len(results) != 4 {
		t.Fatalf("expected total cap of 4, got %d", len(results))
	}
}

func TestRunSourceFailureIsIsolated(t *testing.T) {
	news := &fakeNews{err: errors.New("newsapi down")}
	reddit := &fakeReddit{posts: []models.ArticleRecord{
		{Source: "Reddit", Title: "r1", URL: "https://reddit.com/r1", Contents: "text"},
	}}

	agg := testAggregator(news, reddit, &fakeBluesky{err: errors.New("bluesky down")}, &fakeClassifier{}, Limits{})
	results := agg.Run(context.Background(), "q")

	if len(results) != 1 || results[0].Source != "Reddit" {
		t.Fatalf("expected the surviving reddit post, got %+v", results)
	}
}

func TestRunClassifiesSocialPosts(t *testing.T) {
	classifier := &fakeClassifier{classify: func(_, _, community string) (string, error) {
		if community == "conservative" {
			return models.BiasRight, nil
		}
		return models.BiasLeft, nil
	}}
	reddit := &fakeReddit{posts: []models.ArticleRecord{
		{Source: "Reddit", Title: "r1", URL: "https://reddit.com/r1", Contents: "text", Subreddit: "conservative"},
		{Source: "Reddit", Title: "r2", URL: "https://reddit.com/r2", Contents: "text", Subreddit: "politics"},
	}}

	agg := testAggregator(&fakeNews{}, reddit, &fakeBluesky{}, classifier, Limits{})
	results := agg.Run(context.Background(), "q")

	if results[0].Bias != models.BiasRight || results[1].Bias != models.BiasLeft {
		t.Fatalf("expected subreddit-driven labels, got %q and %q", results[0].Bias, results[1].Bias)
	}
	if results[0].Sentiment == "" {
		t.Fatalf("expected sentiment to be filled for social posts")
	}
}

func TestRunClassifierFailureFallsBackLeft(t *testing.T) {
	classifier := &fakeClassifier{classify: func(string, string, string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	bluesky := &fakeBluesky{posts: []models.ArticleRecord{
		{Source: "Bluesky", Title: "b1", URL: "https://bsky.app/b1", Contents: "text"},
	}}

	agg := testAggregator(&fakeNews{}, &fakeReddit{}, bluesky, classifier, Limits{})
	results := agg.Run(context.Background(), "q")

	if len(results) != 1 {
		t.Fatalf("expected the post to survive classification failure, got %d results", len(results))
	}
	if results[0].Bias != models.BiasLeft {
		t.Fatalf("expected left fallback, got %q", results[0].Bias)
	}
}

func TestRunBoundedClassificationHandlesLargeBatches(t *testing.T) {
	var posts []models.ArticleRecord
	for i := 0; i < 40; i++ {
		posts = append(posts, models.ArticleRecord{
			Source:   "Reddit",
			Title:    fmt.Sprintf("post %d", i),
			URL:      fmt.Sprintf("https://reddit.com/p%d", i),
			Contents: "text",
		})
	}
	classifier := &fakeClassifier{}

	agg := testAggregator(&fakeNews{}, &fakeReddit{posts: posts}, &fakeBluesky{}, classifier,
		Limits{ClassifyConcurrency: 3})
	results := agg.Run(context.Background(), "q")

	if len(results) != 40 {
		t.Fatalf("expected all 40 posts back, got %d", len(results))
	}
	if classifier.calls != 40 {
		t.Fatalf("expected 40 classification calls, got %d", classifier.calls)
	}
	for _, post := range results {
		if post.Bias != models.BiasRight {
			t.Fatalf("expected every post classified, got %+v", post)
		}
	}
}
