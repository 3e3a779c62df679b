// Package aggregator fans a search query out to the news, Reddit and
// Bluesky adapters, applies the admission policy to news results, classifies
// social posts, and merges everything into one response list.
package aggregator

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/spectrumnews/spectrum/internal/helpers"
	"github.com/spectrumnews/spectrum/internal/scrape"
	"github.com/spectrumnews/spectrum/internal/sentiment"
	"github.com/spectrumnews/spectrum/models"
	"github.com/spectrumnews/spectrum/news/newsapi"
)

// NewsSearcher is the key-rotated news search. *news.KeyRotator satisfies it.
type NewsSearcher interface {
	Search(ctx context.Context, query, domains string) ([]newsapi.Article, error)
}

// RedditSearcher searches Reddit posts. *reddit.Client satisfies it.
type RedditSearcher interface {
	Search(ctx context.Context, query, subreddit string, limit int) ([]models.ArticleRecord, error)
}

// BlueskySearcher searches Bluesky posts. *bluesky.Client satisfies it.
type BlueskySearcher interface {
	SearchPosts(ctx context.Context, query, sort string, limit int) ([]models.ArticleRecord, error)
}

// BiasClassifier labels a social post left or right. Failures are handled
// here with the documented left fallback.
type BiasClassifier interface {
	ClassifyBias(ctx context.Context, title, content, community string) (string, error)
}

// Limits holds the per-search admission caps and filters.
type Limits struct {
	MaxLeft             int
	MaxRight            int
	MaxTotal            int
	MinContentLength    int
	SocialResults       int
	ClassifyConcurrency int
}

func (l Limits) withDefaults() Limits {
	if l.MaxLeft <= 0 {
		l.MaxLeft = 20
	}
	if l.MaxRight <= 0 {
		l.MaxRight = 20
	}
	if l.MaxTotal <= 0 {
		l.MaxTotal = 50
	}
	if l.MinContentLength <= 0 {
		l.MinContentLength = 100
	}
	if l.SocialResults <= 0 {
		l.SocialResults = 20
	}
	if l.ClassifyConcurrency <= 0 {
		l.ClassifyConcurrency = 8
	}
	return l
}

type Aggregator struct {
	news       NewsSearcher
	reddit     RedditSearcher
	bluesky    BlueskySearcher
	classifier BiasClassifier
	sentiment  *sentiment.Analyzer
	outlets    *scrape.Registry
	limits     Limits
	logger     *log.Logger
}

func New(news NewsSearcher, reddit RedditSearcher, bluesky BlueskySearcher,
	classifier BiasClassifier, analyzer *sentiment.Analyzer,
	outlets *scrape.Registry, limits Limits, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New(log.Writer(), "[AGG] ", log.LstdFlags)
	}
	return &Aggregator{
		news:       news,
		reddit:     reddit,
		bluesky:    bluesky,
		classifier: classifier,
		sentiment:  analyzer,
		outlets:    outlets,
		limits:     limits.withDefaults(),
		logger:     logger,
	}
}

// Run executes one search. The three sources run concurrently and fail
// independently: a dead source contributes an empty list and a log line,
// never an error. The merged order is fixed (news, then Reddit, then
// Bluesky) regardless of completion order.
func (a *Aggregator) Run(ctx context.Context, query string) []models.ArticleRecord {
	searchesTotal.Inc()

	var newsArticles []newsapi.Article
	var redditPosts, blueskyPosts []models.ArticleRecord

	var g errgroup.Group
	g.Go(func() error {
		articles, err := a.news.Search(ctx, query, a.outlets.Domains())
		if err != nil {
			a.logger.Printf("news search failed: %v", err)
			sourceFailures.WithLabelValues("news").Inc()
			return nil
		}
		newsArticles = articles
		return nil
	})
	g.Go(func() error {
		posts, err := a.reddit.Search(ctx, query, "all", a.limits.SocialResults)
		if err != nil {
			a.logger.Printf("reddit search failed: %v", err)
			sourceFailures.WithLabelValues("reddit").Inc()
			return nil
		}
		redditPosts = posts
		return nil
	})
	g.Go(func() error {
		posts, err := a.bluesky.SearchPosts(ctx, query, "top", a.limits.SocialResults)
		if err != nil {
			a.logger.Printf("bluesky search failed: %v", err)
			sourceFailures.WithLabelValues("bluesky").Inc()
			return nil
		}
		blueskyPosts = posts
		return nil
	})
	_ = g.Wait()

	results := a.admitNews(newsArticles)

	a.classifySocial(ctx, redditPosts, true)
	a.classifySocial(ctx, blueskyPosts, false)

	results = append(results, redditPosts...)
	results = append(results, blueskyPosts...)
	return results
}

// admitNews applies the admission policy in provider order: outlet match,
// minimum cleaned-content length, then per-bias and total caps. Admission is
// first-come-first-served; a candidate over its bias cap is skipped while a
// later candidate of the other bias may still get in.
func (a *Aggregator) admitNews(articles []newsapi.Article) []models.ArticleRecord {
	results := make([]models.ArticleRecord, 0, len(articles))
	leftCount, rightCount := 0, 0

	for _, article := range articles {
		if len(results) >= a.limits.MaxTotal {
			break
		}

		outlet, ok := a.outlets.Match(article.URL)
		if !ok {
			continue
		}

		clean := helpers.StripHTML(article.Content)
		if len(clean) < a.limits.MinContentLength {
			continue
		}

		if outlet.Bias == models.BiasLeft {
			if leftCount >= a.limits.MaxLeft {
				continue
			}
			leftCount++
		} else {
			if rightCount >= a.limits.MaxRight {
				continue
			}
			rightCount++
		}

		category, score := a.sentiment.Analyze(article.Title, clean)
		results = append(results, models.ArticleRecord{
			Source:         outlet.Source,
			Title:          article.Title,
			URL:            article.URL,
			Contents:       clean,
			Bias:           outlet.Bias,
			Sentiment:      category,
			SentimentScore: score,
			Author:         article.Author,
			Date:           helpers.ToEpoch(article.PublishedAt),
		})
		admittedArticles.WithLabelValues("news").Inc()
	}
	return results
}

// classifySocial labels and scores posts in place. Classification calls run
// concurrently but capped by a semaphore so one large result set cannot
// flood the LLM quota. A failed or unrecognized classification falls back to
// the left label.
func (a *Aggregator) classifySocial(ctx context.Context, posts []models.ArticleRecord, useSubreddit bool) {
	sem := semaphore.NewWeighted(int64(a.limits.ClassifyConcurrency))
	var wg sync.WaitGroup

	for i := range posts {
		if err := sem.Acquire(ctx, 1); err != nil {
			a.applyFallback(&posts[i], err)
			continue
		}
		wg.Add(1)
		go func(post *models.ArticleRecord) {
			defer wg.Done()
			defer sem.Release(1)

			community := ""
			if useSubreddit {
				community = post.Subreddit
			}
			bias, err := a.classifier.ClassifyBias(ctx, post.Title, post.Contents, community)
			if err != nil {
				a.applyFallback(post, err)
			} else {
				post.Bias = bias
			}

			category, score := a.sentiment.Analyze(post.Title, post.Contents)
			post.Sentiment = category
			post.SentimentScore = score
			admittedArticles.WithLabelValues("social").Inc()
		}(&posts[i])
	}
	wg.Wait()
}

func (a *Aggregator) applyFallback(post *models.ArticleRecord, err error) {
	a.logger.Printf("bias classification failed for %s: %v", post.URL, err)
	classifyFallbacks.Inc()
	post.Bias = models.BiasLeft
	if post.Sentiment == "" {
		category, score := a.sentiment.Analyze(post.Title, post.Contents)
		post.Sentiment = category
		post.SentimentScore = score
	}
}
