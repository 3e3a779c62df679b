// Package news wraps the NewsAPI client with a rotating credential pool so a
// single free-tier key being throttled does not take the news source down.
package news

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spectrumnews/spectrum/news/newsapi"
)

// ErrKeysExhausted is returned when every attempt was rate limited. It is
// distinguishable from request-level errors with errors.Is.
var ErrKeysExhausted = errors.New("news: all key attempts exhausted")

// Searcher is the provider call a rotator retries over. *newsapi.Client
// satisfies it; tests substitute fakes.
type Searcher interface {
	Everything(ctx context.Context, apiKey, query, domains string) ([]newsapi.Article, error)
}

// KeyRotator issues searches with keys taken round-robin from a fixed pool.
// The rotation index is shared by all callers and advances once per attempt,
// so fairness under concurrency is approximate: a caller gets whichever key
// the pointer lands on, not a key private to its request.
type KeyRotator struct {
	client      Searcher
	maxAttempts int

	mu   sync.Mutex
	keys []string
	idx  int
}

// NewKeyRotator builds a rotator over the ordered key pool. maxAttempts is
// independent of pool size: fewer attempts than keys leaves some keys
// untried, more attempts than keys revisits them.
func NewKeyRotator(client Searcher, keys []string, maxAttempts int) (*KeyRotator, error) {
	if len(keys) == 0 {
		return nil, errors.New("news: empty key pool")
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &KeyRotator{client: client, keys: keys, maxAttempts: maxAttempts}, nil
}

func (r *KeyRotator) nextKey() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.keys[r.idx]
	r.idx = (r.idx + 1) % len(r.keys)
	return key
}

// Search runs the query, rotating to the next key on each throttled attempt.
// A non-throttling error fails immediately. After maxAttempts throttled
// attempts it fails with ErrKeysExhausted.
func (r *KeyRotator) Search(ctx context.Context, query, domains string) ([]newsapi.Article, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		articles, err := r.client.Everything(ctx, r.nextKey(), query, domains)
		if err == nil {
			return articles, nil
		}
		if !errors.Is(err, newsapi.ErrRateLimited) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrKeysExhausted, r.maxAttempts)
}
