package scrape

import (
	"context"
	"sort"
	"strings"

	"github.com/spectrumnews/spectrum/models"
)

// FetchFunc returns the full article text for a URL, or an error when the
// page cannot be fetched or yields no usable body.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Outlet is one configured news domain: display name, static bias label and
// the scraper used to pull full article text on demand.
type Outlet struct {
	Source string
	Bias   string
	Fetch  FetchFunc
}

// Registry maps domain substrings to outlet configuration. Immutable after
// construction.
type Registry struct {
	outlets map[string]Outlet
	domains []string
}

// NewRegistry returns the default registry of the eight configured outlets.
func NewRegistry() *Registry {
	f := newFetcher()
	return newRegistry(map[string]Outlet{
		"cnn.com":       {Source: "CNN", Bias: models.BiasLeft, Fetch: f.cnn},
		"cbsnews.com":   {Source: "CBS News", Bias: models.BiasLeft, Fetch: f.cbs},
		"nbcnews.com":   {Source: "NBC News", Bias: models.BiasLeft, Fetch: f.nbc},
		"abcnews.go.com": {Source: "ABC News", Bias: models.BiasLeft, Fetch: f.abc},
		"foxnews.com":   {Source: "Fox News", Bias: models.BiasRight, Fetch: f.fox},
		"breitbart.com": {Source: "Breitbart", Bias: models.BiasRight, Fetch: f.breitbart},
		"nypost.com":    {Source: "NY Post", Bias: models.BiasRight, Fetch: f.nypost},
		"oann.com":      {Source: "OANN", Bias: models.BiasRight, Fetch: f.oann},
	})
}

func newRegistry(outlets map[string]Outlet) *Registry {
	r := &Registry{outlets: outlets}
	for domain := range outlets {
		r.domains = append(r.domains, domain)
	}
	sort.Strings(r.domains)
	return r
}

// Match finds the outlet whose domain appears in the URL. Articles from
// unconfigured domains do not match and are dropped by the aggregator.
func (r *Registry) Match(url string) (Outlet, bool) {
	for domain, outlet := range r.outlets {
		if strings.Contains(url, domain) {
			return outlet, true
		}
	}
	return Outlet{}, false
}

// Domains returns the comma-separated domain list for the news search call.
func (r *Registry) Domains() string {
	return strings.Join(r.domains, ",")
}
