package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spectrum_searches_total",
		Help: "Number of aggregated searches executed.",
	})
	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spectrum_source_failures_total",
		Help: "Search adapter failures by source.",
	}, []string{"source"})
	admittedArticles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spectrum_admitted_articles_total",
		Help: "Articles and posts admitted into search responses.",
	}, []string{"source"})
	classifyFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spectrum_classify_fallbacks_total",
		Help: "Bias classifications that fell back to the default label.",
	})
)
