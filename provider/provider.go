package provider

import (
	"context"

	"github.com/spectrumnews/spectrum/models"
)

// Provider is the text-generation capability used for bias classification,
// article summaries and cross-partisan insights. All calls may fail or time
// out; no fallback is applied here: callers decide (the aggregator defaults
// a failed classification to "left", summary/insights propagate the error).
type Provider interface {
	// ClassifyBias labels a social post "left" or "right". Any other model
	// output is returned as an error, never silently coerced.
	ClassifyBias(ctx context.Context, title, content, community string) (string, error)

	// Summarize produces a short English summary of an article.
	Summarize(ctx context.Context, title, content string) (string, error)

	// Insights produces per-side takeaways and three common-ground items
	// from pre-built left/right context blocks.
	Insights(ctx context.Context, leftContext, rightContext string) (models.Insights, error)
}
