package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
	"github.com/spectrumnews/spectrum/models"
)

// Analyzer scores text polarity with a VADER lexicon model. The zero value is
// not usable; construct with New. PolarityScores is stateless, so a single
// Analyzer is safe for concurrent use.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

func New() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze scores the concatenation of title and body and maps the compound
// score to a category: >= 0.05 positive, <= -0.05 negative, otherwise
// neutral. Empty input is neutral with score 0.
func (a *Analyzer) Analyze(title, body string) (string, float64) {
	text := strings.TrimSpace(title + " " + body)
	if text == "" {
		return models.SentimentNeutral, 0
	}

	compound := a.vader.PolarityScores(text).Compound
	return Categorize(compound), compound
}

// Categorize maps a compound score in [-1,1] to a category. Both thresholds
// are inclusive.
func Categorize(compound float64) string {
	switch {
	case compound >= 0.05:
		return models.SentimentPositive
	case compound <= -0.05:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
