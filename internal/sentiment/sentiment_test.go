package sentiment

import (
	"testing"

	"github.com/spectrumnews/spectrum/models"
)

func TestAnalyzeEmptyInput(t *testing.T) {
	a := New()
	category, score := a.Analyze("", "")
	if category != models.SentimentNeutral {
		t.Fatalf("expected neutral, got %q", category)
	}
	if score != 0 {
		t.Fatalf("expected score 0, got %f", score)
	}
}

func TestAnalyzePolarity(t *testing.T) {
	a := New()

	cases := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{"positive", "Wonderful news", "This is a great, amazing and fantastic development everyone loves.", models.SentimentPositive},
		{"negative", "Horrible disaster", "A terrible, awful tragedy. Everyone hates this horrific failure.", models.SentimentNegative},
		{"neutral", "Committee meets", "The committee convened on Tuesday to review the schedule.", models.SentimentNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			category, score := a.Analyze(tc.title, tc.body)
			if category != tc.want {
				t.Fatalf("Analyze(%q): expected %q, got %q (score %f)", tc.title, tc.want, category, score)
			}
			if score < -1 || score > 1 {
				t.Fatalf("compound score out of range: %f", score)
			}
		})
	}
}

func TestCategorizeThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.05, models.SentimentPositive},
		{-0.05, models.SentimentNegative},
		{0.0499, models.SentimentNeutral},
		{-0.0499, models.SentimentNeutral},
		{0, models.SentimentNeutral},
		{1, models.SentimentPositive},
		{-1, models.SentimentNegative},
	}
	for _, tc := range cases {
		if got := Categorize(tc.score); got != tc.want {
			t.Fatalf("Categorize(%f): expected %q, got %q", tc.score, tc.want, got)
		}
	}
}
