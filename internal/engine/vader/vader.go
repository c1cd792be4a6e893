// Package vader scores review text with VADER compound sentiment and
// renders the aggregate "true sentiment" label shown to clients.
package vader

import (
	"fmt"

	"github.com/jonreiter/govader"
)

// Engine wraps a VADER analyzer. It is safe for concurrent use; the
// analyzer is read-only after construction.
type Engine struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// New constructs an Engine with the default VADER lexicon.
func New() *Engine {
	return &Engine{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// ScoreReview returns the compound sentiment of one review in [-1, 1].
func (e *Engine) ScoreReview(text string) float64 {
	if text == "" {
		return 0
	}
	return e.analyzer.PolarityScores(text).Compound
}

// Summary renders aggregate compound scores as a label like "82% Positive".
// The percentage maps [-1, 1] onto [0, 100]; the category follows the
// standard VADER thresholds with an extra band at |0.5| for the strong
// variants.
func Summary(scores []float64) string {
	if len(scores) == 0 {
		return "No reviews"
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))
	percentage := int((avg + 1) / 2 * 100)

	var category string
	switch {
	case avg >= 0.5:
		category = "Very Positive"
	case avg >= 0.05:
		category = "Positive"
	case avg >= -0.05:
		category = "Neutral"
	case avg >= -0.5:
		category = "Negative"
	default:
		category = "Very Negative"
	}

	return fmt.Sprintf("%d%% %s", percentage, category)
}
