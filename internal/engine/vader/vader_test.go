package vader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreReview_Polarity(t *testing.T) {
	t.Parallel()

	engine := New()

	positive := engine.ScoreReview("The food was absolutely amazing and the staff were wonderful!")
	negative := engine.ScoreReview("Terrible service, cold food, worst dinner I have ever had.")

	require.Greater(t, positive, 0.05)
	require.Less(t, negative, -0.05)
	require.GreaterOrEqual(t, positive, -1.0)
	require.LessOrEqual(t, positive, 1.0)
	require.Zero(t, engine.ScoreReview(""))
}

func TestSummary_Labels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scores []float64
		want   string
	}{
		{name: "no scores", scores: nil, want: "No reviews"},
		{name: "very positive", scores: []float64{0.8, 0.7, 0.9}, want: "90% Very Positive"},
		{name: "positive", scores: []float64{0.3, 0.1}, want: "60% Positive"},
		{name: "neutral", scores: []float64{0.0, 0.01}, want: "50% Neutral"},
		{name: "negative", scores: []float64{-0.3, -0.1}, want: "40% Negative"},
		{name: "very negative", scores: []float64{-0.9, -0.7}, want: "10% Very Negative"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Summary(tc.scores))
		})
	}
}
