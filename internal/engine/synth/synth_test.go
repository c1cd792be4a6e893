package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	first := Generate("Luigi's Italian Kitchen", 4.7)
	second := Generate("Luigi's Italian Kitchen", 4.7)
	require.Equal(t, first, second)
}

func TestGenerate_Shapes(t *testing.T) {
	t.Parallel()

	got := Generate("Taqueria El Sol Mexican Grill", 4.2)

	require.Regexp(t, `^\d+% (Very Positive|Positive|Neutral|Mixed)$`, got.TrueSentiment)
	require.Len(t, got.VibeCheck, 3)
	for _, vibe := range got.VibeCheck {
		require.True(t, strings.HasPrefix(vibe, "#"))
	}
	require.Len(t, got.MustTryDishes, 3)
	require.Len(t, got.CommonComplaints, 2)
}

func TestGenerate_CuisineDishes(t *testing.T) {
	t.Parallel()

	got := Generate("Napoli Pizza House", 4.0)
	joined := strings.Join(got.MustTryDishes, " ")
	require.Contains(t, joined, "Pizza")
}

func TestGenerate_LowRatingComplaints(t *testing.T) {
	t.Parallel()

	got := Generate("Greasy Spoon", 2.1)
	for _, complaint := range got.CommonComplaints {
		require.Contains(t, []string{
			"Inconsistent food quality",
			"Slow service",
			"Cleanliness issues",
		}, complaint)
	}
}
