package keywords

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVibes(t *testing.T) {
	t.Parallel()

	reviews := []string{
		"Took my partner here for our anniversary, so romantic and intimate.",
		"Great wine list, perfect date spot with candle light.",
		"Quiet and peaceful, we could actually talk.",
	}

	vibes := Vibes(reviews, 5)
	require.NotEmpty(t, vibes)
	require.Equal(t, "#Romantic", vibes[0])
	require.Contains(t, vibes, "#Quiet")

	require.Equal(t, []string{"#NotEnoughData"}, Vibes([]string{"just one"}, 5))
	require.Equal(t, []string{"#NoVibeDetected"}, Vibes([]string{"ok", "ok", "ok"}, 5))
}

func TestDishes(t *testing.T) {
	t.Parallel()

	reviews := []string{
		"The pizza here is unreal, best pizza in town.",
		"Had the pizza and a caesar salad, both great.",
		"Their pasta was fine but get the pizza.",
	}

	dishes := Dishes(reviews, 3)
	require.Equal(t, "Pizza", dishes[0])
	require.Contains(t, dishes, "Salad")
	require.LessOrEqual(t, len(dishes), 3)
	require.Nil(t, Dishes(nil, 3))
}

func TestComplaints(t *testing.T) {
	t.Parallel()

	reviews := []string{
		"Food was great. The service was really slow though!",
		"Really slow service again, waited forever.",
		"A bit expensive for what you get.",
	}

	complaints := Complaints(reviews, 3)
	require.NotEmpty(t, complaints)
	for _, complaint := range complaints {
		require.GreaterOrEqual(t, len(complaint), 2)
	}
	require.Nil(t, Complaints([]string{"everything was perfect"}, 3))
}
