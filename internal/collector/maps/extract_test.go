package maps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToCollection(t *testing.T) {
	t.Parallel()

	data := pageData{
		Name:         " Casa Lupe ",
		Rating:       "4.6",
		Address:      "12 Mission St, San Francisco",
		TotalRatings: "1,234 reviews",
		Reviews: []reviewData{
			{Text: "amazing tacos", Stars: "5 stars", Author: "Ana", Date: "a week ago"},
			{Text: "slow service", Stars: "2 stars", Author: "Ben", Date: "3 months ago"},
			{Text: "", Stars: "4 stars", Author: "Cam", Date: "a year ago"},
		},
	}

	collection := toCollection(data, 100)
	require.NotNil(t, collection.Profile)
	require.Equal(t, "Casa Lupe", collection.Profile.Name)
	require.InDelta(t, 4.6, collection.Profile.Rating, 1e-9)
	require.Equal(t, 1234, collection.Profile.TotalRatings)
	require.Len(t, collection.Reviews, 3)
	require.NotNil(t, collection.Reviews[0].Rating)
	require.InDelta(t, 5, *collection.Reviews[0].Rating, 1e-9)
	require.Equal(t, "Ana", collection.Reviews[0].Author)
}

func TestToCollection_LimitAndMissingProfile(t *testing.T) {
	t.Parallel()

	data := pageData{
		Reviews: []reviewData{
			{Text: "one"}, {Text: "two"}, {Text: "three"},
		},
	}

	collection := toCollection(data, 2)
	require.Nil(t, collection.Profile, "blank name must not produce a profile")
	require.Len(t, collection.Reviews, 2)
	require.Nil(t, collection.Reviews[0].Rating)
}

func TestParseStars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  *float64
	}{
		{label: "5 stars", want: ptr(5.0)},
		{label: "4 stars, 12 photos", want: ptr(4.0)},
		{label: "", want: nil},
		{label: "stars", want: nil},
		{label: "9 stars", want: nil},
	}
	for _, tc := range tests {
		got := parseStars(tc.label)
		if tc.want == nil {
			require.Nil(t, got, tc.label)
			continue
		}
		require.NotNil(t, got, tc.label)
		require.InDelta(t, *tc.want, *got, 1e-9, tc.label)
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1234, parseCount("1,234 reviews"))
	require.Equal(t, 87, parseCount("87 reviews"))
	require.Equal(t, 0, parseCount("reviews"))
	require.Equal(t, 0, parseCount(""))
}

func TestParseRating(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 4.6, parseRating("4.6"), 1e-9)
	require.InDelta(t, 4.6, parseRating("4,6"), 1e-9)
	require.Zero(t, parseRating("not a number"))
	require.Zero(t, parseRating("11.0"))
}

func ptr(v float64) *float64 { return &v }
