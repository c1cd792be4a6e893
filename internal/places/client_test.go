package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/maps/api/geocode/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") == "nowhere" {
			writeJSON(t, w, `{"status":"ZERO_RESULTS","results":[]}`)
			return
		}
		writeJSON(t, w, `{"status":"OK","results":[{"geometry":{"location":{"lat":37.76,"lng":-122.42}}}]}`)
	})
	mux.HandleFunc("/maps/api/place/nearbysearch/json", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "restaurant", r.URL.Query().Get("type"))
		writeJSON(t, w, `{"status":"OK","results":[{"place_id":"place-1"},{"place_id":"place-2"}]}`)
	})
	mux.HandleFunc("/maps/api/place/textsearch/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "unknown spot" {
			writeJSON(t, w, `{"status":"ZERO_RESULTS","results":[]}`)
			return
		}
		writeJSON(t, w, `{"status":"OK","results":[{"place_id":"place-1"}]}`)
	})
	mux.HandleFunc("/maps/api/place/details/json", func(w http.ResponseWriter, r *http.Request) {
		placeID := r.URL.Query().Get("place_id")
		if placeID == "place-2" {
			writeJSON(t, w, `{"status":"NOT_FOUND"}`)
			return
		}
		writeJSON(t, w, `{"status":"OK","result":{
			"place_id":"place-1","name":"Casa Lupe","rating":4.6,
			"formatted_address":"12 Mission St","user_ratings_total":812,
			"geometry":{"location":{"lat":37.76,"lng":-122.42}},
			"photos":[{"photo_reference":"ref-1"}]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write([]byte(body))
	require.NoError(t, err)
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := newTestServer(t)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
}

func TestFindRestaurants(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	places, err := client.FindRestaurants(context.Background(), "Mission District", 10, 0)
	require.NoError(t, err)

	// place-2 details fail and must be skipped, not fatal.
	require.Len(t, places, 1)
	require.Equal(t, "Casa Lupe", places[0].Name)
	require.InDelta(t, 4.6, places[0].Rating, 1e-9)
	require.Equal(t, 812, places[0].TotalRatings)
	require.Contains(t, places[0].PhotoURL, "photo_reference=ref-1")
}

func TestFindRestaurants_UnknownLocation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	_, err := client.FindRestaurants(context.Background(), "nowhere", 10, 0)
	require.ErrorContains(t, err, "location not found")
}

func TestSearchByName(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	places, err := client.SearchByName(context.Background(), "Casa Lupe", 10)
	require.NoError(t, err)
	require.Len(t, places, 1)
	require.Equal(t, "place-1", places[0].PlaceID)

	empty, err := client.SearchByName(context.Background(), "unknown spot", 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestDetails_NotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	_, err := client.Details(context.Background(), "place-2")
	require.ErrorContains(t, err, "NOT_FOUND")
}
