package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/insight"
)

const searchPage = `<!DOCTYPE html>
<html><body>
<div class="search-result search-result-link">
  <header><a class="search-title">Casa Lupe is the best taqueria in the Mission</a></header>
  <div class="search-result-meta">
    <span class="search-time"><time datetime="2025-05-01">3 months ago</time></span>
    <span class="search-author"><a>u/tacofan</a></span>
  </div>
  <div class="search-result-body">Went to Casa Lupe last weekend and the al pastor was unreal. Line moves fast too.</div>
</div>
<div class="search-result search-result-link">
  <header><a class="search-title">Best burritos in SF?</a></header>
  <div class="search-result-meta">
    <span class="search-author"><a>u/hungry</a></span>
  </div>
  <div class="search-result-body">Looking for recommendations, nothing specific yet but something in the Mission.</div>
</div>
<div class="search-result search-result-link">
  <header><a class="search-title">Casa Lupe review</a></header>
  <div class="search-result-meta"></div>
  <div class="search-result-body">meh</div>
</div>
</body></html>`

func TestCollect_FiltersMentions(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(searchPage))
	}))
	t.Cleanup(srv.Close)

	collector := New(Config{BaseURL: srv.URL, MaxResults: 20}, zap.NewNop())
	require.Equal(t, insight.SourceReddit, collector.Name())
	require.False(t, collector.Primary())

	collection, err := collector.Collect(context.Background(), insight.CollectTarget{Name: "Casa Lupe"})
	require.NoError(t, err)
	require.Contains(t, gotQuery, "Casa Lupe")

	// Only the first hit mentions the restaurant with enough text; the
	// second never names it and the third is too short.
	require.Len(t, collection.Reviews, 1)
	review := collection.Reviews[0]
	require.Contains(t, review.Text, "al pastor")
	require.Equal(t, "tacofan", review.Author)
	require.Equal(t, "3 months ago", review.DateText)
	require.Nil(t, collection.Profile)
}

func TestCollect_ServerErrorSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	collector := New(Config{BaseURL: srv.URL}, zap.NewNop())
	_, err := collector.Collect(context.Background(), insight.CollectTarget{Name: "Casa Lupe"})
	require.Error(t, err)
}

func TestCollect_RequiresName(t *testing.T) {
	t.Parallel()

	collector := New(Config{}, zap.NewNop())
	_, err := collector.Collect(context.Background(), insight.CollectTarget{PlaceID: "place-1"})
	require.Error(t, err)
}

func TestSearchURL(t *testing.T) {
	t.Parallel()

	got := searchURL("https://old.reddit.com/", "Casa Lupe")
	require.Contains(t, got, "https://old.reddit.com/search?")
	require.Contains(t, got, "q=%22Casa+Lupe%22+restaurant")
}
