package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/engine/keywords"
	"github.com/vibefinder/vibefinder/internal/engine/synth"
	"github.com/vibefinder/vibefinder/internal/engine/vader"
	"github.com/vibefinder/vibefinder/internal/insight"
	"github.com/vibefinder/vibefinder/internal/places"
)

type searchRequest struct {
	Location   string   `json:"location"`
	MaxResults int      `json:"max_results"`
	UserLat    *float64 `json:"user_lat"`
	UserLng    *float64 `json:"user_lng"`
}

type restaurantResponse struct {
	Name             string   `json:"name"`
	Rating           float64  `json:"rating"`
	TrueSentiment    string   `json:"trueSentiment"`
	VibeCheck        []string `json:"vibeCheck"`
	MustTryDishes    []string `json:"mustTryDishes"`
	CommonComplaints []string `json:"commonComplaints"`
	Address          string   `json:"address,omitempty"`
	PlaceID          string   `json:"place_id"`
	Distance         string   `json:"distance,omitempty"`
	PhotoURL         string   `json:"photo_url,omitempty"`
	ScrapeTriggered  bool     `json:"scrape_triggered"`
}

// search discovers restaurants for a query, enriches each with insights
// from the review cache (or generated ones when the cache is thin), and
// kicks off a background refresh for stale entries.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Location = strings.TrimSpace(req.Location)
	if len(req.Location) < 2 {
		writeError(w, http.StatusBadRequest, "location must be at least 2 characters")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 10
	}
	if req.MaxResults > 20 {
		req.MaxResults = 20
	}

	found, err := s.discover(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("restaurant discovery failed: %v", err))
		return
	}
	if len(found) == 0 {
		writeError(w, http.StatusNotFound, "no restaurants found for the given location")
		return
	}

	enriched := make([]restaurantResponse, 0, len(found))
	for _, place := range found {
		enriched = append(enriched, s.enrich(r, place, req))
	}
	writeJSON(w, http.StatusOK, enriched)
}

// discover picks text search for name-like queries and nearby search
// for location-like ones, falling back to nearby search when a name
// search comes up empty.
func (s *Server) discover(ctx context.Context, req searchRequest) ([]places.Place, error) {
	if isNameQuery(req.Location) {
		found, err := s.searcher.SearchByName(ctx, req.Location, req.MaxResults)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return s.searcher.FindRestaurants(ctx, req.Location, req.MaxResults, 0)
}

func (s *Server) enrich(r *http.Request, place places.Place, req searchRequest) restaurantResponse {
	ctx := r.Context()
	resp := restaurantResponse{
		Name:     place.Name,
		Rating:   place.Rating,
		Address:  place.Address,
		PlaceID:  place.PlaceID,
		PhotoURL: place.PhotoURL,
	}

	if req.UserLat != nil && req.UserLng != nil && (place.Lat != 0 || place.Lng != 0) {
		resp.Distance = formatDistance(haversineMiles(*req.UserLat, *req.UserLng, place.Lat, place.Lng))
	}

	insights, ok := s.cachedInsights(r, place)
	if !ok && s.cfg.Scrape.InsufficientSynth {
		insights = synth.Generate(place.Name, place.Rating)
	}
	resp.TrueSentiment = insights.TrueSentiment
	resp.VibeCheck = insights.VibeCheck
	resp.MustTryDishes = insights.MustTryDishes
	resp.CommonComplaints = insights.CommonComplaints

	// Freshen the cache in the background; a conflict just means a
	// refresh is already underway.
	_, triggered, err := s.controller.TriggerIfStale(ctx, place.PlaceID)
	if err != nil && !isConflict(err) {
		s.logger.Warn("freshness trigger failed",
			zap.String("place_id", place.PlaceID), zap.Error(err))
	}
	resp.ScrapeTriggered = triggered
	return resp
}

// cachedInsights builds insights from processed cached reviews. It
// reports false when the cache holds too few processed reviews to say
// anything meaningful.
func (s *Server) cachedInsights(r *http.Request, place places.Place) (insight.Insights, bool) {
	ctx := r.Context()
	restaurant, err := s.store.RestaurantByPlaceID(ctx, place.PlaceID)
	if err != nil {
		if !errors.Is(err, insight.ErrNotFound) {
			s.logger.Warn("restaurant lookup failed",
				zap.String("place_id", place.PlaceID), zap.Error(err))
		}
		return insight.Insights{}, false
	}
	reviews, err := s.store.ListReviews(ctx, restaurant.ID)
	if err != nil {
		s.logger.Warn("review lookup failed",
			zap.String("restaurant_id", restaurant.ID), zap.Error(err))
		return insight.Insights{}, false
	}

	var (
		texts  []string
		scores []float64
	)
	for _, rev := range reviews {
		if !rev.Processed || rev.SentimentScore == nil {
			continue
		}
		texts = append(texts, rev.Text)
		scores = append(scores, *rev.SentimentScore)
	}
	if len(texts) < s.cfg.Scrape.MinReviewsForML {
		return insight.Insights{}, false
	}

	return insight.Insights{
		TrueSentiment:    vader.Summary(scores),
		VibeCheck:        keywords.Vibes(texts, 5),
		MustTryDishes:    keywords.Dishes(texts, 5),
		CommonComplaints: keywords.Complaints(texts, 3),
	}, true
}

func isConflict(err error) bool {
	_, ok := insight.AsConflict(err)
	return ok
}

// isNameQuery guesses whether the query names a specific restaurant
// rather than a location, so discovery can pick text search over nearby
// search.
func isNameQuery(query string) bool {
	lower := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(lower)

	nameScore := 0
	for _, indicator := range []string{
		"'s ", "restaurant", "cafe", "bistro", "kitchen", "grill",
		"tavern", "inn", "diner", "eatery", "pizzeria", "trattoria", "steakhouse",
	} {
		if strings.Contains(lower, indicator) {
			nameScore++
		}
	}
	for _, prefix := range []string{"The ", "Papa ", "Mama ", "Uncle "} {
		if strings.HasPrefix(query, prefix) {
			nameScore++
		}
	}

	locationScore := 0
	for _, indicator := range []string{" in ", " near ", " at ", " around "} {
		if strings.Contains(lower, indicator) {
			locationScore++
		}
	}
	for _, prefix := range []string{
		"pizza ", "sushi ", "burger ", "italian ", "chinese ",
		"mexican ", "thai ", "indian ", "japanese ", "coffee ",
	} {
		if strings.HasPrefix(lower, prefix) {
			locationScore++
		}
	}

	if isTitleCase(query) && len(words) >= 2 && len(words) <= 4 && locationScore == 0 {
		nameScore += 2
	}

	if nameScore != locationScore {
		return nameScore > locationScore
	}
	return isTitleCase(query) && len(words) <= 5
}

func isTitleCase(query string) bool {
	words := strings.Fields(query)
	if len(words) == 0 {
		return false
	}
	for _, word := range words {
		runes := []rune(word)
		if unicode.IsLetter(runes[0]) && !unicode.IsUpper(runes[0]) {
			return false
		}
	}
	return true
}

// haversineMiles is the great-circle distance between two coordinates.
func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusMiles = 3956.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

func formatDistance(miles float64) string {
	switch {
	case miles < 0.1:
		return fmt.Sprintf("%d ft", int(miles*5280))
	case miles < 10:
		return fmt.Sprintf("%.1f mi", miles)
	default:
		return fmt.Sprintf("%d mi", int(miles))
	}
}
