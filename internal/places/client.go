// Package places is a client for the Google Places and Geocoding web
// services, used by the search path to discover restaurants before any
// reviews are scraped.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://maps.googleapis.com"

// Config controls the places client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Place is one discovered restaurant.
type Place struct {
	PlaceID      string
	Name         string
	Rating       float64
	Address      string
	TotalRatings int
	Lat          float64
	Lng          float64
	PhotoURL     string
}

// Client calls the Places web service.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// FindRestaurants geocodes a free-form location and returns nearby
// restaurants with full details.
func (c *Client) FindRestaurants(ctx context.Context, location string, maxResults, radiusMeters int) ([]Place, error) {
	lat, lng, err := c.geocode(ctx, location)
	if err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		radiusMeters = 5000
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("type", "restaurant")

	var payload searchResponse
	if err := c.get(ctx, "/maps/api/place/nearbysearch/json", params, &payload); err != nil {
		return nil, err
	}
	if err := payload.ok(); err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}
	return c.detailAll(ctx, payload.Results, maxResults)
}

// SearchByName runs a text search for a specific restaurant name.
func (c *Client) SearchByName(ctx context.Context, query string, maxResults int) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "restaurant")

	var payload searchResponse
	if err := c.get(ctx, "/maps/api/place/textsearch/json", params, &payload); err != nil {
		return nil, err
	}
	if err := payload.ok(); err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return c.detailAll(ctx, payload.Results, maxResults)
}

// Details fetches the full record for one place ID.
func (c *Client) Details(ctx context.Context, placeID string) (Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,rating,formatted_address,place_id,geometry,user_ratings_total,photos")

	var payload detailsResponse
	if err := c.get(ctx, "/maps/api/place/details/json", params, &payload); err != nil {
		return Place{}, err
	}
	if payload.Status != "OK" {
		return Place{}, fmt.Errorf("place details: status %s", payload.Status)
	}
	return c.toPlace(payload.Result), nil
}

func (c *Client) detailAll(ctx context.Context, results []placeResult, maxResults int) ([]Place, error) {
	if maxResults <= 0 || maxResults > len(results) {
		maxResults = len(results)
	}
	places := make([]Place, 0, maxResults)
	for _, result := range results[:maxResults] {
		place, err := c.Details(ctx, result.PlaceID)
		if err != nil {
			// One bad place must not sink the whole search.
			c.logger.Warn("place details failed",
				zap.String("place_id", result.PlaceID), zap.Error(err))
			continue
		}
		places = append(places, place)
	}
	return places, nil
}

func (c *Client) geocode(ctx context.Context, location string) (float64, float64, error) {
	params := url.Values{}
	params.Set("address", location)

	var payload geocodeResponse
	if err := c.get(ctx, "/maps/api/geocode/json", params, &payload); err != nil {
		return 0, 0, err
	}
	if payload.Status != "OK" || len(payload.Results) == 0 {
		return 0, 0, fmt.Errorf("location not found: %s", location)
	}
	loc := payload.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building places request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("places request: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding places response: %w", err)
	}
	return nil
}

func (c *Client) toPlace(result placeResult) Place {
	place := Place{
		PlaceID:      result.PlaceID,
		Name:         result.Name,
		Rating:       result.Rating,
		Address:      result.FormattedAddress,
		TotalRatings: result.UserRatingsTotal,
		Lat:          result.Geometry.Location.Lat,
		Lng:          result.Geometry.Location.Lng,
	}
	if len(result.Photos) > 0 && result.Photos[0].PhotoReference != "" {
		place.PhotoURL = fmt.Sprintf(
			"%s/maps/api/place/photo?maxwidth=800&photo_reference=%s&key=%s",
			c.cfg.BaseURL, url.QueryEscape(result.Photos[0].PhotoReference), url.QueryEscape(c.cfg.APIKey))
	}
	return place
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry geometry `json:"geometry"`
	} `json:"results"`
}

type searchResponse struct {
	Status  string        `json:"status"`
	Results []placeResult `json:"results"`
}

func (r searchResponse) ok() error {
	switch r.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	default:
		return fmt.Errorf("status %s", r.Status)
	}
}

type detailsResponse struct {
	Status string      `json:"status"`
	Result placeResult `json:"result"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Rating           float64  `json:"rating"`
	FormattedAddress string   `json:"formatted_address"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Geometry         geometry `json:"geometry"`
	Photos           []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

type geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}
