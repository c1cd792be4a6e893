// Package reddit collects restaurant mentions from old.reddit.com search
// results. Reddit is a supplementary source: its failure degrades a
// scrape to Maps-only data instead of failing the job.
package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/insight"
)

// Config controls the reddit collector.
type Config struct {
	BaseURL    string
	UserAgent  string
	MaxResults int
	Timeout    time.Duration
}

// Collector implements insight.SourceCollector over old reddit's
// server-rendered search page, which needs no JavaScript.
type Collector struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Collector.
func New(cfg Config, logger *zap.Logger) *Collector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://old.reddit.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Collector{cfg: cfg, logger: logger}
}

// Name reports the source tag written on persisted reviews.
func (c *Collector) Name() insight.ReviewSource { return insight.SourceReddit }

// Primary reports that this source never fails a job.
func (c *Collector) Primary() bool { return false }

// Collect searches for posts mentioning the restaurant and returns the
// matching self-post bodies as reviews.
func (c *Collector) Collect(ctx context.Context, target insight.CollectTarget) (insight.Collection, error) {
	if strings.TrimSpace(target.Name) == "" {
		return insight.Collection{}, fmt.Errorf("reddit search needs a restaurant name")
	}

	collector := colly.NewCollector(colly.Async(false), colly.StdlibContext(ctx))
	collector.IgnoreRobotsTxt = false
	collector.SetRequestTimeout(c.cfg.Timeout)
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}

	var (
		raws      []insight.RawReview
		scrapeErr error
	)
	collector.OnHTML("div.search-result-link", func(e *colly.HTMLElement) {
		if len(raws) >= c.cfg.MaxResults {
			return
		}
		raw, ok := parseResult(e, target.Name)
		if !ok {
			return
		}
		raws = append(raws, raw)
	})
	collector.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("reddit search request: %w", err)
	})

	if err := collector.Visit(searchURL(c.cfg.BaseURL, target.Name)); err != nil {
		return insight.Collection{}, fmt.Errorf("reddit search visit: %w", err)
	}
	collector.Wait()
	if scrapeErr != nil {
		return insight.Collection{}, scrapeErr
	}

	c.logger.Debug("reddit mentions collected",
		zap.String("restaurant", target.Name),
		zap.Int("mentions", len(raws)))
	return insight.Collection{Reviews: raws}, nil
}

// parseResult extracts one search hit. Hits that never mention the
// restaurant by name or carry less than a sentence of text are noise
// and get dropped.
func parseResult(e *colly.HTMLElement, restaurantName string) (insight.RawReview, bool) {
	title := strings.TrimSpace(e.ChildText("a.search-title"))
	body := strings.TrimSpace(e.ChildText("div.search-result-body"))
	text := body
	if text == "" {
		text = title
	}
	if len(text) <= 30 {
		return insight.RawReview{}, false
	}
	haystack := strings.ToLower(title + " " + body)
	if !strings.Contains(haystack, strings.ToLower(restaurantName)) {
		return insight.RawReview{}, false
	}

	author := strings.TrimSpace(e.ChildText("span.search-author a"))
	author = strings.TrimPrefix(author, "u/")
	if author == "" {
		author = "deleted"
	}

	return insight.RawReview{
		Text:     text,
		Author:   author,
		DateText: strings.TrimSpace(e.ChildText("span.search-time time")),
	}, true
}

func searchURL(baseURL, name string) string {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("%q restaurant", name))
	query.Set("restrict_sr", "")
	query.Set("sort", "relevance")
	query.Set("t", "all")
	return strings.TrimRight(baseURL, "/") + "/search?" + query.Encode()
}
