// Package maps collects Google Maps reviews with a headless browser.
// Maps renders reviews client-side, so a plain HTTP fetch returns an
// empty shell; chromedp drives a real Chrome to load and scroll the
// review feed before extraction.
package maps

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/insight"
)

// Config controls the behavior of the maps collector.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	ScrollRounds      int
}

// Collector implements insight.SourceCollector for Google Maps. It is
// the primary source: its failure fails the scrape attempt.
type Collector struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates a maps collector backed by a shared Chrome allocator.
func New(cfg Config, logger *zap.Logger) (*Collector, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.ScrollRounds <= 0 {
		cfg.ScrollRounds = 8
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Collector{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context.
func (c *Collector) Close() {
	c.allocCancel()
}

// Name reports the source tag written on persisted reviews.
func (c *Collector) Name() insight.ReviewSource { return insight.SourceGoogleMaps }

// Primary reports that this source is fatal-on-failure.
func (c *Collector) Primary() bool { return true }

// Collect navigates to the place page, opens and scrolls the review
// feed, and extracts the profile plus visible reviews.
func (c *Collector) Collect(ctx context.Context, target insight.CollectTarget) (insight.Collection, error) {
	if err := c.acquire(ctx); err != nil {
		return insight.Collection{}, err
	}
	defer c.release()

	taskCtx, taskCancel := chromedp.NewContext(c.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, c.cfg.NavigationTimeout)
	defer cancel()

	// Stop the page when the caller's deadline fires first.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	var data pageData
	actions := []chromedp.Action{
		c.networkSetupAction(),
		chromedp.Navigate(placeURL(target.PlaceID)),
		chromedp.WaitReady(`div[role='main']`, chromedp.ByQuery),
		chromedp.Sleep(2 * time.Second),
		chromedp.Evaluate(openReviewsScript, nil),
		chromedp.Sleep(2 * time.Second),
	}
	for i := 0; i < c.cfg.ScrollRounds; i++ {
		actions = append(actions,
			chromedp.Evaluate(scrollFeedScript, nil),
			chromedp.Sleep(1500*time.Millisecond),
		)
	}
	actions = append(actions, chromedp.Evaluate(extractScript, &data))

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return insight.Collection{}, fmt.Errorf("maps navigation: %w", err)
	}

	collection := toCollection(data, target.Limit)
	c.logger.Debug("maps collection extracted",
		zap.String("place_id", target.PlaceID),
		zap.Int("reviews", len(collection.Reviews)))
	return collection, nil
}

func (c *Collector) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if c.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(c.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (c *Collector) acquire(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (c *Collector) release() {
	if c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}

func placeURL(placeID string) string {
	return "https://www.google.com/maps/search/?api=1&query=Google&query_place_id=" + url.QueryEscape(placeID)
}
