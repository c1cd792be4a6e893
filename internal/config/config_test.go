package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 4, cfg.Scrape.ScrapeWorkers)
	require.Equal(t, 2, cfg.Scrape.AnalysisWorkers)
	require.Equal(t, 100, cfg.Scrape.MaxReviews)
	require.Equal(t, 3, cfg.Scrape.MaxAttempts)
	require.Equal(t, 7*24*time.Hour, cfg.FreshnessMaxAge())
	require.Equal(t, 60*time.Second, cfg.RetryBackoff())
	require.Equal(t, 25*time.Minute, cfg.SoftBudget())
	require.Equal(t, 30*time.Minute, cfg.HardBudget())
	require.True(t, cfg.Sources.Maps.Enabled)
	require.Equal(t, "https://old.reddit.com", cfg.Sources.Reddit.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "no scrape workers",
			mutate:  func(c *Config) { c.Scrape.ScrapeWorkers = 0 },
			wantErr: "scrape_workers",
		},
		{
			name:    "no analysis workers",
			mutate:  func(c *Config) { c.Scrape.AnalysisWorkers = 0 },
			wantErr: "analysis_workers",
		},
		{
			name:    "hard budget below soft budget",
			mutate:  func(c *Config) { c.Scrape.HardBudgetMin = 10 },
			wantErr: "hard_budget_minutes",
		},
		{
			name:    "auth enabled without key",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: "auth.api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
