// Package main hosts the vibefinder service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes search, scrape management, health,
//     and metrics endpoints. Search requests are routed through Google Places
//     discovery, enriched from the review cache (or synthesized when the cache
//     is thin), and may trigger a background refresh for stale restaurants.
//   - Controller & queues: scrape jobs are admitted by internal/controller,
//     which dedupes against live jobs per restaurant and enqueues work onto a
//     bounded in-memory queue sized by config.Scrape.QueueDepth.
//   - Scrape lane: workers collect reviews via the headless Chromedp Google
//     Maps collector and the Colly-based Reddit collector, dedupe by text
//     hash, persist them, and hand completed jobs to the analysis lane.
//     Failed attempts retry up to config.Scrape.MaxAttempts with a fixed
//     backoff; the job remains visible as failed while it waits.
//   - Analysis lane: workers score unprocessed reviews with VADER sentiment
//     and mark each review processed exactly once.
//   - Persistence & fanout: restaurants, reviews, and jobs live in Postgres
//     (pgx) or an in-memory store when no DSN is configured. Job lifecycle
//     events are published to Pub/Sub when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap
//     provides structured logging; Prometheus metrics are exported via the
//     telemetry middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: bounded queues + fixed worker pools per lane;
//     headless navigation has its own semaphore inside the maps collector.
//     Shutdown is coordinated via context cancellation from main through the
//     server into the worker lanes.
//   - Run locally: go run ./cmd/vibefinder -config config.yaml (or rely
//     solely on VIBEFINDER_* env overrides).
package main
