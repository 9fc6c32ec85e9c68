// Package main hosts the webanalyst entrypoint.
//
// Architecture overview:
//   - Pipeline: internal/analysis.Pipeline resolves the host, fetches the page through the Colly fetcher with a
//     fixed retry policy, extracts visible text with goquery, asks an OpenAI-compatible endpoint (Groq by default)
//     for an analysis, cleans the reply, and packages one record.
//   - Front ends: `serve` exposes the pipeline over the chi HTTP API in internal/api; `analyze` runs it once from
//     the terminal and writes the CSV export. Both render failures with analysis.Explain.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Operational notes:
//   - The completion API key is supplied per request (X-LLM-API-Key header or a masked prompt) and is never stored
//     or logged.
//   - The process reacts to SIGINT/SIGTERM; `serve` drains in-flight requests before exiting.
//
// Quick checklist:
//   - Configure env vars: WEBANALYST_SERVER_PORT, WEBANALYST_FETCH_TIMEOUT_SECONDS, WEBANALYST_FETCH_MAX_ATTEMPTS,
//     WEBANALYST_LLM_BASE_URL, WEBANALYST_EXPORT_TIMEZONE, WEBANALYST_LOGGING_DEVELOPMENT.
//   - Run locally: go run ./cmd/webanalyst analyze --url example.com --prompt "summarize the main topic".
package main
