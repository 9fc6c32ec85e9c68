// Package api hosts the HTTP server, middleware, and REST handlers for the
// analysis service. Notable routes:
//   - GET /healthz / readyz for Kubernetes health checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/models for the configured model presets.
//   - POST /v1/analyses and /v1/analyses/export to run one analysis and
//     return it as JSON or as a CSV download.
package api
