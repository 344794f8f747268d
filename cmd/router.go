package main

import (
	"net/http"

	"github.com/voxroute/voxroute/internal/handler"
	"github.com/voxroute/voxroute/internal/metrics"
)

func setupRouter(diagnostics *handler.DiagnosticsHandler, metricsCollector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /providers", diagnostics.Providers)
	mux.HandleFunc("GET /health", diagnostics.Health)
	mux.HandleFunc("GET /breakers", diagnostics.Breakers)
	mux.HandleFunc("POST /breakers/{name}/reset", diagnostics.ResetBreaker)
	mux.HandleFunc("GET /metrics", metricsCollector.Handler())

	return mux
}
