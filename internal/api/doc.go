package api

// Package api exposes the download service over HTTP with
// github.com/go-chi/chi/v5: item management, starting and cancelling
// downloads, a server-sent event stream of item changes, health and
// Prometheus metrics.
