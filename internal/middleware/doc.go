// Package middleware provides HTTP middleware for genstudio.
//
// It includes:
//   - Access logging in W3C extended format, naming the generation a request touched
//   - Prometheus request metrics labelled by route template
//   - gzip compression for JSON responses
//
// Every wrapped ResponseWriter implements http.Flusher so progress event
// streams can be served behind the full chain.
package middleware
