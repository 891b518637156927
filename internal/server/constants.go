// Package server exposes the daemon's HTTP and WebSocket surface.
package server

import "time"

// Server configuration constants
const (
	// Default tail length for /api/logs when the request does not set one
	DefaultLogLines = 300

	// Sliding-window rate limit applied to mutating endpoints
	RateLimitRequests = 30
	RateLimitWindow   = time.Second
)
