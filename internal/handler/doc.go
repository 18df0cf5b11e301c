// Package handler implements the HTTP API.
//
// NewRouter mounts account routes under /api/auth, the authenticated network
// routes under /api, the SSE feed at /events and the ops endpoints /health
// and /metrics. Every network route acts on the owner taken from the bearer
// token; see Authenticate.
//
// # Response Format
//
// Success responses return JSON with 200 or 201 (204 for DELETE).
// Error responses return JSON with {error, details}. Details are omitted
// for storage failures, which are logged instead.
package handler
