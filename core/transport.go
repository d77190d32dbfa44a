package core

import (
	"context"
	"encoding/json"
)

// Transport is any service that can exchange JSON with the backend.
// Implementations perform exactly one attempt per call and never retry.
type Transport interface {
	// Request sends body (if not nil) JSON-encoded to path, relative to the backend base URL.
	// It fails with ErrNetworkUnavailable, ErrTimeout, *HTTPError or *ParseError.
	Request(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error)
}

// ConnectionInfo describes the configured backend, for diagnostics.
type ConnectionInfo struct {
	BaseURL     string `json:"baseUrl"`
	Host        string `json:"host"`
	Mode        string `json:"mode"`
	OfflineDemo bool   `json:"offlineDemo"`
}
