// Package idempotency defines the contract of the idempotency key store used
// by the HTTP layer to replay responses of repeated mutating requests.
package idempotency

import (
	"context"
	"net/http"
)

// Status of a stored key.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Replay is a cached HTTP response.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey claims key for a request. It returns (nil, nil) when the
	// caller owns the key, a Replay when the request already completed, and an
	// IDEMPOTENCY_CONFLICT AppError when the key is in flight or was used for
	// a different request.
	AcquireKey(ctx context.Context, key, operation, requestHash string) (*Replay, error)

	// CompleteKey stores a successful response.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores an error response.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}

// NormalizeReplay fills defaults for responses stored without status or content type.
func NormalizeReplay(r *Replay) *Replay {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.ContentType == "" && r.StatusCode != http.StatusNoContent {
		r.ContentType = "application/json"
	}
	return r
}
