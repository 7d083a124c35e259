package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

type idempotencyEntry struct {
	operation   string
	requestHash string
	status      idempotency.Status
	replay      idempotency.Replay
	updatedAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore keeps idempotency keys in memory. Keys live outside
// business transactions, so it has its own lock.
type IdempotencyStore struct {
	mu         sync.Mutex
	entries    map[string]*idempotencyEntry
	ttl        time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewIdempotencyStore creates a store whose keys expire after ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		entries:    make(map[string]*idempotencyEntry),
		ttl:        ttl,
		staleAfter: time.Minute,
		now:        time.Now,
	}
}

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		s.entries[key] = &idempotencyEntry{
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			updatedAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if e.operation != operation || e.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", e.operation).
			WithDetail("request_operation", operation)
	}

	switch e.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := e.replay
		return idempotency.NormalizeReplay(&replay), nil
	}

	if now.Sub(e.updatedAt) <= s.staleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	e.updatedAt = now
	return nil, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	e.status = status
	e.replay = idempotency.Replay{StatusCode: statusCode, ContentType: contentType, Body: body}
	e.updatedAt = s.now()
	return nil
}

// CleanupExpired drops expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}
