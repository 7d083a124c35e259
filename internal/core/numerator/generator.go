// Package numerator defines document numbering: the sequence key of a
// document type and the generator contract. pkg/numerator backs it with
// sys_sequences, storage/memory with counters.
package numerator

import (
	"context"
	"time"
)

// Generator hands out document numbers such as PO-2026-00001.
type Generator interface {
	// GetNextNumber returns the next number of cfg's sequence for the year
	// of period. Numbers are never reused, even when the caller rolls back.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
}
