package memory

import (
	"context"
	"sync"
	"time"

	"stockcost/internal/core/numerator"
)

// Numerator is a process-local numerator.Generator. Both strategies behave
// as strict since nothing is lost on restart that was not already lost.
type Numerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

var _ numerator.Generator = (*Numerator)(nil)

// NewNumerator creates a numerator with all sequences at zero.
func NewNumerator() *Numerator {
	return &Numerator{counters: make(map[string]int64)}
}

func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	key := cfg.SequenceKey(period)
	n.counters[key]++
	return cfg.Format(period, n.counters[key]), nil
}
