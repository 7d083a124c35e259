package memory

import (
	"context"
	"slices"

	"stockcost/internal/domain/documents/receiving"
)

// EventLog implements receiving.EventPublisher. Events are part of the
// transaction and disappear on rollback.
type EventLog struct{ s *Store }

var _ receiving.EventPublisher = (*EventLog)(nil)

func (l *EventLog) Publish(ctx context.Context, event receiving.Event) error {
	return l.s.do(ctx, func(st *state) error {
		st.events = append(st.events, event)
		return nil
	})
}

// All returns every published event in order.
func (l *EventLog) All(ctx context.Context) []receiving.Event {
	var out []receiving.Event
	_ = l.s.do(ctx, func(st *state) error {
		out = slices.Clone(st.events)
		return nil
	})
	return out
}
