package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcost/internal/core/id"
	"stockcost/internal/domain/documents/receiving"
	"stockcost/pkg/logger"
)

type execCall struct {
	sql  string
	args []any
}

// fakeExecer fails the statement at failAt (1-based); zero never fails.
type fakeExecer struct {
	calls  []execCall
	failAt int
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if len(f.calls) == f.failAt {
		return pgconn.CommandTag{}, errors.New("current transaction is aborted")
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// fakeHandler fails messages listed in fail.
type fakeHandler struct {
	fail map[id.ID]bool
	seen []id.ID
}

func (h *fakeHandler) Handle(_ context.Context, msg *OutboxMessage) error {
	h.seen = append(h.seen, msg.ID)
	if h.fail[msg.ID] {
		return errors.New("payables unavailable")
	}
	return nil
}

func outboxMessages(n int) []*OutboxMessage {
	out := make([]*OutboxMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &OutboxMessage{ID: id.New(), EventType: receiving.EventVoucherPosted, Status: OutboxStatusPending})
	}
	return out
}

func testCtx() context.Context {
	return logger.WithLogger(context.Background(), logger.Nop())
}

func TestDeliver_HandlerFailureIsRecordedAndBatchContinues(t *testing.T) {
	msgs := outboxMessages(2)
	h := &fakeHandler{fail: map[id.ID]bool{msgs[0].ID: true}}
	q := &fakeExecer{}
	r := NewOutboxRelay(nil, 10, h)

	n, err := r.deliver(testCtx(), q, msgs)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, []id.ID{msgs[0].ID, msgs[1].ID}, h.seen)
	require.Len(t, q.calls, 2)
	assert.Contains(t, q.calls[0].sql, "retry_count = retry_count + 1")
	assert.Equal(t, "payables unavailable", q.calls[0].args[0])
	assert.Equal(t, OutboxStatusPending, q.calls[0].args[2])
	assert.Contains(t, q.calls[1].sql, "published_at")
}

func TestDeliver_LastRetryParksMessage(t *testing.T) {
	msgs := outboxMessages(1)
	msgs[0].RetryCount = MaxOutboxRetries - 1
	q := &fakeExecer{}
	r := NewOutboxRelay(nil, 10, &fakeHandler{fail: map[id.ID]bool{msgs[0].ID: true}})

	n, err := r.deliver(testCtx(), q, msgs)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, q.calls, 1)
	assert.Equal(t, OutboxStatusFailed, q.calls[0].args[2])
}

func TestDeliver_FailedBackoffWriteStopsBatch(t *testing.T) {
	msgs := outboxMessages(3)
	h := &fakeHandler{fail: map[id.ID]bool{msgs[0].ID: true}}
	q := &fakeExecer{failAt: 1}
	r := NewOutboxRelay(nil, 10, h)

	_, err := r.deliver(testCtx(), q, msgs)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "record failure")
	assert.Contains(t, err.Error(), msgs[0].ID.String())
	assert.NotContains(t, err.Error(), "payables unavailable")
	assert.Equal(t, []id.ID{msgs[0].ID}, h.seen)
	assert.Len(t, q.calls, 1)
}

func TestDeliver_FailedPublishWriteStopsBatch(t *testing.T) {
	msgs := outboxMessages(3)
	h := &fakeHandler{}
	q := &fakeExecer{failAt: 2}
	r := NewOutboxRelay(nil, 10, h)

	_, err := r.deliver(testCtx(), q, msgs)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "mark published")
	assert.Equal(t, []id.ID{msgs[0].ID, msgs[1].ID}, h.seen)
	assert.Len(t, q.calls, 2)
}
