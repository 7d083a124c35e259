package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stockcost/internal/core/id"
	"stockcost/internal/domain/documents/receiving"
	"stockcost/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// MaxOutboxRetries before a message is parked as failed.
const MaxOutboxRetries = 5

// OutboxMessage is a row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher writes receiving events to sys_outbox inside the business
// transaction. It implements receiving.EventPublisher.
type OutboxPublisher struct {
	txManager *TxManager
}

var _ receiving.EventPublisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish inserts the event. MUST be called inside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, event receiving.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.New(), receiving.AggregateType, event.VoucherID, event.Type, payload, OutboxStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler processes outbox messages.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay delivers pending messages to a handler.
type OutboxRelay struct {
	txManager *TxManager
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{txManager: txManager, batchSize: batchSize, handler: handler}
}

// ProcessBatch claims up to batchSize due messages and hands them to the
// handler in creation order. Claimed rows stay locked until the batch
// finishes, so several relays can run side by side.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txManager.GetQuerier(ctx)

		var messages []*OutboxMessage
		err := pgxscan.Select(ctx, q, &messages, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		n, err := r.deliver(ctx, q, messages)
		if err != nil {
			return err
		}
		processed = n
		return nil
	})
	return processed, err
}

// outboxExecer is the part of Querier the relay writes through.
type outboxExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// deliver hands messages to the handler one by one. A handler failure is
// recorded on the message and the batch moves on; a failed status write
// aborts the transaction, so the batch stops there.
func (r *OutboxRelay) deliver(ctx context.Context, q outboxExecer, messages []*OutboxMessage) (int, error) {
	processed := 0
	for _, msg := range messages {
		handlerErr, err := r.processMessage(ctx, q, msg)
		if err != nil {
			return processed, fmt.Errorf("outbox message %s: %w", msg.ID, err)
		}
		if handlerErr != nil {
			logger.Warn(ctx, "outbox message failed",
				"id", msg.ID,
				"event_type", msg.EventType,
				"retry", msg.RetryCount+1,
				"error", handlerErr)
			continue
		}
		processed++
	}
	return processed, nil
}

// processMessage returns the handler error separately from the error of
// writing the outcome back to sys_outbox.
func (r *OutboxRelay) processMessage(ctx context.Context, q outboxExecer, msg *OutboxMessage) (handlerErr, err error) {
	if handlerErr = r.handler.Handle(ctx, msg); handlerErr != nil {
		// linear backoff, one more minute per attempt
		nextRetry := time.Now().UTC().Add(time.Duration(msg.RetryCount+1) * time.Minute)
		status := OutboxStatusPending
		if msg.RetryCount+1 >= MaxOutboxRetries {
			status = OutboxStatusFailed
		}
		if _, err := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = $3
			WHERE id = $4
		`, handlerErr.Error(), nextRetry, status, msg.ID); err != nil {
			return handlerErr, fmt.Errorf("record failure: %w", err)
		}
		return handlerErr, nil
	}

	if _, err := q.Exec(ctx, `
		UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3
	`, OutboxStatusPublished, time.Now().UTC(), msg.ID); err != nil {
		return nil, fmt.Errorf("mark published: %w", err)
	}
	return nil, nil
}

// MoveToDLQ moves failed messages to sys_outbox_dlq.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1
			RETURNING *
		)
		INSERT INTO sys_outbox_dlq
		SELECT *, NOW() AS failed_at, last_error AS failure_reason FROM moved
	`, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DecodeReceivingEvent unmarshals the payload of a receiving voucher message.
func DecodeReceivingEvent(msg *OutboxMessage) (receiving.Event, error) {
	var ev receiving.Event
	if msg.AggregateType != receiving.AggregateType {
		return ev, fmt.Errorf("unexpected aggregate type %q", msg.AggregateType)
	}
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("decode %s payload: %w", msg.EventType, err)
	}
	return ev, nil
}
