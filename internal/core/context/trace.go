// Package context carries request-scoped tracing data through service calls.
package context

import (
	"context"
)

// TraceContext identifies the request a unit of work belongs to.
type TraceContext struct {
	TraceID   string
	RequestID string
	// Operation is the logical operation name, e.g. "POST /api/v1/document/receiving".
	Operation string
}

// Fields returns the non-empty ids as logger key-value pairs.
func (t *TraceContext) Fields() []any {
	if t == nil {
		return nil
	}
	fields := make([]any, 0, 6)
	if t.TraceID != "" {
		fields = append(fields, "trace_id", t.TraceID)
	}
	if t.RequestID != "" {
		fields = append(fields, "request_id", t.RequestID)
	}
	if t.Operation != "" {
		fields = append(fields, "operation", t.Operation)
	}
	return fields
}

type traceKey struct{}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, trace)
}

// TraceFrom returns the TraceContext of ctx, or nil.
func TraceFrom(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceKey{}).(*TraceContext)
	return t
}
