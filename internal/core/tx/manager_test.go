package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainManager struct{ calls int }

func (m *plainManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type readOnlyManager struct {
	plainManager
	readOnly int
}

func (m *readOnlyManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readOnly++
	return fn(ctx)
}

func TestReadOnly(t *testing.T) {
	t.Run("uses read-only transaction when supported", func(t *testing.T) {
		m := &readOnlyManager{}
		ran := false
		require.NoError(t, ReadOnly(context.Background(), m, func(ctx context.Context) error {
			ran = true
			return nil
		}))
		assert.True(t, ran)
		assert.Equal(t, 1, m.readOnly)
		assert.Zero(t, m.calls)
	})

	t.Run("falls back to a direct call", func(t *testing.T) {
		m := &plainManager{}
		ran := false
		require.NoError(t, ReadOnly(context.Background(), m, func(ctx context.Context) error {
			ran = true
			return nil
		}))
		assert.True(t, ran)
		assert.Zero(t, m.calls)
	})
}
