package logsink

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCreateAndEdit(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(zap.New(core).Sugar())
	ctx := context.Background()

	h1, err := s.Create(ctx, []byte(`{"content":"a"}`))
	require.NoError(t, err)
	h2, err := s.Create(ctx, []byte(`{"content":"b"}`))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.True(t, strings.HasPrefix(h1, "dry-"))

	require.NoError(t, s.Edit(ctx, h1, []byte(`{"embeds":[]}`)))

	calls := s.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "create", calls[0].Op)
	assert.Equal(t, "edit", calls[2].Op)
	assert.Equal(t, h1, calls[2].Handle)

	assert.Equal(t, 2, logs.FilterMessage("Would create message").Len())
	assert.Equal(t, 1, logs.FilterMessage("Would edit message").Len())
}

func TestCancelledContext(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Edit(ctx, "h", []byte(`{}`)), context.Canceled)
	assert.Empty(t, s.Calls())
}
