// Package logsink is a sink.Sink that writes messages to the log instead of
// delivering them. It backs dry runs.
package logsink

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/sink"
	"github.com/teranos/jobpulse/sym"
)

// Call is one recorded sink invocation.
type Call struct {
	Op      string // "create" or "edit"
	Handle  string
	Payload sink.Payload
}

// Sink logs every call and hands out random handles.
type Sink struct {
	logger *zap.SugaredLogger

	mu    sync.Mutex
	calls []Call
}

// New creates a Sink.
func New(log *zap.SugaredLogger) *Sink {
	return &Sink{logger: logger.OrNop(log).Named("dry-run")}
}

// Create implements sink.Sink.
func (s *Sink) Create(ctx context.Context, payload sink.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := "dry-" + uuid.NewString()
	s.record(Call{Op: "create", Handle: handle, Payload: payload})

	s.logger.Infow("Would create message",
		logger.FieldSymbol, sym.Sink,
		logger.FieldHandle, handle,
		logger.FieldPayload, string(payload))
	return handle, nil
}

// Edit implements sink.Sink.
func (s *Sink) Edit(ctx context.Context, handle string, payload sink.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.record(Call{Op: "edit", Handle: handle, Payload: payload})

	s.logger.Infow("Would edit message",
		logger.FieldSymbol, sym.Sink,
		logger.FieldHandle, handle,
		logger.FieldPayload, string(payload))
	return nil
}

// Calls returns the recorded calls in order.
func (s *Sink) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Sink) record(c Call) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

var _ sink.Sink = (*Sink)(nil)
