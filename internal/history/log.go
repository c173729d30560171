// Package history keeps a short, newest-first log of user-visible operations.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/habitvault/habitvault-backend/internal/model"
)

// DefaultCapacity bounds the in-memory log.
const DefaultCapacity = 10

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// Sink receives every recorded operation, typically to persist it to the audit
// warehouse. A *batcher.Batcher[model.Operation] satisfies it.
type Sink interface {
	Add(ctx context.Context, op model.Operation) error
}

// Log holds a bounded, newest-first operation history. Safe for concurrent use.
type Log struct {
	logger   *zap.Logger
	capacity int
	sink     Sink

	mu  sync.Mutex
	ops []model.Operation
}

// Option customizes a Log.
type Option func(*Log)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(capacity int) Option {
	return func(l *Log) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// WithSink mirrors every operation to the sink. Sink failures are logged;
// the in-memory log is updated regardless.
func WithSink(sink Sink) Option {
	return func(l *Log) {
		l.sink = sink
	}
}

// NewLog constructs an empty log.
func NewLog(logger *zap.Logger, opts ...Option) (*Log, error) {
	if logger == nil {
		return nil, errors.New("history: logger is required")
	}
	l := &Log{
		logger:   logger.Named("history"),
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record prepends an operation, trimming the log to capacity.
func (l *Log) Record(ctx context.Context, description string) {
	op := model.Operation{At: time.Now(), Description: description}

	l.mu.Lock()
	l.ops = append([]model.Operation{op}, l.ops...)
	if len(l.ops) > l.capacity {
		l.ops = l.ops[:l.capacity]
	}
	l.mu.Unlock()

	if l.sink == nil {
		return
	}
	if err := l.sink.Add(ctx, op); err != nil {
		l.logger.Warn("operation not mirrored to sink",
			zap.String("description", description),
			zap.Error(err))
	}
}

// List returns a copy of the log, newest first.
func (l *Log) List() []model.Operation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Operation, len(l.ops))
	copy(out, l.ops)
	return out
}

// Len reports the number of retained operations.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.ops)
}
