package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "mimir/pkg/platform/audit"
)

// Publisher fans audit events into a sink, synchronously by default or
// through a bounded buffer when configured async. Audit delivery is best
// effort: a sink failure is logged, never propagated to the write path.
type Publisher struct {
	sink   audit.Sink
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup

	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async delivery through a
// buffer of the given size. When the buffer is full new events are
// dropped rather than blocking the caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. In async mode Emit never blocks; in sync mode
// sink failures are swallowed after logging.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.buffer != nil {
		select {
		case p.buffer <- event:
		default:
			p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		}
		return nil
	}
	if err := p.sink.Append(ctx, event); err != nil {
		p.logger.Error("audit append failed", "action", event.Action, "error", err)
	}
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.sink.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed", "action", event.Action, "error", err)
		}
	}
}

// Close drains any buffered events and closes the sink.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
		if err := p.sink.Close(); err != nil {
			p.logger.Error("audit sink close failed", "error", err)
		}
	})
}
