package sink

import (
	"context"
	"sync"

	"chat-core/domain/event"
	"chat-core/errors"
)

// ConnSink bridges the engine's broadcast path and one connection's write
// pump. Consume never blocks on a slow client: when the buffer is full the
// event is dropped and the broadcast loop moves on.
//
// Broadcasters may hold a sink snapshotted before the owning connection
// disconnected, so Consume and Close race. The mutex keeps the channel send
// and the close mutually exclusive; a consume after close returns
// ErrSinkClosed instead of panicking.
type ConnSink struct {
	mu     sync.RWMutex
	closed bool
	Events chan event.DomainEvent
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the broadcast loop. It hands the event to the
// connection's channel; the write pump takes it from there.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.ErrSinkClosed
	}

	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Backpressure: the client is not draining fast enough.
		return nil
	}
}

// Close releases the write pump; only the owning connection calls it.
// Idempotent.
func (s *ConnSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.Events)
}
