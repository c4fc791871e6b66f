package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-core/domain/event"
	"chat-core/errors"
)

func TestConnSink_DropsWhenFull(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(2)
	ctx := context.Background()

	// Given a full buffer
	req.NoError(s.Consume(ctx, event.TypingNotice{Room: "general", User: "alice"}))
	req.NoError(s.Consume(ctx, event.TypingNotice{Room: "general", User: "alice"}))

	// When a third event arrives
	req.NoError(s.Consume(ctx, event.TypingNotice{Room: "general", User: "bob"}))

	// Then it was dropped instead of blocking
	req.Len(s.Events, 2)
	first := <-s.Events
	req.Equal(domainUser(first), "alice")
}

func domainUser(e event.DomainEvent) string {
	if n, ok := e.(event.TypingNotice); ok {
		return string(n.User)
	}
	return ""
}

func TestConnSink_CanceledContextWins(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Consume(ctx, event.MessagesRead{Room: "general"})
	req.ErrorIs(err, context.Canceled)
}

func TestConnSink_ConsumeAfterCloseDoesNotPanic(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(4)
	ctx := context.Background()

	// Given a sink torn down by its connection
	s.Close()

	// When a broadcaster holding a stale snapshot still delivers
	err := s.Consume(ctx, event.MessagesRead{Room: "general"})

	// Then the delivery is refused instead of panicking
	req.ErrorIs(err, errors.ErrSinkClosed)

	// And a second close is a no-op
	s.Close()
}

func TestConnSink_CloseRacesWithBroadcast(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(1)
	ctx := context.Background()

	// Given a broadcaster hammering the sink from another goroutine
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		for i := 0; i < 1000; i++ {
			err := s.Consume(ctx, event.TypingNotice{Room: "general", User: "alice"})
			if err != nil && err != errors.ErrSinkClosed {
				errs <- err
				return
			}
		}
	}()

	// When the owning connection closes mid-flight
	s.Close()

	// Then the broadcaster finishes without a send-on-closed-channel panic
	// and without any unexpected error
	req.NoError(<-errs)
}
