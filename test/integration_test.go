package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/mocks"
	"chat-core/notify"
	"chat-core/observability"
	"chat-core/repositories"
	"chat-core/runtime"
	"chat-core/runtime/workers"
	"chat-core/sink"
)

// End-to-end path through the real engine: two connections over real
// BadgerDB storage, a direct room, one message. Only the push transport is
// mocked; everything between the orchestrator and the store is the real
// thing.
func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	index, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)

	messageRepository, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	userRepository := repositories.NewUserRepository(db, index, log)
	groupRepository := repositories.NewGroupRepository(db, log)

	req.NoError(userRepository.Create(domain.Account{
		Username: "alice", Email: "alice@example.com",
	}))
	req.NoError(userRepository.Create(domain.Account{
		Username: "bob", Email: "bob@example.com", PushToken: "expo-bob-device",
	}))

	// 1. Create channel to wait for a signal at the end of process
	done := make(chan struct{})
	ctrl := gomock.NewController(t)
	mockPush := mocks.NewMockPushService(ctrl)
	mockPush.EXPECT().
		SendBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, payloads []domain.PushPayload) error {
			req.Len(payloads, 1)
			req.Equal("expo-bob-device", payloads[0].To)
			close(done) // Signaling the fan-out has reached the transport
			return nil
		}).
		Times(1)

	refresh := make(chan struct{}, 1)
	jobs := make(chan notify.Job, 8)
	monitoring := observability.NewMonitoringManager()
	registry := runtime.NewRegistry(refresh)
	orchestrator := runtime.NewOrchestrator(
		log, registry, messageRepository, nil, jobs, nil, monitoring,
	)
	dispatcher := notify.NewDispatcher(
		log, registry, userRepository, groupRepository, mockPush,
		10, time.Second, false, monitoring,
	)

	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	supervisor.Add(workers.NewNotifierWorker(log, dispatcher, jobs))
	go supervisor.Run(ctx)

	// Clean everything at the end of the test
	t.Cleanup(func() {
		supervisor.Stop()
		_ = messageRepository.Close()
		_ = index.Close()
		_ = db.Close()
	})

	// When both users connect, log in and alice opens the direct room
	aliceConn := domain.ConnID(uuid.NewString())
	bobConn := domain.ConnID(uuid.NewString())
	aliceSink := sink.NewConnSink(8)
	bobSink := sink.NewConnSink(8)

	orchestrator.Connect(aliceConn, aliceSink)
	orchestrator.Connect(bobConn, bobSink)
	req.NoError(orchestrator.Login(aliceConn, "alice"))
	req.NoError(orchestrator.Login(bobConn, "bob"))

	room, err := orchestrator.JoinDirect(ctx, aliceConn, "bob")
	req.NoError(err)
	req.Equal(domain.RoomKey("alice_bob"), room)

	// And alice posts a message
	body := "this message will self destruct in 5 seconds"
	req.NoError(orchestrator.Send(ctx, aliceConn, domain.Message{
		Room: room,
		Body: body,
	}))

	// Then bob's connection receives it live
	select {
	case ev := <-bobSink.Events:
		received, ok := ev.(event.MessageReceived)
		req.True(ok, "expected receive_message, got %s", ev.EventName())
		req.Equal(body, received.Message.Body)
		req.Equal(domain.Identity("alice"), received.Message.Author)
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: message never reached bob's sink")
	}

	// And the message is durable
	history, err := messageRepository.ListByRoom(room)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(body, history[0].Body)

	// And wait time for channels & goroutines
	select {
	case <-done:
		// Then the notification reached the push transport
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: notification never reached the push transport")
	}
}
