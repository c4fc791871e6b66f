package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"chat-core/notify"
	"chat-core/observability"
)

// recordingSink captures every delivered event for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) all() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func (s *recordingSink) names() []string {
	var out []string
	for _, e := range s.all() {
		out = append(out, e.EventName())
	}
	return out
}

// memoryLog is an in-memory MessageLog with optional failure injection.
type memoryLog struct {
	mu       sync.Mutex
	byRoom   map[domain.RoomKey][]domain.Message
	failNext bool
}

func newMemoryLog() *memoryLog {
	return &memoryLog{byRoom: make(map[domain.RoomKey][]domain.Message)}
}

func (l *memoryLog) Append(m domain.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext {
		l.failNext = false
		return fmt.Errorf("disk on fire")
	}
	l.byRoom[m.Room] = append(l.byRoom[m.Room], m)
	return nil
}

func (l *memoryLog) ListByRoom(room domain.RoomKey) ([]domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Message(nil), l.byRoom[room]...), nil
}

func (l *memoryLog) MarkRead(room domain.RoomKey, excludeAuthor domain.Identity) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	changed := 0
	for i, m := range l.byRoom[room] {
		if m.Author == excludeAuthor || m.Read {
			continue
		}
		l.byRoom[room][i].Read = true
		changed++
	}
	return changed, nil
}

var _ contract.MessageLog = (*memoryLog)(nil)

type orchestratorFixture struct {
	orch     *Orchestrator
	registry *Registry
	messages *memoryLog
	jobs     chan notify.Job
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	registry := NewRegistry(nil)
	messages := newMemoryLog()
	jobs := make(chan notify.Job, 16)
	orch := NewOrchestrator(log, registry, messages, nil, jobs, nil, observability.NewMonitoringManager())
	return &orchestratorFixture{orch: orch, registry: registry, messages: messages, jobs: jobs}
}

func (f *orchestratorFixture) loginSink(t *testing.T, conn domain.ConnID, user domain.Identity) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	f.orch.Connect(conn, sink)
	require.NoError(t, f.orch.Login(conn, user))
	return sink
}

func TestOrchestrator_SendBroadcastsToRoomExceptSender(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	// Given three users in the same room
	alice := f.loginSink(t, "c1", "alice")
	bob := f.loginSink(t, "c2", "bob")
	carol := f.loginSink(t, "c3", "carol")
	for _, conn := range []domain.ConnID{"c1", "c2", "c3"} {
		req.NoError(f.orch.JoinRoom(ctx, conn, "general"))
	}

	// When alice sends a message
	req.NoError(f.orch.Send(ctx, "c1", domain.Message{Room: "general", Body: "hello"}))

	// Then bob and carol receive it, alice does not
	req.Empty(alice.all())
	req.Equal([]string{"receive_message"}, bob.names())
	req.Equal([]string{"receive_message"}, carol.names())

	received := bob.all()[0].(event.MessageReceived)
	req.Equal(domain.Identity("alice"), received.Message.Author)
	req.Equal("hello", received.Message.Body)
	req.False(received.Message.Read)
	req.NotZero(received.Message.ID)

	// And a notification job is queued
	req.Len(f.jobs, 1)
}

func TestOrchestrator_SendRequiresLogin(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	sink := &recordingSink{}
	f.orch.Connect("c1", sink)

	err := f.orch.Send(context.Background(), "c1", domain.Message{Room: "general", Body: "hi"})
	req.ErrorIs(err, errors.ErrNotLoggedIn)
}

func TestOrchestrator_SendPersistenceFailureStopsBroadcast(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	f.loginSink(t, "c1", "alice")
	bob := f.loginSink(t, "c2", "bob")
	req.NoError(f.orch.JoinRoom(ctx, "c1", "general"))
	req.NoError(f.orch.JoinRoom(ctx, "c2", "general"))

	// Given the store rejects the next write
	f.messages.failNext = true

	// When alice sends
	err := f.orch.Send(ctx, "c1", domain.Message{Room: "general", Body: "lost"})

	// Then the error is surfaced and nothing reached bob or the queue
	req.ErrorIs(err, errors.ErrPersistence)
	req.Empty(bob.all())
	req.Empty(f.jobs)

	// And the next send goes through
	req.NoError(f.orch.Send(ctx, "c1", domain.Message{Room: "general", Body: "retry"}))
	req.Equal([]string{"receive_message"}, bob.names())
}

func TestOrchestrator_JoinRoomReplaysHistoryOnlyWhenNonEmpty(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	alice := f.loginSink(t, "c1", "alice")

	// When joining an empty room
	req.NoError(f.orch.JoinRoom(ctx, "c1", "quiet"))

	// Then no history event is delivered
	req.Empty(alice.all())

	// Given two persisted messages
	req.NoError(f.orch.JoinRoom(ctx, "c1", "busy"))
	req.NoError(f.orch.Send(ctx, "c1", domain.Message{Room: "busy", Body: "one"}))
	req.NoError(f.orch.Send(ctx, "c1", domain.Message{Room: "busy", Body: "two"}))

	// When bob joins
	bob := f.loginSink(t, "c2", "bob")
	req.NoError(f.orch.JoinRoom(ctx, "c2", "busy"))

	// Then bob gets the full history in order, alice gets nothing
	req.Equal([]string{"load_messages"}, bob.names())
	history := bob.all()[0].(event.HistoryLoaded)
	req.Equal(domain.RoomKey("busy"), history.Room)
	req.Len(history.Messages, 2)
	req.Equal("one", history.Messages[0].Body)
	req.Equal("two", history.Messages[1].Body)
	req.Empty(alice.all())
}

func TestOrchestrator_JoinRoomBeforeAttachFails(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	err := f.orch.JoinRoom(context.Background(), "ghost", "general")
	req.ErrorIs(err, errors.ErrNotLoggedIn)
}

func TestOrchestrator_JoinDirectSubscribesBothSidesSilently(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	alice := f.loginSink(t, "c1", "alice")
	bob := f.loginSink(t, "c2", "bob")

	// When alice opens a direct room with bob
	room, err := f.orch.JoinDirect(ctx, "c1", "bob")
	req.NoError(err)

	// Then the key is deterministic and only alice is confirmed
	req.Equal(domain.RoomKey("alice_bob"), room)
	req.Equal([]string{"private_room_joined"}, alice.names())
	req.Empty(bob.all())

	joined := alice.all()[0].(event.PrivateRoomJoined)
	req.Equal(domain.Identity("bob"), joined.Partner)

	// And bob's connection still receives messages sent to the room
	req.NoError(f.orch.Send(ctx, "c1", domain.Message{Room: room, Body: "psst"}))
	req.Equal([]string{"receive_message"}, bob.names())
}

func TestOrchestrator_JoinDirectIsCommutative(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	f.loginSink(t, "c1", "alice")
	f.loginSink(t, "c2", "bob")

	fromAlice, err := f.orch.JoinDirect(ctx, "c1", "bob")
	req.NoError(err)
	fromBob, err := f.orch.JoinDirect(ctx, "c2", "alice")
	req.NoError(err)

	req.Equal(fromAlice, fromBob)
}

func TestOrchestrator_JoinDirectRejectsInvalidIdentity(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	f.loginSink(t, "c1", "alice")

	_, err := f.orch.JoinDirect(context.Background(), "c1", "bad_name")
	req.ErrorIs(err, errors.ErrInvalidIdentity)
}

func TestOrchestrator_TypingIsEphemeral(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	alice := f.loginSink(t, "c1", "alice")
	bob := f.loginSink(t, "c2", "bob")
	req.NoError(f.orch.JoinRoom(ctx, "c1", "general"))
	req.NoError(f.orch.JoinRoom(ctx, "c2", "general"))

	// When alice types
	req.NoError(f.orch.Typing(ctx, "c1", "general"))

	// Then bob sees the notice, alice does not, and nothing was persisted
	req.Equal([]string{"typing"}, bob.names())
	req.Empty(alice.all())
	stored, err := f.messages.ListByRoom("general")
	req.NoError(err)
	req.Empty(stored)
}

func TestOrchestrator_ReadMessagesBroadcastsOnlyOnChange(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	alice := f.loginSink(t, "c1", "alice")
	bob := f.loginSink(t, "c2", "bob")
	req.NoError(f.orch.JoinRoom(ctx, "c1", "general"))
	req.NoError(f.orch.JoinRoom(ctx, "c2", "general"))

	req.NoError(f.orch.Send(ctx, "c1", domain.Message{Room: "general", Body: "unread"}))

	// When bob reads the room
	req.NoError(f.orch.ReadMessages(ctx, "c2", "general"))

	// Then the whole room hears it, the reader included
	req.Contains(alice.names(), "messages_read")
	req.Contains(bob.names(), "messages_read")

	// When bob reads again with nothing new
	before := len(alice.all())
	req.NoError(f.orch.ReadMessages(ctx, "c2", "general"))

	// Then the second receipt is silent
	req.Len(alice.all(), before)
}

func TestOrchestrator_ReadMessagesSkipsOwnMessages(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	alice := f.loginSink(t, "c1", "alice")
	req.NoError(f.orch.JoinRoom(ctx, "c1", "solo"))
	req.NoError(f.orch.Send(ctx, "c1", domain.Message{Room: "solo", Body: "note to self"}))

	// When the author reads their own room
	req.NoError(f.orch.ReadMessages(ctx, "c1", "solo"))

	// Then nothing changed and nothing was broadcast
	req.NotContains(alice.names(), "messages_read")
}

func TestOrchestrator_RelayGroupAddedSubscribesOnlineMembers(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	alice := f.loginSink(t, "c1", "alice")
	bob := f.loginSink(t, "c2", "bob")

	group := domain.Group{
		Room:    "group:abc",
		Name:    "hikers",
		Members: []domain.Identity{"alice", "bob", "offline"},
	}

	// When alice creates the group
	f.orch.RelayGroupAdded(ctx, group, "alice")

	// Then bob is notified and subscribed; the creator is subscribed silently
	req.Equal([]string{"group_added"}, bob.names())
	added := bob.all()[0].(event.GroupAdded)
	req.Equal("hikers", added.GroupName)
	req.Empty(alice.all())

	// And a message from bob reaches alice through the group room
	req.NoError(f.orch.Send(ctx, "c2", domain.Message{Room: "group:abc", Body: "hi all"}))
	req.Equal([]string{"receive_message"}, alice.names())
}

func TestOrchestrator_RelayFriendRequestReachesAllDevices(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	// Given bob is online on two devices
	phone := f.loginSink(t, "c1", "bob")
	laptop := f.loginSink(t, "c2", "bob")

	// When alice's request is relayed
	f.orch.RelayFriendRequest(ctx, "alice", "bob")

	// Then both devices hear it
	req.Equal([]string{"friend_request_received"}, phone.names())
	req.Equal([]string{"friend_request_received"}, laptop.names())
}
