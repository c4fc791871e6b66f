package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"chat-core/moderation"
	"chat-core/notify"
	"chat-core/observability"
)

// Orchestrator ties the registry, the message log, and the notification
// queue together. Every method runs in the calling connection's goroutine:
// persistence and broadcast are synchronous, which is what keeps one
// sender's messages ordered. Only the push fan-out leaves this path, via
// the jobs channel.
type Orchestrator struct {
	log        *slog.Logger
	registry   contract.IRegistry
	messages   contract.MessageLog
	validate   *validator.Validate
	moderator  *moderation.Moderator
	jobs       chan<- notify.Job
	telemetry  chan<- event.Event
	monitoring *observability.MonitoringManager
}

func NewOrchestrator(
	log *slog.Logger,
	registry contract.IRegistry,
	messages contract.MessageLog,
	moderator *moderation.Moderator,
	jobs chan<- notify.Job,
	telemetry chan<- event.Event,
	monitoring *observability.MonitoringManager,
) *Orchestrator {
	return &Orchestrator{
		log:        log,
		registry:   registry,
		messages:   messages,
		validate:   validator.New(),
		moderator:  moderator,
		jobs:       jobs,
		telemetry:  telemetry,
		monitoring: monitoring,
	}
}

// Connect wires a fresh transport connection to its delivery sink. The
// connection has no identity yet; nothing is broadcast.
func (o *Orchestrator) Connect(conn domain.ConnID, sink contract.EventSink) {
	o.registry.Attach(conn, sink)
	o.log.Debug("Connection attached", "conn", conn)
}

// Disconnect removes the connection. Presence refreshes only if the
// connection had logged in.
func (o *Orchestrator) Disconnect(conn domain.ConnID) {
	o.registry.Unregister(conn)
	o.log.Debug("Connection detached", "conn", conn)
}

// Login binds an identity to the connection. A second login on the same
// connection overwrites the first.
func (o *Orchestrator) Login(conn domain.ConnID, identity domain.Identity) error {
	if !domain.ValidIdentity(identity) {
		return errors.ErrInvalidIdentity
	}
	o.registry.Register(conn, identity)
	o.log.Info("User logged in", "conn", conn, "user", identity)
	return nil
}

// JoinRoom subscribes the connection to a named room and replays the room's
// history to that connection only. An empty history sends nothing.
func (o *Orchestrator) JoinRoom(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error {
	if !o.registry.JoinRoom(conn, room) {
		return errors.ErrNotLoggedIn
	}

	history, err := o.messages.ListByRoom(room)
	if err != nil {
		return fmt.Errorf("loading history for %s: %w", room, err)
	}
	if len(history) == 0 {
		return nil
	}

	sink, ok := o.registry.SinkOf(conn)
	if !ok {
		return nil
	}
	return sink.Consume(ctx, event.HistoryLoaded{Room: room, Messages: history})
}

// JoinDirect resolves the deterministic two-party room for caller and
// target, subscribes the caller's connection plus every live connection of
// the target, and confirms to the caller only. The target learns about the
// room when a message arrives, not before.
func (o *Orchestrator) JoinDirect(ctx context.Context, conn domain.ConnID, target domain.Identity) (domain.RoomKey, error) {
	caller, ok := o.registry.IdentityOf(conn)
	if !ok {
		return "", errors.ErrNotLoggedIn
	}

	room, err := domain.DirectRoomKey(caller, target)
	if err != nil {
		return "", err
	}

	o.registry.JoinRoom(conn, room)
	for _, tc := range o.registry.ConnectionsFor(target) {
		o.registry.JoinRoom(tc, room)
	}

	history, err := o.messages.ListByRoom(room)
	if err != nil {
		return "", fmt.Errorf("loading history for %s: %w", room, err)
	}

	sink, ok := o.registry.SinkOf(conn)
	if !ok {
		return room, nil
	}
	if len(history) > 0 {
		if err := sink.Consume(ctx, event.HistoryLoaded{Room: room, Messages: history}); err != nil {
			return room, err
		}
	}
	return room, sink.Consume(ctx, event.PrivateRoomJoined{Room: room, Partner: target})
}

// Send persists the message, then broadcasts it to every room member except
// the sender, then enqueues the push fan-out. A persistence failure stops
// the chain: nothing is broadcast, nothing is enqueued, and the caller
// surfaces the error to the sender.
func (o *Orchestrator) Send(ctx context.Context, conn domain.ConnID, message domain.Message) error {
	start := time.Now()

	author, ok := o.registry.IdentityOf(conn)
	if !ok {
		return errors.ErrNotLoggedIn
	}
	message.Author = author

	if err := o.validate.Struct(message); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	message.ID = uuid.New()
	message.SentAt = time.Now().UTC()
	message.Read = false

	if o.moderator != nil && message.Body != "" {
		message.Body, _ = o.moderator.Censor(message.Body)
	}

	if message.HasAttachment() && message.FileType == "" {
		message.FileType = sniffFileType(message.File)
	}

	if err := o.messages.Append(message); err != nil {
		o.monitoring.IncrPersistenceFailures()
		return fmt.Errorf("%w: %s", errors.ErrPersistence, err)
	}
	o.monitoring.IncrMessagesPersisted()

	o.broadcast(ctx, message.Room, event.MessageReceived{Message: message}, conn)
	o.monitoring.IncrMessagesRouted()

	select {
	case o.jobs <- notify.Job{Message: message}:
	default:
		o.monitoring.AddNotificationsDropped(1)
		o.log.Warn("Notification queue full, job dropped", "room", message.Room)
	}

	o.emitLatency(message.Room, author, time.Since(start))
	return nil
}

// Typing relays a transient typing notice to the room, sender excluded.
// Never persisted.
func (o *Orchestrator) Typing(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error {
	user, ok := o.registry.IdentityOf(conn)
	if !ok {
		return errors.ErrNotLoggedIn
	}
	o.broadcast(ctx, room, event.TypingNotice{Room: room, User: user}, conn)
	o.monitoring.IncrTypingRelayed()
	return nil
}

// ReadMessages flips the unread flag on every message in the room not
// authored by the reader. The room hears about it only when at least one
// message actually changed; a second identical receipt is silent.
func (o *Orchestrator) ReadMessages(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error {
	reader, ok := o.registry.IdentityOf(conn)
	if !ok {
		return errors.ErrNotLoggedIn
	}

	changed, err := o.messages.MarkRead(room, reader)
	if err != nil {
		return fmt.Errorf("marking %s read: %w", room, err)
	}
	if changed == 0 {
		return nil
	}

	// The reader is included so their other devices reconcile too.
	o.broadcast(ctx, room, event.MessagesRead{Room: room})
	o.monitoring.IncrReadReceipts()
	return nil
}

// RelayFriendRequest pushes a live notice to every connection of the target.
// Offline targets discover the request from their stored account.
func (o *Orchestrator) RelayFriendRequest(ctx context.Context, from, to domain.Identity) {
	o.relayToIdentity(ctx, to, event.FriendRequestReceived{From: from})
}

// RelayFriendAccept pushes a live notice to every connection of the
// original requester.
func (o *Orchestrator) RelayFriendAccept(ctx context.Context, accepter, requester domain.Identity) {
	o.relayToIdentity(ctx, requester, event.FriendRequestAccepted{From: accepter})
}

// RelayGroupAdded tells each online member (creator excluded) that they are
// in a new group, and subscribes their connections to the group room.
func (o *Orchestrator) RelayGroupAdded(ctx context.Context, group domain.Group, creator domain.Identity) {
	for _, member := range group.MembersExcept(creator) {
		for _, conn := range o.registry.ConnectionsFor(member) {
			o.registry.JoinRoom(conn, group.Room)
			if sink, ok := o.registry.SinkOf(conn); ok {
				if err := sink.Consume(ctx, event.GroupAdded{GroupName: group.Name, Room: group.Room}); err != nil {
					o.log.Debug("Group notice dropped", "member", member, "error", err)
				}
			}
		}
	}
	for _, conn := range o.registry.ConnectionsFor(creator) {
		o.registry.JoinRoom(conn, group.Room)
	}
}

// broadcast delivers e to every sink in the room except the listed
// connections. A failing sink is skipped, never retried: a slow client
// cannot hold the room hostage.
func (o *Orchestrator) broadcast(ctx context.Context, room domain.RoomKey, e event.DomainEvent, except ...domain.ConnID) {
	for _, sink := range o.registry.SinksForRoom(room, except...) {
		if err := sink.Consume(ctx, e); err != nil {
			o.log.Debug("Event dropped", "event", e.EventName(), "room", room, "error", err)
		}
	}
}

func (o *Orchestrator) relayToIdentity(ctx context.Context, identity domain.Identity, e event.DomainEvent) {
	for _, conn := range o.registry.ConnectionsFor(identity) {
		if sink, ok := o.registry.SinkOf(conn); ok {
			if err := sink.Consume(ctx, e); err != nil {
				o.log.Debug("Event dropped", "event", e.EventName(), "user", identity, "error", err)
			}
		}
	}
}

func (o *Orchestrator) emitLatency(room domain.RoomKey, author domain.Identity, leadTime time.Duration) {
	if o.telemetry == nil {
		return
	}
	select {
	case o.telemetry <- event.Event{
		Type:      event.DeliveryLatencyType,
		CreatedAt: time.Now().UTC(),
		Payload: event.DeliveryLatency{
			Room:     room,
			Author:   author,
			LeadTime: leadTime,
		},
	}:
	default:
		// Telemetry is best effort.
	}
}

// sniffFileType falls back to content sniffing when the client sent an
// attachment without a declared type. File holds the raw payload the
// client uploaded.
func sniffFileType(file string) string {
	return mimetype.Detect([]byte(file)).String()
}
