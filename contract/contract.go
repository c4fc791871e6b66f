//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-core/domain"
	"chat-core/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one client's delivery channel. Consume must never block
// longer than the context allows; a full sink drops rather than stalls
// the broadcast loop.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the connection registry: the source of truth for who is
// online and which connections sit in which rooms.
type IRegistry interface {
	Attach(conn domain.ConnID, sink EventSink)
	Register(conn domain.ConnID, identity domain.Identity)
	Unregister(conn domain.ConnID)
	IdentityOf(conn domain.ConnID) (domain.Identity, bool)
	OnlineIdentities() []domain.Identity
	ConnectionsFor(identity domain.Identity) []domain.ConnID
	JoinRoom(conn domain.ConnID, room domain.RoomKey) bool
	SinkOf(conn domain.ConnID) (EventSink, bool)
	SinksForRoom(room domain.RoomKey, except ...domain.ConnID) []EventSink
	AllSinks() []EventSink
}

// MessageLog is the durable, append-only message store.
type MessageLog interface {
	Append(message domain.Message) error
	ListByRoom(room domain.RoomKey) ([]domain.Message, error)
	MarkRead(room domain.RoomKey, excludeAuthor domain.Identity) (int, error)
}

// UserDirectory resolves identities to stored accounts (device token
// lookup included).
type UserDirectory interface {
	Create(account domain.Account) error
	GetByUsername(username domain.Identity) (domain.Account, error)
	Save(account domain.Account) error
	SetPushToken(username domain.Identity, token string) error
	Search(ctx context.Context, query string, limit int) ([]domain.Account, error)
}

// GroupDirectory resolves group room keys to their membership lists.
type GroupDirectory interface {
	Create(group domain.Group) error
	Get(room domain.RoomKey) (domain.Group, error)
	MembersOf(room domain.RoomKey) ([]domain.Identity, error)
}

// PushService is the out-of-band notification transport. One call carries
// at most the transport's maximum batch size.
type PushService interface {
	SendBatch(ctx context.Context, payloads []domain.PushPayload) error
}
