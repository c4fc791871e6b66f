package services

import (
	"context"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/runtime"
)

type IChatService interface {
	Connect(conn domain.ConnID, sink contract.EventSink)
	Disconnect(conn domain.ConnID)
	Login(conn domain.ConnID, identity domain.Identity) error
	JoinRoom(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error
	JoinDirect(ctx context.Context, conn domain.ConnID, target domain.Identity) (domain.RoomKey, error)
	Send(ctx context.Context, conn domain.ConnID, message domain.Message) error
	Typing(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error
	ReadMessages(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error
}

// ChatService is the transport-facing surface of the engine. It only
// delegates; every rule lives in the orchestrator.
type ChatService struct {
	orchestrator *runtime.Orchestrator
}

func NewChatService(o *runtime.Orchestrator) *ChatService {
	return &ChatService{orchestrator: o}
}

func (s *ChatService) Connect(conn domain.ConnID, sink contract.EventSink) {
	s.orchestrator.Connect(conn, sink)
}

func (s *ChatService) Disconnect(conn domain.ConnID) {
	s.orchestrator.Disconnect(conn)
}

func (s *ChatService) Login(conn domain.ConnID, identity domain.Identity) error {
	return s.orchestrator.Login(conn, identity)
}

func (s *ChatService) JoinRoom(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error {
	return s.orchestrator.JoinRoom(ctx, conn, room)
}

func (s *ChatService) JoinDirect(ctx context.Context, conn domain.ConnID, target domain.Identity) (domain.RoomKey, error) {
	return s.orchestrator.JoinDirect(ctx, conn, target)
}

func (s *ChatService) Send(ctx context.Context, conn domain.ConnID, message domain.Message) error {
	return s.orchestrator.Send(ctx, conn, message)
}

func (s *ChatService) Typing(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error {
	return s.orchestrator.Typing(ctx, conn, room)
}

func (s *ChatService) ReadMessages(ctx context.Context, conn domain.ConnID, room domain.RoomKey) error {
	return s.orchestrator.ReadMessages(ctx, conn, room)
}
