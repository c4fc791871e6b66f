package event

import "chat-core/domain"

// DomainEvent is anything the engine pushes to a connected client. EventName
// is the wire name the gateway writes into the envelope.
type DomainEvent interface {
	EventName() string
}

// MessageReceived carries one freshly persisted message to room members
// other than the sender.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) EventName() string { return "receive_message" }

// HistoryLoaded delivers a room's full history, in insertion order, to the
// one connection that just joined.
type HistoryLoaded struct {
	Room     domain.RoomKey
	Messages []domain.Message
}

func (HistoryLoaded) EventName() string { return "load_messages" }

// TypingNotice is an ephemeral relay; it is never persisted and may be
// dropped under load.
type TypingNotice struct {
	Room domain.RoomKey
	User domain.Identity
}

func (TypingNotice) EventName() string { return "typing" }

// MessagesRead tells room members that the unread backlog of the room has
// been reconciled.
type MessagesRead struct {
	Room domain.RoomKey
}

func (MessagesRead) EventName() string { return "messages_read" }

// PrivateRoomJoined confirms a direct-room join to the initiator only.
// The partner's connections are subscribed silently.
type PrivateRoomJoined struct {
	Room    domain.RoomKey
	Partner domain.Identity
}

func (PrivateRoomJoined) EventName() string { return "private_room_joined" }

// UserList is the presence snapshot broadcast to every connection.
type UserList struct {
	Users []domain.Identity
}

func (UserList) EventName() string { return "user_list" }

// ErrorAck surfaces a failed operation to the initiating connection.
type ErrorAck struct {
	Event  string
	Reason string
}

func (ErrorAck) EventName() string { return "error_ack" }

// FriendRequestReceived is relayed live to the target of a friend request.
type FriendRequestReceived struct {
	From domain.Identity
}

func (FriendRequestReceived) EventName() string { return "friend_request_received" }

// FriendRequestAccepted is relayed live to the original requester.
type FriendRequestAccepted struct {
	From domain.Identity
}

func (FriendRequestAccepted) EventName() string { return "friend_request_accepted" }

// GroupAdded tells each online member they were put in a new group.
type GroupAdded struct {
	GroupName string
	Room      domain.RoomKey
}

func (GroupAdded) EventName() string { return "group_added" }
