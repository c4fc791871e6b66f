// Package gateway is the websocket and REST surface of the engine. It
// translates named wire events into orchestrator calls and domain events
// back into envelopes; nothing here holds chat state.
package gateway

import (
	"encoding/json"
	"fmt"

	"chat-core/domain"
	"chat-core/domain/event"
)

// Envelope is the wire frame for every socket message, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type loginPayload struct {
	Username domain.Identity `json:"username"`
}

type joinRoomPayload struct {
	Room domain.RoomKey `json:"room"`
}

type joinPrivatePayload struct {
	Username domain.Identity `json:"username"`
}

type sendMessagePayload struct {
	Room     domain.RoomKey `json:"room"`
	Message  string         `json:"message,omitempty"`
	File     string         `json:"file,omitempty"`
	FileName string         `json:"fileName,omitempty"`
	FileType string         `json:"fileType,omitempty"`
	Time     string         `json:"time,omitempty"`
}

type typingPayload struct {
	Room domain.RoomKey `json:"room"`
}

type readMessagesPayload struct {
	Room domain.RoomKey `json:"room"`
}

type friendRequestPayload struct {
	Username domain.Identity `json:"username"`
}

type friendAcceptPayload struct {
	Username domain.Identity `json:"username"`
}

type groupCreatedPayload struct {
	Room domain.RoomKey `json:"room"`
}

func (p sendMessagePayload) toMessage() domain.Message {
	return domain.Message{
		Room:     p.Room,
		Body:     p.Message,
		File:     p.File,
		FileName: p.FileName,
		FileType: p.FileType,
		Time:     p.Time,
	}
}

// toWireData shapes each domain event into its wire payload. The zoo of
// small structs keeps the wire format explicit and decoupled from the
// domain types.
func toWireData(e event.DomainEvent) (any, error) {
	switch evt := e.(type) {
	case event.MessageReceived:
		return evt.Message, nil
	case event.HistoryLoaded:
		return struct {
			Room     domain.RoomKey   `json:"room"`
			Messages []domain.Message `json:"messages"`
		}{evt.Room, evt.Messages}, nil
	case event.TypingNotice:
		return struct {
			Room domain.RoomKey  `json:"room"`
			User domain.Identity `json:"user"`
		}{evt.Room, evt.User}, nil
	case event.MessagesRead:
		return struct {
			Room domain.RoomKey `json:"room"`
		}{evt.Room}, nil
	case event.PrivateRoomJoined:
		return struct {
			Room    domain.RoomKey  `json:"room"`
			Partner domain.Identity `json:"partner"`
		}{evt.Room, evt.Partner}, nil
	case event.UserList:
		return struct {
			Users []domain.Identity `json:"users"`
		}{evt.Users}, nil
	case event.ErrorAck:
		return struct {
			Event  string `json:"event"`
			Reason string `json:"reason"`
		}{evt.Event, evt.Reason}, nil
	case event.FriendRequestReceived:
		return struct {
			From domain.Identity `json:"from"`
		}{evt.From}, nil
	case event.FriendRequestAccepted:
		return struct {
			From domain.Identity `json:"from"`
		}{evt.From}, nil
	case event.GroupAdded:
		return struct {
			GroupName string         `json:"groupName"`
			Room      domain.RoomKey `json:"room"`
		}{evt.GroupName, evt.Room}, nil
	default:
		return nil, fmt.Errorf("no wire shape for event %q", e.EventName())
	}
}

// encodeEvent wraps a domain event into its envelope frame.
func encodeEvent(e event.DomainEvent) ([]byte, error) {
	data, err := toWireData(e)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.EventName(), Data: raw})
}
