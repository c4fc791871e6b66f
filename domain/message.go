// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are immutable once persisted; only the Read flag changes.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one durable chat record. Body and the attachment fields are
// both optional, but a message carries at least one of them.
type Message struct {
	ID       uuid.UUID `json:"id"`
	Room     RoomKey   `json:"room" validate:"required"`
	Author   Identity  `json:"author" validate:"required"`
	Body     string    `json:"message,omitempty"`
	File     string    `json:"file,omitempty"`
	FileName string    `json:"fileName,omitempty"`
	FileType string    `json:"fileType,omitempty"`
	// Time is the client-supplied display timestamp, carried verbatim.
	Time   string    `json:"time,omitempty"`
	SentAt time.Time `json:"sentAt"`
	Read   bool      `json:"read"`
}

// HasAttachment reports whether the message carries a file reference.
func (m Message) HasAttachment() bool { return m.File != "" }
