package event

import (
	"time"

	"chat-core/domain"
)

type Type string

const (
	ChannelCapacityType Type = "channel_capacity"
	DeliveryLatencyType Type = "delivery_latency"
)

// Event is the telemetry envelope consumed by the telemetry worker.
// Best effort only: producers drop instead of blocking.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type Handler interface {
	Handle(e Event)
}

// ChannelCapacity reports the fill level of one internal channel.
type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

// DeliveryLatency measures the span between a message entering the send
// path and its broadcast completing.
type DeliveryLatency struct {
	Room     domain.RoomKey
	Author   domain.Identity
	LeadTime time.Duration
}
