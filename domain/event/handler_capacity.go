package event

import (
	"fmt"
	"log/slog"
)

// ChannelCapacityHandler watches telemetry reporting internal channel fill
// levels. Useful for spotting backpressure before events start dropping.
type ChannelCapacityHandler struct {
	log                  *slog.Logger
	lowCapacityThreshold int
}

func NewChannelCapacityHandler(log *slog.Logger, lowCapacityThreshold int) *ChannelCapacityHandler {
	return &ChannelCapacityHandler{log: log, lowCapacityThreshold: lowCapacityThreshold}
}

func (h ChannelCapacityHandler) Handle(e Event) {
	if e.Type != ChannelCapacityType {
		return
	}
	payload, ok := e.Payload.(ChannelCapacity)
	if !ok {
		h.log.Error("unexpected payload for channel capacity event")
		return
	}
	h.log.Debug(fmt.Sprintf("Channel %s usage: %d / %d", payload.ChannelName, payload.Length, payload.Capacity))
	if payload.Capacity <= 0 {
		// Unbuffered channel, nothing to measure
		return
	}
	capacityLeft := payload.Capacity - payload.Length
	if capacityLeft > 0 && capacityLeft <= h.lowCapacityThreshold {
		h.log.Warn(fmt.Sprintf("channel %s capacity left: %d", payload.ChannelName, capacityLeft))
	}
}
