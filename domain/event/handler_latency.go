package event

import (
	"log/slog"
	"time"
)

// LatencyHandler logs the persist-plus-broadcast lead time of each routed
// message and flags the ones above the configured threshold.
type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold}
}

func (h *LatencyHandler) Handle(e Event) {
	if e.Type != DeliveryLatencyType {
		return
	}
	payload, ok := e.Payload.(DeliveryLatency)
	if !ok {
		return
	}

	h.log.Debug("telemetry: routing latency",
		"room", payload.Room,
		"author", payload.Author,
		"lead_time_ms", payload.LeadTime.Milliseconds(),
	)

	if payload.LeadTime > h.latencyThreshold {
		h.log.Warn("high routing latency detected", "lead_time", payload.LeadTime, "room", payload.Room)
	}
}
