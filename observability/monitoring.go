// Package observability aggregates live counters for the engine. Everything
// here is advisory; nothing in the routing path depends on it.
package observability

import (
	"sync/atomic"
	"time"
)

// MonitoringStats is one immutable snapshot of the engine's counters,
// served by the debug endpoint and logged by the heartbeat worker.
type MonitoringStats struct {
	MessagesRouted       uint64 `json:"messages_routed"`
	MessagesPersisted    uint64 `json:"messages_persisted"`
	PersistenceFailures  uint64 `json:"persistence_failures"`
	TypingRelayed        uint64 `json:"typing_relayed"`
	ReadReceipts         uint64 `json:"read_receipts"`
	PresenceBroadcasts   uint64 `json:"presence_broadcasts"`
	NotificationsSent    uint64 `json:"notifications_sent"`
	NotificationsSkipped uint64 `json:"notifications_skipped"`
	NotificationsDropped uint64 `json:"notifications_dropped"`
	CollectedAt          string `json:"collected_at"`
}

// MonitoringManager holds the counters behind atomic operations so every
// goroutine in the engine can increment without contention.
type MonitoringManager struct {
	messagesRouted       atomic.Uint64
	messagesPersisted    atomic.Uint64
	persistenceFailures  atomic.Uint64
	typingRelayed        atomic.Uint64
	readReceipts         atomic.Uint64
	presenceBroadcasts   atomic.Uint64
	notificationsSent    atomic.Uint64
	notificationsSkipped atomic.Uint64
	notificationsDropped atomic.Uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{}
}

func (mm *MonitoringManager) IncrMessagesRouted()    { mm.messagesRouted.Add(1) }
func (mm *MonitoringManager) IncrMessagesPersisted() { mm.messagesPersisted.Add(1) }
func (mm *MonitoringManager) IncrPersistenceFailures() {
	mm.persistenceFailures.Add(1)
}
func (mm *MonitoringManager) IncrTypingRelayed()      { mm.typingRelayed.Add(1) }
func (mm *MonitoringManager) IncrReadReceipts()       { mm.readReceipts.Add(1) }
func (mm *MonitoringManager) IncrPresenceBroadcasts() { mm.presenceBroadcasts.Add(1) }
func (mm *MonitoringManager) AddNotificationsSent(n uint64) {
	mm.notificationsSent.Add(n)
}
func (mm *MonitoringManager) IncrNotificationsSkipped() {
	mm.notificationsSkipped.Add(1)
}
func (mm *MonitoringManager) AddNotificationsDropped(n uint64) {
	mm.notificationsDropped.Add(n)
}

// GetLatest assembles a consistent-enough snapshot of all counters.
func (mm *MonitoringManager) GetLatest() MonitoringStats {
	return MonitoringStats{
		MessagesRouted:       mm.messagesRouted.Load(),
		MessagesPersisted:    mm.messagesPersisted.Load(),
		PersistenceFailures:  mm.persistenceFailures.Load(),
		TypingRelayed:        mm.typingRelayed.Load(),
		ReadReceipts:         mm.readReceipts.Load(),
		PresenceBroadcasts:   mm.presenceBroadcasts.Load(),
		NotificationsSent:    mm.notificationsSent.Load(),
		NotificationsSkipped: mm.notificationsSkipped.Load(),
		NotificationsDropped: mm.notificationsDropped.Load(),
		CollectedAt:          time.Now().UTC().Format(time.RFC3339),
	}
}
