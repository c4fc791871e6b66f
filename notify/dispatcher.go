// Package notify decides who gets an out-of-band notification for a
// persisted message and pushes the payloads downstream in bounded batches.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
	"chat-core/observability"
)

// Job is one persisted message awaiting fan-out.
type Job struct {
	Message domain.Message
}

// Dispatcher resolves a message's recipient set, filters it by presence,
// looks up device tokens, and sends payload batches. Failures stay local:
// a dead batch is logged and the remaining batches still go out. Nothing
// here ever reaches back into the message-delivery path.
type Dispatcher struct {
	log          *slog.Logger
	registry     contract.IRegistry
	users        contract.UserDirectory
	groups       contract.GroupDirectory
	push         contract.PushService
	batchSize    int
	batchTimeout time.Duration
	// offlineOnly restricts fan-out to recipients with no live connection.
	// Disabled, every recipient except the author is notified.
	offlineOnly bool
	monitoring  *observability.MonitoringManager
}

func NewDispatcher(
	log *slog.Logger,
	registry contract.IRegistry,
	users contract.UserDirectory,
	groups contract.GroupDirectory,
	push contract.PushService,
	batchSize int,
	batchTimeout time.Duration,
	offlineOnly bool,
	monitoring *observability.MonitoringManager,
) *Dispatcher {
	return &Dispatcher{
		log:          log,
		registry:     registry,
		users:        users,
		groups:       groups,
		push:         push,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		offlineOnly:  offlineOnly,
		monitoring:   monitoring,
	}
}

// Dispatch fans one message out. The returned error is advisory: callers
// log it, nothing more.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) error {
	recipients := d.recipients(job.Message)
	if len(recipients) == 0 {
		return nil
	}

	payloads := d.buildPayloads(job.Message, recipients)
	if len(payloads) == 0 {
		return nil
	}

	var failed int
	for _, batch := range lo.Chunk(payloads, d.batchSize) {
		if err := d.sendBatch(ctx, batch); err != nil {
			// Isolate and continue: one bad batch must not sink the rest.
			failed += len(batch)
			d.monitoring.AddNotificationsDropped(uint64(len(batch)))
			d.log.Warn("notification batch failed",
				"room", job.Message.Room,
				"batch_size", len(batch),
				"error", err)
			continue
		}
		d.monitoring.AddNotificationsSent(uint64(len(batch)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d notifications dropped", failed, len(payloads))
	}
	return nil
}

// recipients derives the audience of a message from its room key: the
// partner for a direct room, the member list minus the author for a group
// room. Unknown rooms notify nobody; that is an empty result, not an error.
func (d *Dispatcher) recipients(message domain.Message) []domain.Identity {
	if partner, ok := domain.DirectPartner(message.Room, message.Author); ok {
		return []domain.Identity{partner}
	}
	if message.Room.IsGroup() {
		group, err := d.groups.Get(message.Room)
		if err != nil {
			if err != errors.ErrGroupNotFound {
				d.log.Warn("group lookup failed", "room", message.Room, "error", err)
			}
			return nil
		}
		return group.MembersExcept(message.Author)
	}
	// Public rooms have no bounded membership to notify.
	return nil
}

func (d *Dispatcher) buildPayloads(message domain.Message, recipients []domain.Identity) []domain.PushPayload {
	var payloads []domain.PushPayload
	for _, recipient := range recipients {
		if d.offlineOnly && len(d.registry.ConnectionsFor(recipient)) > 0 {
			continue
		}
		account, err := d.users.GetByUsername(recipient)
		if err != nil || account.PushToken == "" {
			// Missing account or token is a silent no-op, never an error
			// surfaced to the sender.
			d.monitoring.IncrNotificationsSkipped()
			continue
		}
		payloads = append(payloads, toPayload(message, account.PushToken))
	}
	return payloads
}

// sendBatch bounds each downstream call so a stuck push service cannot
// accumulate unbounded pending work; expired batches are dropped.
func (d *Dispatcher) sendBatch(ctx context.Context, batch []domain.PushPayload) error {
	batchCtx, cancel := context.WithTimeout(ctx, d.batchTimeout)
	defer cancel()
	return d.push.SendBatch(batchCtx, batch)
}

func toPayload(message domain.Message, token string) domain.PushPayload {
	body := message.Body
	if body == "" && message.HasAttachment() {
		body = message.FileName
		if body == "" {
			body = "sent an attachment"
		}
	}
	return domain.PushPayload{
		To:    token,
		Title: string(message.Author),
		Body:  body,
		Data: map[string]string{
			"room":   string(message.Room),
			"author": string(message.Author),
		},
	}
}
