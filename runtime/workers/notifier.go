package workers

import (
	"context"
	"log/slog"

	"chat-core/contract"
	"chat-core/notify"
)

var _ contract.Worker = (*NotifierWorker)(nil)

// NotifierWorker drains the notification queue. Running it apart from the
// send path keeps push latency and push failures structurally isolated
// from message broadcast: a stuck downstream service stalls this worker,
// never a sender. In-flight jobs survive the sender's disconnect; nothing
// cancels them.
type NotifierWorker struct {
	log        *slog.Logger
	dispatcher *notify.Dispatcher
	jobs       <-chan notify.Job
}

func NewNotifierWorker(log *slog.Logger, dispatcher *notify.Dispatcher, jobs <-chan notify.Job) *NotifierWorker {
	return &NotifierWorker{log: log, dispatcher: dispatcher, jobs: jobs}
}

func (w *NotifierWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if err := w.dispatcher.Dispatch(ctx, job); err != nil {
				// Recovered locally; never propagated to the sender.
				w.log.Warn("notification fan-out incomplete",
					"room", job.Message.Room,
					"error", err)
			}
		}
	}
}
