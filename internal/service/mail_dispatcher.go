package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/pkg/jobs"
	"github.com/noah-isme/lesson-scheduler-api/pkg/mailer"
)

const reminderEmailJob = "reminder_email"

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// MailDispatcher hands messages to a worker queue that delivers them with retries.
type MailDispatcher struct {
	queue  *jobs.Queue
	sender mailSender
	logger *zap.Logger
}

// NewMailDispatcher builds the dispatcher and its queue. Start must be called before Dispatch.
func NewMailDispatcher(sender mailSender, cfg jobs.QueueConfig) *MailDispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	d := &MailDispatcher{sender: sender, logger: cfg.Logger}
	d.queue = jobs.NewQueue("mail", d.deliver, cfg)
	return d
}

// Start launches the delivery workers.
func (d *MailDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop stops accepting mail and delivers what is queued until ctx expires.
func (d *MailDispatcher) Stop(ctx context.Context) {
	d.queue.Stop(ctx)
}

// Dispatch validates and enqueues msg.
func (d *MailDispatcher) Dispatch(ctx context.Context, msg mailer.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return d.queue.EnqueueContext(ctx, jobs.Job{ID: uuid.NewString(), Type: reminderEmailJob, Payload: msg})
}

func (d *MailDispatcher) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		d.logger.Error("unexpected mail payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return d.sender.Send(ctx, msg)
}
