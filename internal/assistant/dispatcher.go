package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/worker"
)

type askJob struct {
	conv    *Conversation
	text    string
	context Context
	onReply func(models.ChatMessage)
}

// Dispatcher runs questions on a worker pool so callers return as soon as the
// question is accepted.
type Dispatcher struct {
	assistant *Assistant
	pool      *worker.WorkerPool
}

func NewDispatcher(a *Assistant, workers, bufferSize int) *Dispatcher {
	d := &Dispatcher{assistant: a}
	d.pool = worker.NewWorkerPool(workers, bufferSize, d.process)
	return d
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

func (d *Dispatcher) Stop() {
	d.pool.Stop()
}

// Dispatch records text as the user's question and queues it. Exactly one
// reply is appended later, and onReply (if set) is called with it. ErrBusy
// and ErrEmptyMessage are returned before anything is recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, conv *Conversation, text string, c Context, onReply func(models.ChatMessage)) (models.ChatMessage, error) {
	msg, err := conv.Begin(ctx, text)
	if err != nil {
		return msg, err
	}

	job := &askJob{conv: conv, text: text, context: c, onReply: onReply}
	if err := d.pool.Submit(ctx, job); err != nil {
		slog.Error("failed to queue assistant request", "session_id", conv.SessionID(), "error", err)
		d.reply(context.WithoutCancel(ctx), job, ApologyText)
	}
	return msg, nil
}

func (d *Dispatcher) process(ctx context.Context, j worker.Job) error {
	job, ok := j.(*askJob)
	if !ok {
		return fmt.Errorf("unexpected job type %T", j)
	}

	answer := d.assistant.Ask(ctx, job.text, job.context)
	d.reply(context.WithoutCancel(ctx), job, answer)
	return nil
}

func (d *Dispatcher) reply(ctx context.Context, job *askJob, text string) {
	msg, err := job.conv.Complete(ctx, text)
	if err != nil {
		slog.Error("failed to store assistant reply", "session_id", job.conv.SessionID(), "error", err)
	}
	if job.onReply != nil {
		job.onReply(msg)
	}
}
