package lifecycle

import (
	"context"
	"time"

	"github.com/adntgv/gptree/pkg/backend"
	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/notify"
	"github.com/adntgv/gptree/pkg/queue"
	"github.com/adntgv/gptree/pkg/store"
	"github.com/adntgv/gptree/pkg/utils"
)

// Controller owns the per-message status state machine and the side
// effects that keep it consistent: durable writes first, notifications
// after. The state machine is
//
//	pending -> generating -> completed | error
//	error -> (user retry) -> pending -> ...
//
// completed is terminal: a late error write never overwrites it. The store
// enforces the same rule under its write lock; the re-read here narrows
// the window and keeps the log honest about what was skipped.
type Controller struct {
	store    *store.Store
	queue    *queue.Queue
	provider backend.Provider
	bus      *notify.Bus
}

func NewController(st *store.Store, q *queue.Queue, p backend.Provider, bus *notify.Bus) *Controller {
	return &Controller{store: st, queue: q, provider: p, bus: bus}
}

// SendResult acknowledges an accepted send command.
type SendResult struct {
	JobID       string         `json:"job_id"`
	UserMessage models.Message `json:"user_message"`
	// PendingMessage is the assistant placeholder that the generation job
	// will fill in; clients track it by id.
	PendingMessage models.Message `json:"pending_message"`
}

// Send appends the user's message, creates a pending assistant message and
// enqueues a generation job against the thread history captured now. The
// history may be stale relative to edits that land while the job waits;
// that staleness is accepted.
func (c *Controller) Send(threadID, text string) (*SendResult, error) {
	if text == "" {
		return nil, models.Validation("message text required")
	}
	if _, err := c.store.Get(threadID); err != nil {
		return nil, err
	}

	user := models.Message{
		ID:        utils.GenMessageID(),
		Author:    models.AuthorUser,
		Text:      text,
		CreatedTS: time.Now().UTC().UnixNano(),
		Status:    models.StatusCompleted,
	}
	saved, err := c.store.AppendMessage(threadID, user)
	if err != nil {
		return nil, err
	}
	c.emitMessage(threadID, *saved)

	pending := models.Message{
		ID:        utils.GenMessageID(),
		Author:    models.AuthorAssistant,
		CreatedTS: time.Now().UTC().UnixNano(),
		Status:    models.StatusPending,
	}
	placed, err := c.store.AppendMessage(threadID, pending)
	if err != nil {
		return nil, err
	}
	c.emitMessage(threadID, *placed)

	// History at enqueue time, without the placeholder itself.
	th, err := c.store.Get(threadID)
	if err != nil {
		return nil, err
	}
	history := historyExcluding(th, placed.ID)

	jobID := utils.GenJobID("chat", threadID)
	c.queue.Enqueue(jobID, func(ctx context.Context) {
		c.generate(ctx, threadID, placed.ID, history)
	})
	logger.Info("generation_enqueued", "job", jobID, "thread", threadID, "msg_id", placed.ID)
	return &SendResult{JobID: jobID, UserMessage: *saved, PendingMessage: *placed}, nil
}

// Retry re-runs generation for an assistant message currently in error,
// reusing the same message id so replicas update in place. Any other
// target is rejected with a validation error and no side effects.
func (c *Controller) Retry(threadID, messageID string) (string, error) {
	th, err := c.store.Get(threadID)
	if err != nil {
		return "", err
	}
	msg, _ := th.Message(messageID)
	if msg == nil {
		return "", models.ErrNotFound
	}
	if msg.Author != models.AuthorAssistant || msg.Status != models.StatusError {
		return "", models.Validation("message is not an assistant message in error state")
	}

	if _, err := c.store.SetMessageStatus(threadID, messageID, models.StatusPending, "", ""); err != nil {
		return "", err
	}
	c.emitStatus(threadID, messageID, models.StatusPending, "")

	// Prompt history excludes the message being regenerated.
	history := historyExcluding(th, messageID)

	jobID := utils.GenJobID("retry", threadID)
	c.queue.Enqueue(jobID, func(ctx context.Context) {
		c.generate(ctx, threadID, messageID, history)
	})
	logger.Info("retry_enqueued", "job", jobID, "thread", threadID, "msg_id", messageID)
	return jobID, nil
}

// Summarize enqueues a summary regeneration for the thread. Summary
// failures are isolated: they never touch message status.
func (c *Controller) Summarize(threadID string) (string, error) {
	th, err := c.store.Get(threadID)
	if err != nil {
		return "", err
	}
	jobID := utils.GenJobID("summarize", threadID)
	c.queue.Enqueue(jobID, func(ctx context.Context) {
		c.summarize(ctx, th)
	})
	return jobID, nil
}

// Retitle enqueues title regeneration for the thread.
func (c *Controller) Retitle(threadID string) (string, error) {
	th, err := c.store.Get(threadID)
	if err != nil {
		return "", err
	}
	jobID := utils.GenJobID("retitle", threadID)
	c.queue.Enqueue(jobID, func(ctx context.Context) {
		title, err := c.provider.Title(ctx, th)
		if err != nil {
			logger.Error("title_generation_failed", "thread", th.ID, "error", err)
			return
		}
		cur, err := c.store.Get(th.ID)
		if err != nil {
			logger.Error("retitle_thread_gone", "thread", th.ID, "error", err)
			return
		}
		cur.Title = title
		updated, err := c.store.Replace(cur)
		if err != nil {
			logger.Error("retitle_save_failed", "thread", th.ID, "error", err)
			return
		}
		c.emitThreadStructure(updated)
	})
	return jobID, nil
}

// generate runs one generation attempt for an existing message. It owns
// recording the attempt's outcome; errors stop here, never in the queue.
func (c *Controller) generate(ctx context.Context, threadID, messageID string, history []backend.Turn) {
	if _, err := c.store.SetMessageStatus(threadID, messageID, models.StatusGenerating, "", ""); err != nil {
		logger.Error("generation_start_failed", "thread", threadID, "msg_id", messageID, "error", err)
		c.fail(threadID, messageID, "thread or message no longer available")
		return
	}
	c.emitStatus(threadID, messageID, models.StatusGenerating, "")

	text, err := c.provider.Complete(ctx, history)
	if err != nil {
		logger.Error("generation_failed", "thread", threadID, "msg_id", messageID, "error", err)
		c.fail(threadID, messageID, err.Error())
		return
	}

	updated, err := c.store.SetMessageStatus(threadID, messageID, models.StatusCompleted, text, "")
	if err != nil {
		// Store write failure: surface best-effort error status; there is
		// nothing else to report into.
		logger.Error("generation_save_failed", "thread", threadID, "msg_id", messageID, "error", err)
		c.fail(threadID, messageID, "failed to save generated message")
		return
	}
	c.emitMessage(threadID, *updated)

	// Summary refresh rides in its own job with an independent failure
	// domain; the completed message above stands regardless.
	cur, err := c.store.Get(threadID)
	if err != nil {
		logger.Warn("summary_skipped_thread_gone", "thread", threadID, "error", err)
		return
	}
	c.queue.Enqueue(utils.GenJobID("summarize", threadID), func(ctx context.Context) {
		c.summarize(ctx, cur)
	})
}

// fail records a failed attempt. The current persisted status is checked
// immediately before writing: a success write that won the race leaves the
// message completed, and the error is dropped. The store repeats the same
// check under its write lock.
func (c *Controller) fail(threadID, messageID, errText string) {
	th, err := c.store.Get(threadID)
	if err != nil {
		logger.Error("failure_record_skipped", "thread", threadID, "msg_id", messageID, "error", err)
		return
	}
	if msg, _ := th.Message(messageID); msg != nil && msg.Status.Terminal() {
		logger.Warn("failure_after_completion_ignored", "thread", threadID, "msg_id", messageID)
		return
	}
	updated, err := c.store.SetMessageStatus(threadID, messageID, models.StatusError, "", errText)
	if err != nil {
		logger.Error("failure_record_failed", "thread", threadID, "msg_id", messageID, "error", err)
		return
	}
	if updated.Status != models.StatusError {
		// The store skipped the write because a success landed first.
		return
	}
	c.emitStatus(threadID, messageID, models.StatusError, errText)
}

// summarize regenerates and persists the thread summary from the given
// snapshot, then notifies.
func (c *Controller) summarize(ctx context.Context, th *models.Thread) {
	summary, err := c.provider.Summarize(ctx, th)
	if err != nil {
		logger.Error("summary_generation_failed", "thread", th.ID, "error", err)
		return
	}
	cur, err := c.store.Get(th.ID)
	if err != nil {
		logger.Error("summary_thread_gone", "thread", th.ID, "error", err)
		return
	}
	cur.Summary = summary
	cur.SummaryTS = time.Now().UTC().UnixNano()
	if _, err := c.store.Replace(cur); err != nil {
		logger.Error("summary_save_failed", "thread", th.ID, "error", err)
		return
	}
	c.emitSummary(th.ID, summary)
}

func (c *Controller) emitMessage(threadID string, msg models.Message) {
	ev, err := models.NewEvent(models.EventMessage, models.MessageEvent{ThreadID: threadID, Message: msg})
	if err != nil {
		logger.Error("message_event_marshal_failed", "thread", threadID, "error", err)
		return
	}
	c.bus.Publish(ev)
}

func (c *Controller) emitStatus(threadID, messageID string, status models.Status, errText string) {
	ev, err := models.NewEvent(models.EventStatus, models.StatusEvent{
		ThreadID: threadID, MessageID: messageID, Status: status, Error: errText,
	})
	if err != nil {
		logger.Error("status_event_marshal_failed", "thread", threadID, "error", err)
		return
	}
	c.bus.Publish(ev)
}

func (c *Controller) emitSummary(threadID, summary string) {
	ev, err := models.NewEvent(models.EventSummary, models.SummaryEvent{ThreadID: threadID, Summary: summary})
	if err != nil {
		logger.Error("summary_event_marshal_failed", "thread", threadID, "error", err)
		return
	}
	c.bus.Publish(ev)
}

func (c *Controller) emitThreadStructure(th *models.Thread) {
	ev, err := models.NewEvent(models.EventThread, models.ThreadEvent{Thread: *th})
	if err != nil {
		logger.Error("thread_event_marshal_failed", "thread", th.ID, "error", err)
		return
	}
	c.bus.Publish(ev)
}

func historyExcluding(th *models.Thread, messageID string) []backend.Turn {
	msgs := make([]models.Message, 0, len(th.Messages))
	for _, m := range th.Messages {
		if m.ID == messageID {
			continue
		}
		msgs = append(msgs, m)
	}
	return backend.HistoryFromMessages(msgs)
}
