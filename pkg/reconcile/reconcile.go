package reconcile

import (
	"sync"

	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
)

// Replica is a client-side copy of the thread tree, updated by applying
// bus events idempotently. Events may arrive duplicated, delayed or out of
// order; the replica resolves the same races the server resolves, in
// particular the rule that a completed message is never regressed to error
// by a late notification.
type Replica struct {
	mu       sync.Mutex
	threads  map[string]*models.Thread
	viewedID string
}

func NewReplica() *Replica {
	return &Replica{threads: map[string]*models.Thread{}}
}

// Seed loads a full state pull into the replica, replacing whatever is
// held locally. New subscribers must seed before applying events; events
// for unknown threads are otherwise dropped.
func (r *Replica) Seed(threads []*models.Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads = make(map[string]*models.Thread, len(threads))
	for _, th := range threads {
		c := th.Clone()
		c.RecomputeFlags()
		r.threads[c.ID] = c
	}
}

// Apply folds one event into the replica. Applying the same event twice
// yields the same state as applying it once.
func (r *Replica) Apply(ev models.Event) {
	payload, err := ev.Decode()
	if err != nil {
		logger.Warn("reconcile_bad_event", "error", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch p := payload.(type) {
	case models.MessageEvent:
		r.applyMessage(p)
	case models.StatusEvent:
		r.applyStatus(p)
	case models.SummaryEvent:
		if th := r.threads[p.ThreadID]; th != nil {
			th.Summary = p.Summary
		}
	case models.ThreadEvent:
		// Full replace; the payload's children list is authoritative.
		c := p.Thread.Clone()
		if prev := r.threads[c.ID]; prev != nil {
			c.HasUnread = prev.HasUnread
		}
		c.RecomputeFlags()
		r.threads[c.ID] = c
	}
}

func (r *Replica) applyMessage(p models.MessageEvent) {
	th := r.threads[p.ThreadID]
	if th == nil {
		return
	}
	existing, idx := th.Message(p.Message.ID)
	if existing != nil {
		// Same anti-regression rule as the server: never replace a
		// completed message with a late error version.
		if existing.Status.Terminal() && p.Message.Status == models.StatusError {
			logger.Debug("reconcile_regression_skipped", "thread", p.ThreadID, "msg_id", p.Message.ID)
			return
		}
		th.Messages[idx] = p.Message
	} else {
		th.Messages = append(th.Messages, p.Message)
	}
	r.finishMessageUpdate(th, p.Message)
}

func (r *Replica) applyStatus(p models.StatusEvent) {
	th := r.threads[p.ThreadID]
	if th == nil {
		return
	}
	msg, _ := th.Message(p.MessageID)
	if msg == nil {
		// Thread known but message not yet seen locally; a later full
		// message event will carry it.
		return
	}
	if msg.Status.Terminal() && p.Status == models.StatusError {
		logger.Debug("reconcile_regression_skipped", "thread", p.ThreadID, "msg_id", p.MessageID)
		return
	}
	msg.Status = p.Status
	if p.Status == models.StatusError {
		msg.Error = p.Error
	} else {
		msg.Error = ""
	}
	r.finishMessageUpdate(th, *msg)
}

// finishMessageUpdate recomputes derived flags and applies the unread
// rule: only completed, non-empty assistant messages in a thread the user
// is not currently viewing mark it unread.
func (r *Replica) finishMessageUpdate(th *models.Thread, msg models.Message) {
	th.RecomputeFlags()
	if th.ID == r.viewedID {
		th.HasUnread = false
		return
	}
	if msg.Author == models.AuthorAssistant && msg.Status == models.StatusCompleted && msg.Text != "" {
		th.HasUnread = true
	}
}

// View selects a thread as the one currently being viewed and clears its
// unread flag.
func (r *Replica) View(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewedID = threadID
	if th := r.threads[threadID]; th != nil {
		th.HasUnread = false
	}
}

// Thread returns a copy of the replica's view of one thread, or nil.
func (r *Replica) Thread(threadID string) *models.Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	th := r.threads[threadID]
	if th == nil {
		return nil
	}
	return th.Clone()
}

// Snapshot returns copies of all threads held by the replica.
func (r *Replica) Snapshot() []*models.Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Thread, 0, len(r.threads))
	for _, th := range r.threads {
		out = append(out, th.Clone())
	}
	return out
}
