package tree

import (
	"fmt"
	"time"

	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/notify"
	"github.com/adntgv/gptree/pkg/store"
	"github.com/adntgv/gptree/pkg/utils"
)

const seedText = "This conversation has just started."

// Manager owns the branch/fork operations and the parent/child invariants
// of the thread tree. Threads are value-copied on branch and fork so edits
// to either side never alias the other.
type Manager struct {
	store *store.Store
	bus   *notify.Bus
}

func NewManager(st *store.Store, bus *notify.Bus) *Manager {
	return &Manager{store: st, bus: bus}
}

// CreateRoot creates a new root thread. When no seed messages are supplied
// the thread opens with a single system message. Seed messages get the
// same treatment appends get: missing ids are generated, a missing status
// defaults to completed, and invalid statuses or duplicate ids are
// rejected.
func (m *Manager) CreateRoot(title string, seed []models.Message) (*models.Thread, error) {
	if title == "" {
		return nil, models.Validation("title required")
	}
	msgs, err := normalizeSeed(seed)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		msgs = []models.Message{{
			ID:        utils.GenMessageID(),
			Author:    models.AuthorSystem,
			Text:      seedText,
			CreatedTS: time.Now().UTC().UnixNano(),
			Status:    models.StatusCompleted,
		}}
	}
	th := &models.Thread{
		ID:       utils.GenThreadID(),
		Title:    title,
		Messages: msgs,
	}
	created, err := m.store.Create(th)
	if err != nil {
		return nil, err
	}
	logger.Info("thread_created", "thread", created.ID, "title", title)
	m.emitThread(created)
	return created, nil
}

// normalizeSeed fills generated ids and default statuses into
// caller-supplied seed messages and validates what the caller did set.
func normalizeSeed(seed []models.Message) ([]models.Message, error) {
	if len(seed) == 0 {
		return nil, nil
	}
	out := make([]models.Message, len(seed))
	copy(out, seed)
	seen := make(map[string]struct{}, len(out))
	now := time.Now().UTC().UnixNano()
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = utils.GenMessageID()
		}
		if _, dup := seen[out[i].ID]; dup {
			return nil, models.Validation(fmt.Sprintf("duplicate seed message id %s", out[i].ID))
		}
		seen[out[i].ID] = struct{}{}
		if out[i].Status == "" {
			out[i].Status = models.StatusCompleted
		}
		if !out[i].Status.Valid() {
			return nil, models.Validation(fmt.Sprintf("invalid seed message status %q", out[i].Status))
		}
		if out[i].CreatedTS == 0 {
			out[i].CreatedTS = now
		}
	}
	return out, nil
}

// Branch creates a new thread seeded with a full copy of the source's
// current messages and links it under the source.
func (m *Manager) Branch(threadID, title string) (*models.Thread, error) {
	src, err := m.store.Get(threadID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Branch of " + src.Title
	}
	child := &models.Thread{
		ID:       utils.GenThreadID(),
		ParentID: src.ID,
		Title:    title,
		Messages: src.CopyMessages(),
	}
	return m.link(src, child)
}

// ForkAt creates a new thread seeded with the source's messages up to and
// including messageID, recording the fork point.
func (m *Manager) ForkAt(threadID, messageID, title string) (*models.Thread, error) {
	src, err := m.store.Get(threadID)
	if err != nil {
		return nil, err
	}
	_, idx := src.Message(messageID)
	if idx < 0 {
		return nil, fmt.Errorf("message %s in thread %s: %w", messageID, threadID, models.ErrNotFound)
	}
	if title == "" {
		title = "Fork from " + src.Title
	}
	prefix := make([]models.Message, idx+1)
	copy(prefix, src.Messages[:idx+1])
	child := &models.Thread{
		ID:                 utils.GenThreadID(),
		ParentID:           src.ID,
		ForkPointMessageID: messageID,
		Title:              title,
		Messages:           prefix,
	}
	return m.link(src, child)
}

// link persists the child, appends it to the source's children and emits
// structure events for both sides.
func (m *Manager) link(src *models.Thread, child *models.Thread) (*models.Thread, error) {
	created, err := m.store.Create(child)
	if err != nil {
		return nil, err
	}
	// Re-read the source right before the conditional write to narrow the
	// window against concurrent sibling creations.
	cur, err := m.store.Get(src.ID)
	if err != nil {
		return nil, err
	}
	cur.Children = append(cur.Children, created.ID)
	parent, err := m.store.Replace(cur)
	if err != nil {
		return nil, err
	}
	logger.Info("thread_linked", "parent", parent.ID, "child", created.ID,
		"fork_point", created.ForkPointMessageID)
	m.emitThread(created)
	m.emitThread(parent)
	return created, nil
}

func (m *Manager) emitThread(th *models.Thread) {
	ev, err := models.NewEvent(models.EventThread, models.ThreadEvent{Thread: *th})
	if err != nil {
		logger.Error("thread_event_marshal_failed", "thread", th.ID, "error", err)
		return
	}
	m.bus.Publish(ev)
}
