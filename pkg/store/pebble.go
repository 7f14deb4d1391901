package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
)

const threadPrefix = "thread:"

// Store is a Pebble-backed thread arena. Each thread is stored as a single
// JSON document under "thread:<id>". Read-modify-write operations are
// serialized by mu; the store offers no atomicity across separate calls,
// so callers doing check-then-act sequences must re-read before writing.
type Store struct {
	mu   sync.Mutex
	db   *pebble.DB
	path string
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

func threadKey(id string) []byte { return []byte(threadPrefix + id) }

// getLocked reads and decodes a thread; caller must hold mu.
func (s *Store) getLocked(id string) (*models.Thread, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := s.db.Get(threadKey(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, fmt.Errorf("thread %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	defer closer.Close()
	var th models.Thread
	if err := json.Unmarshal(v, &th); err != nil {
		return nil, fmt.Errorf("invalid thread document %s: %w", id, err)
	}
	return &th, nil
}

// putLocked encodes and writes a thread; caller must hold mu.
func (s *Store) putLocked(th *models.Thread) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	th.RecomputeFlags()
	th.UpdatedTS = time.Now().UTC().UnixNano()
	b, err := json.Marshal(th)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}
	if err := s.db.Set(threadKey(th.ID), b, pebble.Sync); err != nil {
		writeFailures.Inc()
		logger.Error("save_thread_failed", "thread", th.ID, "error", err)
		return err
	}
	writes.Inc()
	return nil
}

// Get returns a snapshot of the thread or models.ErrNotFound.
func (s *Store) Get(id string) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reads.Inc()
	th, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return th.Clone(), nil
}

// Create persists a new thread. The caller supplies the id; creating an id
// that already exists is rejected.
func (s *Store) Create(th *models.Thread) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if th.ID == "" {
		return nil, models.Validation("thread id required")
	}
	if _, err := s.getLocked(th.ID); err == nil {
		return nil, models.Validation(fmt.Sprintf("thread %s already exists", th.ID))
	}
	if th.CreatedTS == 0 {
		th.CreatedTS = time.Now().UTC().UnixNano()
	}
	c := th.Clone()
	if err := s.putLocked(c); err != nil {
		return nil, err
	}
	logger.Info("thread_saved", "thread", c.ID)
	return c.Clone(), nil
}

// Replace overwrites an existing thread document in full.
func (s *Store) Replace(th *models.Thread) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getLocked(th.ID); err != nil {
		return nil, err
	}
	c := th.Clone()
	if err := s.putLocked(c); err != nil {
		return nil, err
	}
	logger.Info("thread_replaced", "thread", c.ID)
	return c.Clone(), nil
}

// AppendMessage appends a message to the thread's sequence. A message id is
// appended exactly once; re-appending an existing id is rejected.
func (s *Store) AppendMessage(threadID string, msg models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, err := s.getLocked(threadID)
	if err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, models.Validation("message id required")
	}
	if existing, _ := th.Message(msg.ID); existing != nil {
		return nil, models.Validation(fmt.Sprintf("message %s already in thread %s", msg.ID, threadID))
	}
	if msg.CreatedTS == 0 {
		msg.CreatedTS = time.Now().UTC().UnixNano()
	}
	if !msg.Status.Valid() {
		return nil, models.Validation(fmt.Sprintf("invalid message status %q", msg.Status))
	}
	th.Messages = append(th.Messages, msg)
	if err := s.putLocked(th); err != nil {
		return nil, err
	}
	logger.Info("message_saved", "thread", threadID, "msg_id", msg.ID, "status", string(msg.Status))
	return &msg, nil
}

// SetMessageStatus transitions a message's status, optionally replacing its
// text and error string, and returns the updated message. A late error
// write against an already-completed message is skipped and the persisted
// message returned unchanged; a completed write may overwrite any prior
// state (explicit retry path).
func (s *Store) SetMessageStatus(threadID, messageID string, status models.Status, text, errText string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !status.Valid() {
		return nil, models.Validation(fmt.Sprintf("invalid message status %q", status))
	}
	th, err := s.getLocked(threadID)
	if err != nil {
		return nil, err
	}
	msg, _ := th.Message(messageID)
	if msg == nil {
		return nil, fmt.Errorf("message %s in thread %s: %w", messageID, threadID, models.ErrNotFound)
	}
	if status == models.StatusError && msg.Status.Terminal() {
		statusRegressionsSkipped.Inc()
		logger.Warn("status_regression_skipped", "thread", threadID, "msg_id", messageID,
			"current", string(msg.Status), "incoming", string(status))
		out := *msg
		return &out, nil
	}
	msg.Status = status
	if text != "" || status == models.StatusError {
		msg.Text = text
	}
	if status == models.StatusError {
		msg.Error = errText
	} else {
		msg.Error = ""
	}
	if err := s.putLocked(th); err != nil {
		return nil, err
	}
	logger.Info("message_status_set", "thread", threadID, "msg_id", messageID, "status", string(status))
	out := *msg
	return &out, nil
}

// List returns all threads in the store.
func (s *Store) List() ([]*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte(threadPrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []*models.Thread
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		var th models.Thread
		if err := json.Unmarshal(v, &th); err != nil {
			logger.Error("list_invalid_thread_json", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, &th)
	}
	return out, iter.Error()
}
