package store

import (
	"errors"
	"testing"

	"github.com/adntgv/gptree/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedThread(t *testing.T, s *Store, id string, msgs ...models.Message) *models.Thread {
	t.Helper()
	th, err := s.Create(&models.Thread{ID: id, Title: "t-" + id, Messages: msgs})
	if err != nil {
		t.Fatalf("Create %s: %v", id, err)
	}
	return th
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a", models.Message{
		ID: "msg-1", Author: models.AuthorUser, Text: "hi", Status: models.StatusCompleted,
	})

	got, err := s.Get("thread-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "t-thread-a" || len(got.Messages) != 1 {
		t.Fatalf("unexpected thread: %+v", got)
	}
	if got.CreatedTS == 0 || got.UpdatedTS == 0 {
		t.Fatalf("timestamps not set: created=%d updated=%d", got.CreatedTS, got.UpdatedTS)
	}
}

func TestGetUnknownThread(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get("thread-missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestCreateDuplicateRejected(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a")
	if _, err := s.Create(&models.Thread{ID: "thread-a", Title: "again"}); !models.IsValidation(err) {
		t.Fatalf("expected validation error; got %v", err)
	}
}

func TestReplaceUnknownThread(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Replace(&models.Thread{ID: "thread-missing"}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestAppendMessage(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a")

	msg := models.Message{ID: "msg-1", Author: models.AuthorUser, Text: "hello", Status: models.StatusCompleted}
	saved, err := s.AppendMessage("thread-a", msg)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if saved.CreatedTS == 0 {
		t.Fatalf("expected CreatedTS to be filled")
	}

	// same id again is rejected, the sequence holds exactly one copy
	if _, err := s.AppendMessage("thread-a", msg); !models.IsValidation(err) {
		t.Fatalf("expected validation error on duplicate id; got %v", err)
	}
	got, _ := s.Get("thread-a")
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message; got %d", len(got.Messages))
	}
}

func TestAppendMessageInvalidStatus(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a")
	msg := models.Message{ID: "msg-1", Author: models.AuthorUser, Status: "half-done"}
	if _, err := s.AppendMessage("thread-a", msg); !models.IsValidation(err) {
		t.Fatalf("expected validation error; got %v", err)
	}
}

func TestSetMessageStatusTransitions(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a", models.Message{
		ID: "msg-1", Author: models.AuthorAssistant, Status: models.StatusPending,
	})

	upd, err := s.SetMessageStatus("thread-a", "msg-1", models.StatusGenerating, "", "")
	if err != nil {
		t.Fatalf("SetMessageStatus: %v", err)
	}
	if upd.Status != models.StatusGenerating {
		t.Fatalf("expected generating; got %s", upd.Status)
	}

	upd, err = s.SetMessageStatus("thread-a", "msg-1", models.StatusCompleted, "answer", "")
	if err != nil {
		t.Fatalf("SetMessageStatus: %v", err)
	}
	if upd.Status != models.StatusCompleted || upd.Text != "answer" {
		t.Fatalf("unexpected message after completion: %+v", upd)
	}
}

func TestErrorNeverOverwritesCompleted(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a", models.Message{
		ID: "msg-1", Author: models.AuthorAssistant, Text: "answer", Status: models.StatusCompleted,
	})

	// late failure write loses; the call reports the persisted state
	upd, err := s.SetMessageStatus("thread-a", "msg-1", models.StatusError, "", "boom")
	if err != nil {
		t.Fatalf("SetMessageStatus: %v", err)
	}
	if upd.Status != models.StatusCompleted || upd.Text != "answer" || upd.Error != "" {
		t.Fatalf("completed message was regressed: %+v", upd)
	}

	got, _ := s.Get("thread-a")
	msg, _ := got.Message("msg-1")
	if msg.Status != models.StatusCompleted || msg.Text != "answer" {
		t.Fatalf("persisted message was regressed: %+v", msg)
	}
}

func TestRetryMayLeaveErrorState(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a", models.Message{
		ID: "msg-1", Author: models.AuthorAssistant, Status: models.StatusError, Error: "boom",
	})

	// explicit retry path: pending clears the old error text
	upd, err := s.SetMessageStatus("thread-a", "msg-1", models.StatusPending, "", "")
	if err != nil {
		t.Fatalf("SetMessageStatus: %v", err)
	}
	if upd.Status != models.StatusPending || upd.Error != "" {
		t.Fatalf("expected clean pending message; got %+v", upd)
	}
}

func TestSetMessageStatusUnknownMessage(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a")
	if _, err := s.SetMessageStatus("thread-a", "msg-missing", models.StatusCompleted, "x", ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestListReturnsAllThreads(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a")
	seedThread(t, s, "thread-b")
	seedThread(t, s, "thread-c")

	threads, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(threads) != 3 {
		t.Fatalf("expected 3 threads; got %d", len(threads))
	}
}

func TestDerivedFlagsRecomputedOnWrite(t *testing.T) {
	s := openTestStore(t)
	seedThread(t, s, "thread-a")

	_, err := s.AppendMessage("thread-a", models.Message{
		ID: "msg-1", Author: models.AuthorAssistant, Status: models.StatusPending,
	})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	got, _ := s.Get("thread-a")
	if !got.HasPendingWork || got.HasError {
		t.Fatalf("expected pending work only; got %+v", got)
	}

	if _, err := s.SetMessageStatus("thread-a", "msg-1", models.StatusError, "", "boom"); err != nil {
		t.Fatalf("SetMessageStatus: %v", err)
	}
	got, _ = s.Get("thread-a")
	if got.HasPendingWork || !got.HasError {
		t.Fatalf("expected error flag only; got %+v", got)
	}
}
