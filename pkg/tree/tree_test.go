package tree

import (
	"errors"
	"testing"

	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/notify"
	"github.com/adntgv/gptree/pkg/store"
)

func setupManager(t *testing.T) (*Manager, *store.Store, *notify.Bus) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	bus := notify.NewBus(16)
	return NewManager(st, bus), st, bus
}

func mustSeedMessages(t *testing.T, st *store.Store, threadID string, texts ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(texts))
	for i, text := range texts {
		author := models.AuthorUser
		if i%2 == 1 {
			author = models.AuthorAssistant
		}
		id := "msg-" + text
		if _, err := st.AppendMessage(threadID, models.Message{
			ID: id, Author: author, Text: text, Status: models.StatusCompleted,
		}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestCreateRootSeedsSystemMessage(t *testing.T) {
	m, st, _ := setupManager(t)

	th, err := m.CreateRoot("my root", nil)
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	if !th.Root() {
		t.Fatalf("expected a root thread; got parent %q", th.ParentID)
	}
	if len(th.Messages) != 1 || th.Messages[0].Author != models.AuthorSystem {
		t.Fatalf("expected one system seed message; got %+v", th.Messages)
	}

	got, err := st.Get(th.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "my root" {
		t.Fatalf("unexpected title %q", got.Title)
	}
}

func TestCreateRootNormalizesSeedMessages(t *testing.T) {
	m, st, _ := setupManager(t)

	th, err := m.CreateRoot("seeded", []models.Message{
		{Author: models.AuthorUser, Text: "imported question"},
		{Author: models.AuthorAssistant, Text: "imported answer"},
	})
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	got, err := st.Get(th.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 seed messages; got %d", len(got.Messages))
	}
	seen := map[string]struct{}{}
	for _, msg := range got.Messages {
		if msg.ID == "" {
			t.Fatalf("seed message persisted without id: %+v", msg)
		}
		if _, dup := seen[msg.ID]; dup {
			t.Fatalf("seed messages share id %s", msg.ID)
		}
		seen[msg.ID] = struct{}{}
		if msg.Status != models.StatusCompleted {
			t.Fatalf("seed status not defaulted to completed: %+v", msg)
		}
		if msg.CreatedTS == 0 {
			t.Fatalf("seed timestamp not filled: %+v", msg)
		}
	}
}

func TestCreateRootRejectsBadSeedMessages(t *testing.T) {
	m, _, _ := setupManager(t)

	_, err := m.CreateRoot("seeded", []models.Message{
		{Author: models.AuthorUser, Text: "x", Status: "half-done"},
	})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error for invalid status; got %v", err)
	}

	_, err = m.CreateRoot("seeded", []models.Message{
		{ID: "msg-same", Author: models.AuthorUser, Text: "a", Status: models.StatusCompleted},
		{ID: "msg-same", Author: models.AuthorAssistant, Text: "b", Status: models.StatusCompleted},
	})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate ids; got %v", err)
	}
}

func TestCreateRootKeepsExplicitSeedFields(t *testing.T) {
	m, st, _ := setupManager(t)

	th, err := m.CreateRoot("seeded", []models.Message{
		{ID: "msg-kept", Author: models.AuthorAssistant, Status: models.StatusError, Error: "boom", CreatedTS: 42},
	})
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	got, _ := st.Get(th.ID)
	msg, _ := got.Message("msg-kept")
	if msg == nil || msg.Status != models.StatusError || msg.CreatedTS != 42 {
		t.Fatalf("explicit seed fields not preserved: %+v", got.Messages)
	}
	if !got.HasError {
		t.Fatalf("derived flags not recomputed for seeded error message")
	}
}

func TestCreateRootRequiresTitle(t *testing.T) {
	m, _, _ := setupManager(t)
	if _, err := m.CreateRoot("", nil); !models.IsValidation(err) {
		t.Fatalf("expected validation error; got %v", err)
	}
}

func TestBranchCopiesFullHistory(t *testing.T) {
	m, st, _ := setupManager(t)
	root, _ := m.CreateRoot("root", nil)
	mustSeedMessages(t, st, root.ID, "a", "b", "c")

	child, err := m.Branch(root.ID, "")
	if err != nil {
		t.Fatalf("Branch: %v", err)
	}
	if child.Title != "Branch of root" {
		t.Fatalf("unexpected default title %q", child.Title)
	}
	if child.ParentID != root.ID || child.ForkPointMessageID != "" {
		t.Fatalf("unexpected lineage: %+v", child)
	}
	// seed message plus three appended
	if len(child.Messages) != 4 {
		t.Fatalf("expected 4 copied messages; got %d", len(child.Messages))
	}

	parent, _ := st.Get(root.ID)
	if len(parent.Children) != 1 || parent.Children[0] != child.ID {
		t.Fatalf("child not linked: %+v", parent.Children)
	}
}

func TestBranchIsIndependentOfSource(t *testing.T) {
	m, st, _ := setupManager(t)
	root, _ := m.CreateRoot("root", nil)
	mustSeedMessages(t, st, root.ID, "a")

	child, err := m.Branch(root.ID, "side")
	if err != nil {
		t.Fatalf("Branch: %v", err)
	}

	// appends on either side must not leak across
	mustSeedMessages(t, st, root.ID, "root-only")
	mustSeedMessages(t, st, child.ID, "child-only")

	gotRoot, _ := st.Get(root.ID)
	gotChild, _ := st.Get(child.ID)
	if _, idx := gotRoot.Message("msg-child-only"); idx >= 0 {
		t.Fatalf("child append leaked into source")
	}
	if _, idx := gotChild.Message("msg-root-only"); idx >= 0 {
		t.Fatalf("source append leaked into child")
	}
}

func TestForkCopiesPrefixInclusive(t *testing.T) {
	m, st, _ := setupManager(t)
	root, _ := m.CreateRoot("root", nil)
	ids := mustSeedMessages(t, st, root.ID, "a", "b", "c", "d")

	child, err := m.ForkAt(root.ID, ids[1], "fork")
	if err != nil {
		t.Fatalf("ForkAt: %v", err)
	}
	if child.ForkPointMessageID != ids[1] {
		t.Fatalf("fork point not recorded: %+v", child)
	}
	// seed + a + b, not c or d
	if len(child.Messages) != 3 {
		t.Fatalf("expected 3 messages; got %d", len(child.Messages))
	}
	last := child.Messages[len(child.Messages)-1]
	if last.ID != ids[1] {
		t.Fatalf("prefix must end at the fork message; ends at %s", last.ID)
	}
}

func TestForkAtUnknownMessage(t *testing.T) {
	m, _, _ := setupManager(t)
	root, _ := m.CreateRoot("root", nil)
	if _, err := m.ForkAt(root.ID, "msg-missing", ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestForkOfUnknownThread(t *testing.T) {
	m, _, _ := setupManager(t)
	if _, err := m.ForkAt("thread-missing", "msg-1", ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestSiblingsAccumulateOnParent(t *testing.T) {
	m, st, _ := setupManager(t)
	root, _ := m.CreateRoot("root", nil)
	ids := mustSeedMessages(t, st, root.ID, "a", "b")

	b1, err := m.Branch(root.ID, "one")
	if err != nil {
		t.Fatalf("Branch: %v", err)
	}
	b2, err := m.ForkAt(root.ID, ids[0], "two")
	if err != nil {
		t.Fatalf("ForkAt: %v", err)
	}

	parent, _ := st.Get(root.ID)
	if len(parent.Children) != 2 || parent.Children[0] != b1.ID || parent.Children[1] != b2.ID {
		t.Fatalf("expected both children linked in order; got %+v", parent.Children)
	}
}

func TestStructureEventsEmitted(t *testing.T) {
	m, _, bus := setupManager(t)
	ch, cancel := bus.Subscribe()
	defer cancel()

	root, err := m.CreateRoot("root", nil)
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	ev := <-ch
	if ev.Kind != models.EventThread {
		t.Fatalf("expected thread event; got %s", ev.Kind)
	}
	payload, err := ev.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p := payload.(models.ThreadEvent); p.Thread.ID != root.ID {
		t.Fatalf("event for wrong thread: %s", p.Thread.ID)
	}

	// branch emits for child then parent
	if _, err := m.Branch(root.ID, "b"); err != nil {
		t.Fatalf("Branch: %v", err)
	}
	first := <-ch
	second := <-ch
	if first.Kind != models.EventThread || second.Kind != models.EventThread {
		t.Fatalf("expected two thread events; got %s, %s", first.Kind, second.Kind)
	}
}
