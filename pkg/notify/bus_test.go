package notify

import (
	"testing"
	"time"

	"github.com/adntgv/gptree/pkg/models"
)

func summaryEv(t *testing.T, threadID, summary string) models.Event {
	t.Helper()
	ev, err := models.NewEvent(models.EventSummary, models.SummaryEvent{ThreadID: threadID, Summary: summary})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return ev
}

func TestPublishFansOut(t *testing.T) {
	b := NewBus(8)
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(summaryEv(t, "thread-a", "s"))

	for i, ch := range []<-chan models.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Kind != models.EventSummary {
				t.Fatalf("subscriber %d got kind %s", i, ev.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received", i)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBus(8)
	ch, cancel := b.Subscribe()
	cancel()
	// cancel is idempotent
	cancel()

	if b.SubscriberCount() != 0 {
		t.Fatalf("subscriber not removed")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBus(1)
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// buffer is 1; the rest must be dropped, not block
		for i := 0; i < 10; i++ {
			b.Publish(summaryEv(t, "thread-a", "s"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on slow subscriber")
	}
}

func TestLateSubscriberGetsNoReplay(t *testing.T) {
	b := NewBus(8)
	b.Publish(summaryEv(t, "thread-a", "before"))

	ch, cancel := b.Subscribe()
	defer cancel()
	select {
	case ev := <-ch:
		t.Fatalf("late subscriber saw replayed event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
