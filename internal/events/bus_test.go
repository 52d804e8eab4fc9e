package events

import (
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus(16)

	sub1 := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber after first subscribe, got %d", bus.SubscriberCount())
	}

	sub2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers after second subscribe, got %d", bus.SubscriberCount())
	}

	bus.Unsubscribe(sub1)
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber after unsubscribe, got %d", bus.SubscriberCount())
	}

	bus.Unsubscribe(sub2)
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after all unsubscribed, got %d", bus.SubscriberCount())
	}
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	bus := NewBus(16)

	if _, err := bus.Emit("info", "node.started", "", nil); err == nil {
		t.Error("expected error for unknown event name")
	}
	if bus.Total() != 0 {
		t.Errorf("rejected event should not be counted, total=%d", bus.Total())
	}
}

func TestBroadcastToSubscribers(t *testing.T) {
	bus := NewBus(16)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	if _, err := bus.Emit("info", "stage.completed", "", map[string]any{"stage": "network"}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	select {
	case e := <-sub:
		if e.Name != "stage.completed" {
			t.Errorf("expected event name 'stage.completed', got '%s'", e.Name)
		}
		if e.Fields["stage"] != "network" {
			t.Errorf("expected stage 'network', got '%v'", e.Fields["stage"])
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for broadcast event")
	}
}

func TestRecentEvents(t *testing.T) {
	bus := NewBus(16)

	for i := 0; i < 10; i++ {
		bus.Emit("info", "log.line", "", map[string]any{"i": i})
	}

	recent := bus.Recent(5)
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent events, got %d", len(recent))
	}
	if recent[0].Fields["i"] != 5 {
		t.Errorf("expected first recent event i=5, got %v", recent[0].Fields["i"])
	}

	if all := bus.Recent(100); len(all) != 10 {
		t.Errorf("expected 10 events when requesting 100, got %d", len(all))
	}
	if zero := bus.Recent(0); len(zero) != 10 {
		t.Errorf("expected 10 events when requesting 0, got %d", len(zero))
	}

	bus.Clear()
	if got := bus.Recent(0); len(got) != 0 {
		t.Errorf("expected empty buffer after Clear, got %d", len(got))
	}
	if bus.Total() != 10 {
		t.Errorf("Clear should not reset total, got %d", bus.Total())
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Add(Event{Fields: map[string]any{"i": i}})
	}

	snap := rb.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	for j, want := range []int{2, 3, 4} {
		if snap[j].Fields["i"] != want {
			t.Errorf("snapshot[%d] = %v, want %d", j, snap[j].Fields["i"], want)
		}
	}
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	bus := NewBus(16)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Emit("info", "log.line", "", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full subscriber")
	}
	if len(sub) != subscriberBuffer {
		t.Errorf("expected subscriber buffer full (%d), got %d", subscriberBuffer, len(sub))
	}
}

func TestCloseAllSubscribers(t *testing.T) {
	bus := NewBus(16)
	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()
	sub3 := bus.Subscribe()

	bus.CloseAll()

	_, ok1 := <-sub1
	_, ok2 := <-sub2
	_, ok3 := <-sub3
	if ok1 || ok2 || ok3 {
		t.Error("expected all channels to be closed")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after CloseAll, got %d", bus.SubscriberCount())
	}

	// Unsubscribe after CloseAll must not double-close.
	bus.Unsubscribe(sub1)
}

func TestEmitAssignsIncreasingSeq(t *testing.T) {
	bus := NewBus(16)

	if _, err := bus.Emit("info", "node.bogus", "", nil); err == nil {
		t.Fatal("expected error for unknown event name")
	}
	var last int64
	for i := 0; i < 3; i++ {
		e, err := bus.Emit("info", "stage.completed", "", nil)
		if err != nil {
			t.Fatalf("emit failed: %v", err)
		}
		if e.Seq != last+1 {
			t.Errorf("event %d seq = %d, want %d", i, e.Seq, last+1)
		}
		last = e.Seq
	}
	if bus.Total() != last {
		t.Errorf("total %d should equal newest seq %d", bus.Total(), last)
	}
}
