package livefeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestMemoryRegistry_DeliversToOwnerOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRegistry()
	mine, _ := r.Subscribe(ctx, "o1")
	defer mine.Close()
	theirs, _ := r.Subscribe(ctx, "o2")
	defer theirs.Close()

	msg := Message{Event: "alert.created", OwnerID: "o1", Data: json.RawMessage(`{"x":1}`)}
	if err := r.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-mine.C:
		if got.Event != "alert.created" {
			t.Errorf("event = %q", got.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	select {
	case got := <-theirs.C:
		t.Errorf("other owner received %+v", got)
	default:
	}
}

func TestMemoryRegistry_CloseAndContextCancel(t *testing.T) {
	t.Parallel()

	r := NewMemoryRegistry()
	sub, _ := r.Subscribe(context.Background(), "o1")
	sub.Close()
	sub.Close()
	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub2, _ := r.Subscribe(ctx, "o1")
	if r.SubscriberCount("o1") != 1 {
		t.Fatalf("subscribers = %d, want 1", r.SubscriberCount("o1"))
	}
	cancel()
	select {
	case _, ok := <-sub2.C:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	if r.SubscriberCount("o1") != 0 {
		t.Errorf("subscribers = %d, want 0", r.SubscriberCount("o1"))
	}
}

func TestMemoryRegistry_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRegistry()
	sub, _ := r.Subscribe(ctx, "o1")
	defer sub.Close()

	for i := 0; i < subscriberBuffer*2; i++ {
		_ = r.Publish(ctx, Message{OwnerID: "o1"})
	}
	if len(sub.C) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(sub.C), subscriberBuffer)
	}
}
