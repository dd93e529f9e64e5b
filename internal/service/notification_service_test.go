package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/livefeed"
	"github.com/spec-kit/sla-engine/internal/repository/memory"
	"github.com/spec-kit/sla-engine/internal/webhook"
)

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []domain.EventType
	subs  int
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, event domain.EventType, _ any, _ string, subs []domain.WebhookSubscription) (webhook.BroadcastResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, event)
	b.subs = len(subs)
	return webhook.BroadcastResult{Event: event, Matched: len(subs)}, nil
}

func TestNotificationService_FansOutToWebhooksAndFeed(t *testing.T) {
	t.Parallel()

	bus := events.NewInMemoryDispatcher()
	hooks := memory.NewWebhookRepository()
	_ = hooks.Create(context.Background(), &domain.WebhookSubscription{OwnerID: "o1", URL: "https://example.com", Active: true,
		Events: []domain.EventType{domain.EventAlertCreated}})
	broadcaster := &fakeBroadcaster{}
	feed := livefeed.NewMemoryRegistry()

	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:  bus,
		WebhookRepo: hooks,
		Broadcaster: broadcaster,
		LiveFeed:    feed,
	})
	svc.RegisterHandlers()
	defer svc.Close()

	sub, err := feed.Subscribe(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	err = bus.Publish(context.Background(), events.Event{
		ID:        "e1",
		Type:      domain.EventAlertCreated,
		OwnerID:   "o1",
		TicketID:  "t1",
		Timestamp: testNow,
		Payload:   events.AlertPayload{AlertID: "al1", TicketID: "t1"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	svc.Wait()

	broadcaster.mu.Lock()
	if len(broadcaster.calls) != 1 || broadcaster.calls[0] != domain.EventAlertCreated || broadcaster.subs != 1 {
		t.Errorf("broadcasts = %v (subs %d)", broadcaster.calls, broadcaster.subs)
	}
	broadcaster.mu.Unlock()

	select {
	case msg := <-sub.C:
		if msg.Event != string(domain.EventAlertCreated) || len(msg.Data) == 0 {
			t.Errorf("feed message = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no live feed message")
	}
}

func TestNotificationService_IgnoresEventsAfterClose(t *testing.T) {
	t.Parallel()

	bus := events.NewInMemoryDispatcher()
	broadcaster := &fakeBroadcaster{}
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:  bus,
		WebhookRepo: memory.NewWebhookRepository(),
		Broadcaster: broadcaster,
	})
	svc.RegisterHandlers()
	svc.Close()

	_ = bus.Publish(context.Background(), events.Event{Type: domain.EventEmailReceived, OwnerID: "o1"})
	svc.Wait()

	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if len(broadcaster.calls) != 0 {
		t.Errorf("broadcasts after close = %v", broadcaster.calls)
	}
}

func TestNotificationService_CloseUnsubscribes(t *testing.T) {
	t.Parallel()

	bus := events.NewInMemoryDispatcher()
	hooks := memory.NewWebhookRepository()
	_ = hooks.Create(context.Background(), &domain.WebhookSubscription{OwnerID: "o1", URL: "https://example.com", Active: true,
		Events: []domain.EventType{domain.EventSLABreached}})
	broadcaster := &fakeBroadcaster{}

	svc := NewNotificationService(NotificationDependencies{Dispatcher: bus, WebhookRepo: hooks, Broadcaster: broadcaster})
	svc.RegisterHandlers()
	svc.Close()

	if err := bus.Publish(context.Background(), events.Event{Type: domain.EventSLABreached, OwnerID: "o1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	svc.Wait()

	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if len(broadcaster.calls) != 0 {
		t.Errorf("broadcasts after Close = %v", broadcaster.calls)
	}
}
