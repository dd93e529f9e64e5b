package service

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/livefeed"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/webhook"
)

// Broadcaster delivers one event to a set of subscriptions.
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.EventType, payload any, ownerID string, subs []domain.WebhookSubscription) (webhook.BroadcastResult, error)
}

// NotificationService forwards bus events to webhook subscribers and the
// live feed. Deliveries run in background goroutines bound to the service
// context so event publishers never wait on the network.
type NotificationService struct {
	dispatcher  events.Dispatcher
	webhooks    repository.WebhookRepository
	broadcaster Broadcaster
	feed        livefeed.Registry
	logger      *zap.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	mu          sync.Mutex
	closed      bool
	wg          sync.WaitGroup
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	WebhookRepo repository.WebhookRepository
	Broadcaster Broadcaster
	LiveFeed    livefeed.Registry
	Logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	ctx, cancel := context.WithCancel(context.Background())
	n := &NotificationService{
		dispatcher:  deps.Dispatcher,
		webhooks:    deps.WebhookRepo,
		broadcaster: deps.Broadcaster,
		feed:        deps.LiveFeed,
		logger:      deps.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

// RegisterHandlers subscribes to every engine event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	unsubscribe := n.dispatcher.Subscribe(n.handleEvent)
	n.mu.Lock()
	n.unsubscribe = unsubscribe
	n.mu.Unlock()
}

func (n *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.wg.Add(1)
	n.mu.Unlock()
	go func() {
		defer n.wg.Done()
		n.publishFeed(n.ctx, event)
		n.deliverWebhooks(n.ctx, event)
	}()
	return nil
}

func (n *NotificationService) deliverWebhooks(ctx context.Context, event events.Event) {
	if n.webhooks == nil || n.broadcaster == nil || event.OwnerID == "" {
		return
	}
	subs, err := n.webhooks.ListByOwner(ctx, event.OwnerID)
	if err != nil {
		n.logger.Warn("load webhook subscriptions failed",
			zap.String("owner_id", event.OwnerID),
			zap.Error(err))
		return
	}
	result, err := n.broadcaster.Broadcast(ctx, event.Type, event.Payload, event.OwnerID, subs)
	if err != nil {
		n.logger.Warn("broadcast failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return
	}
	if result.Matched > 0 {
		n.logger.Debug("webhook broadcast",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Int("matched", result.Matched),
			zap.Int("delivered", result.Delivered),
			zap.Int("failed", result.Failed))
	}
}

func (n *NotificationService) publishFeed(ctx context.Context, event events.Event) {
	if n.feed == nil || event.OwnerID == "" {
		return
	}
	data, err := json.Marshal(event.Payload)
	if err != nil {
		n.logger.Warn("encode live feed payload failed", zap.Error(err))
		return
	}
	msg := livefeed.Message{
		Event:     string(event.Type),
		OwnerID:   event.OwnerID,
		Timestamp: event.Timestamp,
		Data:      data,
	}
	if err := n.feed.Publish(ctx, msg); err != nil {
		n.logger.Warn("live feed publish failed", zap.String("owner_id", event.OwnerID), zap.Error(err))
	}
}

// Wait blocks until in-flight deliveries finish.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

// Close cancels in-flight deliveries and waits for them to return.
func (n *NotificationService) Close() {
	n.mu.Lock()
	n.closed = true
	unsubscribe := n.unsubscribe
	n.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	n.cancel()
	n.wg.Wait()
}
