package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/webhook"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

const (
	secretPrefix      = "whsec_"
	secretBytes       = 32
	DefaultRetryCount = 3
)

// WebhookService manages webhook subscriptions.
type WebhookService struct {
	webhooks   repository.WebhookRepository
	retryCount int
}

// WebhookDependencies bundles collaborators.
type WebhookDependencies struct {
	WebhookRepo repository.WebhookRepository
	RetryCount  int
}

// SubscribeInput describes a new subscription.
type SubscribeInput struct {
	OwnerID string
	URL     string
	Events  []string
	Headers map[string]string
}

// NewWebhookService creates the service.
func NewWebhookService(deps WebhookDependencies) *WebhookService {
	retries := deps.RetryCount
	if retries < 0 {
		retries = DefaultRetryCount
	}
	retries = min(retries, webhook.MaxRetryCount)
	return &WebhookService{webhooks: deps.WebhookRepo, retryCount: retries}
}

// Subscribe validates and stores a subscription. The returned value carries
// the generated signing secret; it is not exposed again.
func (s *WebhookService) Subscribe(ctx context.Context, input SubscribeInput) (*domain.WebhookSubscription, error) {
	endpoint, err := validateEndpoint(input.URL)
	if err != nil {
		return nil, err
	}
	eventTypes, err := parseEvents(input.Events)
	if err != nil {
		return nil, err
	}
	secret, err := generateSecret()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	sub := &domain.WebhookSubscription{
		ID:         uuid.NewString(),
		OwnerID:    input.OwnerID,
		URL:        endpoint,
		Events:     eventTypes,
		Secret:     secret,
		Headers:    cleanHeaders(input.Headers),
		Active:     true,
		RetryCount: s.retryCount,
	}
	if err := s.webhooks.Create(ctx, sub); err != nil {
		return nil, apperrors.MapError(err)
	}
	return sub, nil
}

// List returns the owner's subscriptions.
func (s *WebhookService) List(ctx context.Context, ownerID string) ([]domain.WebhookSubscription, error) {
	subs, err := s.webhooks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if subs == nil {
		subs = []domain.WebhookSubscription{}
	}
	return subs, nil
}

// Delete removes one of the owner's subscriptions.
func (s *WebhookService) Delete(ctx context.Context, ownerID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("id is required", nil)
	}
	if err := s.webhooks.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NewNotFound("webhook subscription", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func validateEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperrors.NewValidationError("url must be an absolute http(s) URL", map[string]any{"url": raw})
	}
	return raw, nil
}

func parseEvents(raw []string) ([]domain.EventType, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewValidationError("at least one event is required", nil)
	}
	seen := make(map[domain.EventType]struct{}, len(raw))
	result := make([]domain.EventType, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if !domain.ValidEventType(name) {
			return nil, apperrors.NewValidationError("unknown event type", map[string]any{"event": name})
		}
		e := domain.EventType(name)
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		result = append(result, e)
	}
	return result, nil
}

func cleanHeaders(headers map[string]string) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		result[k] = v
	}
	return result
}

func generateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return secretPrefix + hex.EncodeToString(b), nil
}
