package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// SubscribeRequest payload.
type SubscribeRequest struct {
	URL     string            `json:"url"`
	Events  []string          `json:"events"`
	Headers map[string]string `json:"headers"`
}

// SubscriptionResponse describes a subscription. Secret is set only on creation.
type SubscriptionResponse struct {
	ID              string             `json:"id"`
	URL             string             `json:"url"`
	Events          []domain.EventType `json:"events"`
	Headers         map[string]string  `json:"headers"`
	Active          bool               `json:"active"`
	RetryCount      int                `json:"retryCount"`
	LastStatus      *int               `json:"lastStatus,omitempty"`
	LastError       *string            `json:"lastError,omitempty"`
	LastTriggeredAt *time.Time         `json:"lastTriggeredAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	Secret          string             `json:"secret,omitempty"`
}

// NewSubscriptionResponse maps a subscription without its secret.
func NewSubscriptionResponse(s *domain.WebhookSubscription) SubscriptionResponse {
	headers := s.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return SubscriptionResponse{
		ID:              s.ID,
		URL:             s.URL,
		Events:          s.Events,
		Headers:         headers,
		Active:          s.Active,
		RetryCount:      s.RetryCount,
		LastStatus:      s.LastStatus,
		LastError:       s.LastError,
		LastTriggeredAt: s.LastTriggeredAt,
		CreatedAt:       s.CreatedAt,
	}
}
