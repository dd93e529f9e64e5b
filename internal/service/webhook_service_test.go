package service

import (
	"context"
	"strings"
	"testing"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository/memory"
	"github.com/spec-kit/sla-engine/internal/webhook"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

func TestSubscribe_GeneratesSecretAndDedupesEvents(t *testing.T) {
	t.Parallel()

	repo := memory.NewWebhookRepository()
	svc := NewWebhookService(WebhookDependencies{WebhookRepo: repo, RetryCount: 3})

	sub, err := svc.Subscribe(context.Background(), SubscribeInput{
		OwnerID: "o1",
		URL:     "https://hooks.example.com/sla",
		Events:  []string{"email.received", "alert.created", "email.received"},
		Headers: map[string]string{"X-Tenant": "acme", " ": "dropped"},
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !strings.HasPrefix(sub.Secret, "whsec_") || len(sub.Secret) != len("whsec_")+64 {
		t.Errorf("secret = %q", sub.Secret)
	}
	if len(sub.Events) != 2 || sub.RetryCount != 3 || !sub.Active {
		t.Errorf("sub = %+v", sub)
	}
	if len(sub.Headers) != 1 || sub.Headers["X-Tenant"] != "acme" {
		t.Errorf("headers = %v", sub.Headers)
	}

	other, _ := svc.Subscribe(context.Background(), SubscribeInput{OwnerID: "o1", URL: "http://localhost:9000/h", Events: []string{"sla.breached"}})
	if other.Secret == sub.Secret {
		t.Error("secrets should differ per subscription")
	}

	subs, err := svc.List(context.Background(), "o1")
	if err != nil || len(subs) != 2 {
		t.Fatalf("List = %d, %v", len(subs), err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	t.Parallel()

	svc := NewWebhookService(WebhookDependencies{WebhookRepo: memory.NewWebhookRepository()})
	tests := []struct {
		name  string
		input SubscribeInput
	}{
		{"relative url", SubscribeInput{URL: "/hooks", Events: []string{"email.received"}}},
		{"ftp scheme", SubscribeInput{URL: "ftp://example.com/x", Events: []string{"email.received"}}},
		{"garbage", SubscribeInput{URL: "not a url", Events: []string{"email.received"}}},
		{"no events", SubscribeInput{URL: "https://example.com/h"}},
		{"unknown event", SubscribeInput{URL: "https://example.com/h", Events: []string{"email.deleted"}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Subscribe(context.Background(), tt.input)
			if de := apperrors.ToDomainError(err); de == nil || de.Code != "VALIDATION_FAILED" {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestDelete_OwnerScoped(t *testing.T) {
	t.Parallel()

	svc := NewWebhookService(WebhookDependencies{WebhookRepo: memory.NewWebhookRepository()})
	sub, err := svc.Subscribe(context.Background(), SubscribeInput{OwnerID: "o1", URL: "https://example.com/h", Events: []string{string(domain.EventSLAWarning)}})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	err = svc.Delete(context.Background(), "o2", sub.ID)
	if de := apperrors.ToDomainError(err); de == nil || de.Code != "NOT_FOUND" {
		t.Fatalf("foreign delete err = %v, want not found", err)
	}
	if err := svc.Delete(context.Background(), "o1", ""); err == nil {
		t.Error("empty id should fail")
	}
	if err := svc.Delete(context.Background(), "o1", sub.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	subs, _ := svc.List(context.Background(), "o1")
	if len(subs) != 0 {
		t.Errorf("remaining = %d", len(subs))
	}
}

func TestNewWebhookService_ClampsRetryCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		configured int
		want       int
	}{
		{-1, DefaultRetryCount},
		{0, 0},
		{5, 5},
		{500, webhook.MaxRetryCount},
	}
	for _, tt := range tests {
		tt := tt
		svc := NewWebhookService(WebhookDependencies{WebhookRepo: memory.NewWebhookRepository(), RetryCount: tt.configured})
		sub, err := svc.Subscribe(context.Background(), SubscribeInput{
			OwnerID: "o1",
			URL:     "https://hooks.example.com/sla",
			Events:  []string{"sla.breached"},
		})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		if sub.RetryCount != tt.want {
			t.Errorf("RetryCount(%d) = %d, want %d", tt.configured, sub.RetryCount, tt.want)
		}
	}
}
