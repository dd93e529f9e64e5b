package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// WebhooksHandler manages webhook subscriptions.
type WebhooksHandler struct {
	service *service.WebhookService
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(webhookService *service.WebhookService) *WebhooksHandler {
	return &WebhooksHandler{service: webhookService}
}

// Subscribe POST /webhooks/subscribe.
func (h *WebhooksHandler) Subscribe(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sub, err := h.service.Subscribe(c.UserContext(), service.SubscribeInput{
		OwnerID: principal.OwnerID,
		URL:     req.URL,
		Events:  req.Events,
		Headers: req.Headers,
	})
	if err != nil {
		return err
	}
	resp := dto.NewSubscriptionResponse(sub)
	resp.Secret = sub.Secret
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

// List GET /webhooks/subscribe.
func (h *WebhooksHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	subs, err := h.service.List(c.UserContext(), principal.OwnerID)
	if err != nil {
		return err
	}
	items := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		items = append(items, dto.NewSubscriptionResponse(&subs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Delete DELETE /webhooks/subscribe?id=.
func (h *WebhooksHandler) Delete(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), principal.OwnerID, c.Query("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
