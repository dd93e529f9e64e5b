package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/livefeed"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
	feedHeartbeat     = 15 * time.Second
)

// AlertMonitor runs scans and lists alerts. *service.AlertService satisfies it.
type AlertMonitor interface {
	Scan(ctx context.Context, ownerID string) (service.ScanResult, error)
	ListAlerts(ctx context.Context, ownerID string, limit int) ([]domain.Alert, error)
}

// MonitorHandler exposes SLA scans, alerts and the live feed.
type MonitorHandler struct {
	alerts    AlertMonitor
	feed      livefeed.Registry
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewMonitorHandler constructs handler.
func NewMonitorHandler(alerts AlertMonitor, feed livefeed.Registry, logger *zap.Logger) *MonitorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorHandler{alerts: alerts, feed: feed, logger: logger, heartbeat: feedHeartbeat}
}

// ScanSLA POST|GET /monitor/sla runs one scan over the caller's tickets.
func (h *MonitorHandler) ScanSLA(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	result, err := h.alerts.Scan(c.UserContext(), principal.OwnerID)
	if err != nil {
		if !result.Partial {
			return apperrors.MapError(err)
		}
		// Alerts already created are reported rather than lost.
		h.logger.Warn("sla scan interrupted",
			zap.String("owner_id", principal.OwnerID),
			zap.Int("emails_checked", result.EmailsChecked),
			zap.Int("alerts_created", result.AlertsCreated),
			zap.Error(err))
	}
	return c.JSON(result)
}

// ListAlerts GET /alerts?limit=.
func (h *MonitorHandler) ListAlerts(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", defaultAlertLimit)
	if limit <= 0 || limit > maxAlertLimit {
		return apperrors.NewValidationError("limit out of range", map[string]any{"max": maxAlertLimit})
	}
	alerts, err := h.alerts.ListAlerts(c.UserContext(), principal.OwnerID, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": alerts})
}

// Feed GET /monitor/feed streams the caller's events as Server-Sent Events.
func (h *MonitorHandler) Feed(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if h.feed == nil {
		return apperrors.NewDomainError("FEED_UNAVAILABLE", "live feed not configured", fiber.StatusServiceUnavailable, nil)
	}

	// The stream outlives the handler, so it cannot use the request context.
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := h.feed.Subscribe(ctx, principal.OwnerID)
	if err != nil {
		cancel()
		return apperrors.MapError(err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ownerID := principal.OwnerID
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Close()
		h.stream(w, sub, ownerID)
	})
	return nil
}

func (h *MonitorHandler) stream(w *bufio.Writer, sub *livefeed.Subscription, ownerID string) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil || w.Flush() != nil {
		return
	}
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(w, msg); err != nil {
				h.logger.Debug("live feed client gone", zap.String("owner_id", ownerID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil || w.Flush() != nil {
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, msg livefeed.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data); err != nil {
		return err
	}
	return w.Flush()
}
