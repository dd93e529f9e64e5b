package worker

import (
	"github.com/spec-kit/sla-engine/internal/service"
)

// StartNotificationWorker attaches the notification fan-out to the event bus
// and returns a stop function that drains in-flight deliveries.
func StartNotificationWorker(notificationService *service.NotificationService) (stop func()) {
	if notificationService == nil {
		return func() {}
	}
	notificationService.RegisterHandlers()
	return notificationService.Close
}
