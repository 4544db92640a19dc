package worker

import (
	"github.com/spec-kit/support-chat-service/internal/service"
)

// StartSubscribers registers the event handlers that fan case events out to
// connected sockets and notification endpoints. Call once during startup,
// before the HTTP server begins accepting traffic.
func StartSubscribers(broadcast *service.BroadcastService, notifications *service.NotificationService) {
	if broadcast != nil {
		broadcast.RegisterHandlers()
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
}
