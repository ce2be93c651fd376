package worker

import (
	"github.com/yakubjanov004/telecom-support-engine/internal/notify"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *notify.Service) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
