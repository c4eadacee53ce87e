package notifications

import (
	"mamarr/internal/models"
)

// Notifier pushes job lifecycle events to an external service.
type Notifier interface {
	Name() string
	NotifyJobComplete(job models.DownloadJob) error
	NotifyJobFailed(job models.DownloadJob) error
	Test() error
}
