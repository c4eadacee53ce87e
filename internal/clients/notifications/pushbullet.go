package notifications

import (
	"fmt"

	"github.com/xconstruct/go-pushbullet"

	"mamarr/internal/models"
	"mamarr/internal/utils"
)

// PushbulletClient implements the Notifier interface for Pushbullet.
type PushbulletClient struct {
	pb     *pushbullet.Client
	logger *utils.Logger
}

func NewPushbulletClient(apiKey string, logger *utils.Logger) *PushbulletClient {
	return &PushbulletClient{
		pb:     pushbullet.New(apiKey),
		logger: logger,
	}
}

func (c *PushbulletClient) Name() string {
	return "pushbullet"
}

// sendPush sends a note to all of the user's devices. The first argument to
// PushNote is the device iden; empty means all devices.
func (c *PushbulletClient) sendPush(title, body string) error {
	return c.pb.PushNote("", title, body)
}

func (c *PushbulletClient) NotifyJobComplete(job models.DownloadJob) error {
	title := fmt.Sprintf("Audiobook Ready: %s", job.Release.Title)
	body := fmt.Sprintf("Post-processing complete, library path: %s", job.DestinationPath)
	if err := c.sendPush(title, body); err != nil {
		c.logger.Error("Error sending Pushbullet notification:", err)
		return err
	}
	return nil
}

func (c *PushbulletClient) NotifyJobFailed(job models.DownloadJob) error {
	title := fmt.Sprintf("Download Failed: %s", job.Release.Title)
	body := job.Message
	if body == "" {
		body = "Download job failed"
	}
	if err := c.sendPush(title, body); err != nil {
		c.logger.Error("Error sending Pushbullet notification:", err)
		return err
	}
	return nil
}

// Test verifies the API key is valid by fetching user info.
func (c *PushbulletClient) Test() error {
	_, err := c.pb.Me()
	if err != nil {
		return fmt.Errorf("pushbullet authentication failed: %w", err)
	}
	return nil
}
