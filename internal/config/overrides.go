package config

import (
	"fmt"
	"strconv"
)

// ApplyOverrides layers persisted settings on top of the file configuration.
// Keys are dotted paths matching the YAML layout; unknown keys are reported
// so a stale database row cannot silently change nothing.
func (c *Config) ApplyOverrides(overrides map[string]string) error {
	for key, value := range overrides {
		if err := c.applyOverride(key, value); err != nil {
			return fmt.Errorf("invalid settings override %q: %w", key, err)
		}
	}
	return nil
}

func (c *Config) applyOverride(key, value string) error {
	switch key {
	case "app.api_key":
		c.App.APIKey = value
	case "tracker.base_url":
		c.Tracker.BaseURL = value
	case "tracker.session_id":
		c.Tracker.SessionID = value
	case "torrent_client.provider":
		c.TorrentClient.Provider = value
	case "torrent_client.transmission_url":
		c.TorrentClient.TransmissionURL = value
	case "torrent_client.transmission_username":
		c.TorrentClient.TransmissionUsername = value
	case "torrent_client.transmission_password":
		c.TorrentClient.TransmissionPassword = value
	case "torrent_client.qbittorrent_url":
		c.TorrentClient.QbitURL = value
	case "torrent_client.qbittorrent_username":
		c.TorrentClient.QbitUsername = value
	case "torrent_client.qbittorrent_password":
		c.TorrentClient.QbitPassword = value
	case "seeding.target_hours":
		hours, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		c.Seeding.TargetHours = hours
	case "seeding.remove_after_processing":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.Seeding.RemoveAfterProcessing = enabled
	case "post_process.output_dir":
		c.PostProcess.OutputDir = value
	case "post_process.enable_merge":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.PostProcess.EnableMerge = enabled
	case "use_mock_data":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.UseMockData = enabled
	default:
		return fmt.Errorf("unknown setting")
	}
	return nil
}
