package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port     int    `yaml:"port"`
	APIKey   string `yaml:"api_key"`
	DataPath string `yaml:"data_path"`
	Debug    bool   `yaml:"debug"`
}

type TrackerConfig struct {
	BaseURL          string `yaml:"base_url"`
	SessionID        string `yaml:"session_id"`
	IndexerID        int    `yaml:"indexer_id"`
	IndexerName      string `yaml:"indexer_name"`
	CategoryID       int    `yaml:"category_id"`
	SearchTTLSeconds int    `yaml:"search_ttl_seconds"`
	DownloadEndpoint string `yaml:"download_endpoint"`
	Languages        []int  `yaml:"languages"`
}

type TorrentClientConfig struct {
	Provider string `yaml:"provider"` // 'transmission', 'qbittorrent' or 'mock'

	TransmissionURL      string `yaml:"transmission_url"`
	TransmissionUsername string `yaml:"transmission_username"`
	TransmissionPassword string `yaml:"transmission_password"`

	QbitURL      string `yaml:"qbittorrent_url"`
	QbitUsername string `yaml:"qbittorrent_username"`
	QbitPassword string `yaml:"qbittorrent_password"`

	Category    string `yaml:"category"`
	StartPaused bool   `yaml:"start_paused"`
}

type SeedingConfig struct {
	TargetHours           float64  `yaml:"target_hours"`
	CheckIntervalSeconds  int      `yaml:"check_interval_seconds"`
	RatioLimit            *float64 `yaml:"ratio_limit"`
	TimeLimitMinutes      *int     `yaml:"time_limit_minutes"`
	RemoveAfterProcessing bool     `yaml:"remove_after_processing"`
}

type PostProcessConfig struct {
	OutputDir   string `yaml:"output_dir"`
	TmpDir      string `yaml:"tmp_dir"`
	EnableMerge bool   `yaml:"enable_merge"`
}

type AutomationConfig struct {
	WorkerCount int `yaml:"worker_count"`
	QueueSize   int `yaml:"queue_size"`
}

type NotificationsConfig struct {
	PushbulletAPIKey string `yaml:"pushbullet_api_key"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	App           AppConfig           `yaml:"app"`
	Tracker       TrackerConfig       `yaml:"tracker"`
	TorrentClient TorrentClientConfig `yaml:"torrent_client"`
	Seeding       SeedingConfig       `yaml:"seeding"`
	PostProcess   PostProcessConfig   `yaml:"post_process"`
	Automation    AutomationConfig    `yaml:"automation"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Database      DatabaseConfig      `yaml:"database"`
	UseMockData   bool                `yaml:"use_mock_data"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.App.Port = 8089
	cfg.App.APIKey = "dev-mam-service-key"
	cfg.App.DataPath = "./data"
	cfg.App.Debug = false

	cfg.Tracker.BaseURL = "https://www.myanonamouse.net"
	cfg.Tracker.IndexerID = 801001
	cfg.Tracker.IndexerName = "MyAnonamouse"
	cfg.Tracker.CategoryID = 13
	cfg.Tracker.SearchTTLSeconds = 3600
	cfg.Tracker.DownloadEndpoint = "/torrents.php?action=download&id=%s"

	cfg.TorrentClient.Provider = "transmission"

	cfg.Seeding.TargetHours = 72
	cfg.Seeding.CheckIntervalSeconds = 300
	cfg.Seeding.RemoveAfterProcessing = true

	cfg.PostProcess.OutputDir = "/mnt/storage/audiobooks"
	cfg.PostProcess.TmpDir = os.TempDir() + "/mamarr"
	cfg.PostProcess.EnableMerge = true

	cfg.Automation.WorkerCount = 1
	cfg.Automation.QueueSize = 100

	cfg.Database.Path = "./data/mamarr.db"
}

// Validate catches configuration mistakes that would only surface as opaque
// runtime failures, such as enabling a provider without its URL.
func (c *Config) Validate() error {
	switch c.TorrentClient.Provider {
	case "transmission":
		if !c.UseMockData && c.TorrentClient.TransmissionURL == "" {
			return fmt.Errorf("transmission is enabled but transmission_url is not set")
		}
	case "qbittorrent":
		if !c.UseMockData && c.TorrentClient.QbitURL == "" {
			return fmt.Errorf("qbittorrent is enabled but qbittorrent_url is not set")
		}
	case "mock":
	default:
		return fmt.Errorf("unsupported torrent client provider: %s", c.TorrentClient.Provider)
	}
	if c.Automation.WorkerCount < 1 {
		return fmt.Errorf("automation worker_count must be at least 1")
	}
	return nil
}
