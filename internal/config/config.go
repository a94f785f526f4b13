package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/reelforge/reelforge/internal/service/generator"
	"github.com/reelforge/reelforge/internal/service/media"
	"github.com/reelforge/reelforge/internal/service/notify"
	"github.com/reelforge/reelforge/internal/service/publisher"
	"github.com/reelforge/reelforge/internal/service/render"
	"github.com/reelforge/reelforge/internal/service/voice"
	"github.com/reelforge/reelforge/pkg/logger"
)

type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Database  DatabaseConfig            `yaml:"database"`
	Logger    logger.Config             `yaml:"logger"`
	Pipeline  PipelineConfig            `yaml:"pipeline"`
	Scheduler SchedulerConfig           `yaml:"scheduler"`
	Generator generator.Config          `yaml:"generator"`
	Render    render.Config             `yaml:"render"`
	Voice     voice.Config              `yaml:"voice"`
	Media     media.Config              `yaml:"media"`
	Instagram publisher.InstagramConfig `yaml:"instagram"`
	Telegram  notify.TelegramConfig     `yaml:"telegram"`
	WhatsApp  notify.WhatsAppConfig     `yaml:"whatsapp"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// OperatorToken guards the operator API; CronSecret guards the
	// cadence endpoints. One shared secret per inbound surface.
	// OperatorTOTPSecret optionally allows one-time codes on the
	// operator API instead of the static token.
	OperatorToken      string `yaml:"operator_token"`
	OperatorTOTPSecret string `yaml:"operator_totp_secret"`
	CronSecret         string `yaml:"cron_secret"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type PipelineConfig struct {
	// DailyVariants is how many independent drafts to produce per day.
	DailyVariants int `yaml:"daily_variants"`
	// PublishHourUTC is the default hour used when a schedule command
	// carries no explicit time.
	PublishHourUTC int `yaml:"publish_hour_utc"`
}

type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SweepInterval string `yaml:"sweep_interval"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5380
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Pipeline.DailyVariants == 0 {
		cfg.Pipeline.DailyVariants = 3
	}
	if cfg.Pipeline.PublishHourUTC == 0 {
		cfg.Pipeline.PublishHourUTC = 17
	}
	if cfg.Scheduler.SweepInterval == "" {
		cfg.Scheduler.SweepInterval = "1m"
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Generator.APIVersion == "" {
		cfg.Generator.APIVersion = "2023-06-01"
	}
	if cfg.Render.BaseURL == "" {
		cfg.Render.BaseURL = "https://api.creatomate.com"
	}
	if cfg.Voice.BaseURL == "" {
		cfg.Voice.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Instagram.BaseURL == "" {
		cfg.Instagram.BaseURL = "https://graph.facebook.com/v19.0"
	}

	return cfg, nil
}
