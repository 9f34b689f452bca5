package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hcissey0/fitpal-notify/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`

	APIBaseURL           string `envconfig:"API_BASE_URL" required:"true"`
	APIToken             string `envconfig:"API_TOKEN" required:"true"`
	APIRequestsPerMinute int    `envconfig:"API_REQUESTS_PER_MINUTE" default:"60"`

	DBPath           string        `envconfig:"DB_PATH" default:"./data/fitpal-notify.db"`
	JournalRetention time.Duration `envconfig:"JOURNAL_RETENTION" default:"720h"`
	DefaultTZ        string        `envconfig:"DEFAULT_TZ" default:"UTC"`

	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	RebuildCron     string        `envconfig:"REBUILD_CRON" default:"1 0 * * *"`

	NotificationIcon  string        `envconfig:"NOTIFICATION_ICON" default:"/icon.png"`
	DeliveryTimeout   time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"10s"`
	DeliveryPerMinute int           `envconfig:"DELIVERY_PER_MINUTE" default:"30"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
	PushoverToken    string `envconfig:"PUSHOVER_TOKEN"`
	PushoverUser     string `envconfig:"PUSHOVER_USER"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location returns the configured fallback zone, or UTC if it does not resolve.
func (c Config) Location() *time.Location {
	return domain.LoadLocation(c.DefaultTZ, time.UTC)
}

func (c Config) TelegramEnabled() bool { return c.TelegramBotToken != "" && c.TelegramChatID != 0 }

func (c Config) PushoverEnabled() bool { return c.PushoverToken != "" && c.PushoverUser != "" }
