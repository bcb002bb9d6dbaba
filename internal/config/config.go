package config

import "github.com/kelseyhightower/envconfig"

type Config struct {
	// ----------------------------
	// SMTP fallbacks (used when admin settings are unavailable)
	// ----------------------------
	SMTPHost     string `envconfig:"SMTP_HOST" default:""`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@lynixdevs.us"`
	SMTPFromName string `envconfig:"SMTP_FROM_NAME" default:"LynixDevs"`
	SMTPReplyTo  string `envconfig:"SMTP_REPLY_TO" default:""`

	// ----------------------------
	// Site context injected into template variables
	// ----------------------------
	SiteURL     string `envconfig:"SITE_URL" default:"https://lynixdevs.us"`
	CompanyName string `envconfig:"COMPANY_NAME" default:"LynixDevs"`
	AdminEmail  string `envconfig:"ADMIN_EMAIL" default:"admin@lynixdevs.us"`

	// ----------------------------
	// Broadcast
	// ----------------------------
	BroadcastRateLimit int `envconfig:"BROADCAST_RATE_LIMIT" default:"10"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort       string `envconfig:"API_PORT" default:"8080"`
	AdminAPIToken string `envconfig:"ADMIN_API_TOKEN" default:""`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Database
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
