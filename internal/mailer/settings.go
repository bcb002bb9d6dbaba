package mailer

import (
	"context"

	"go.uber.org/zap"

	"lynixmail/internal/models"
)

// SettingsSource reads the persisted admin SMTP settings row.
type SettingsSource interface {
	GetSMTP(ctx context.Context) (*models.SMTPConfig, error)
}

// Settings resolves the active SMTP configuration, preferring persisted
// admin settings over environment-derived defaults.
type Settings struct {
	store    SettingsSource
	fallback models.SMTPConfig
	log      *zap.Logger
}

func NewSettings(store SettingsSource, fallback models.SMTPConfig, log *zap.Logger) *Settings {
	fallback.UseTLS = true
	return &Settings{
		store:    store,
		fallback: fallback,
		log:      log,
	}
}

// SMTPConfig never fails: any error reading the persisted settings falls
// back to environment defaults. A config with an empty host or username is
// still returned; the transporter cache treats that as "not configured".
func (s *Settings) SMTPConfig(ctx context.Context) models.SMTPConfig {
	cfg, err := s.store.GetSMTP(ctx)
	if err != nil {
		s.log.Warn("falling back to env SMTP settings", zap.Error(err))
		return s.fallback
	}

	if cfg.Port == 0 {
		cfg.Port = s.fallback.Port
	}
	if cfg.From == "" {
		cfg.From = s.fallback.From
	}
	if cfg.FromName == "" {
		cfg.FromName = s.fallback.FromName
	}

	return *cfg
}
