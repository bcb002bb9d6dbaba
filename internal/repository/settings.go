package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lynixmail/internal/models"
)

// SettingsRepository reads and writes the singleton admin_settings row.
// SMTP fields live there so administrators can repoint the relay without a
// deploy.
type SettingsRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SettingsRepository) GetSMTP(ctx context.Context) (*models.SMTPConfig, error) {
	query := r.sb.
		Select(
			"smtp_host", "smtp_port", "smtp_username", "smtp_password",
			"smtp_use_tls", "smtp_reply_to", "from_email", "from_name",
		).
		From("admin_settings").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get smtp settings sql: %w", err)
	}

	var cfg models.SMTPConfig
	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(
		&cfg.Host,
		&cfg.Port,
		&cfg.Username,
		&cfg.Password,
		&cfg.UseTLS,
		&cfg.ReplyTo,
		&cfg.From,
		&cfg.FromName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get smtp settings: %w", err)
	}

	return &cfg, nil
}

// UpsertSMTP replaces the singleton row's SMTP fields. Callers must
// invalidate the transporter cache afterwards.
func (r *SettingsRepository) UpsertSMTP(ctx context.Context, cfg *models.SMTPConfig) error {
	query := r.sb.
		Insert("admin_settings").
		Columns(
			"id", "smtp_host", "smtp_port", "smtp_username", "smtp_password",
			"smtp_use_tls", "smtp_reply_to", "from_email", "from_name", "updated_at",
		).
		Values(
			1, cfg.Host, cfg.Port, cfg.Username, cfg.Password,
			cfg.UseTLS, cfg.ReplyTo, cfg.From, cfg.FromName, sq.Expr("NOW()"),
		).
		Suffix(`
ON CONFLICT (id)
DO UPDATE SET
	smtp_host = EXCLUDED.smtp_host,
	smtp_port = EXCLUDED.smtp_port,
	smtp_username = EXCLUDED.smtp_username,
	smtp_password = EXCLUDED.smtp_password,
	smtp_use_tls = EXCLUDED.smtp_use_tls,
	smtp_reply_to = EXCLUDED.smtp_reply_to,
	from_email = EXCLUDED.from_email,
	from_name = EXCLUDED.from_name,
	updated_at = NOW()
`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert smtp settings sql: %w", err)
	}

	if _, err := r.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert smtp settings: %w", err)
	}

	return nil
}
