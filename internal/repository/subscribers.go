package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"lynixmail/internal/models"
)

type SubscriberRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewSubscriberRepository(db *pgxpool.Pool) *SubscriberRepository {
	return &SubscriberRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert subscribes an address, resubscribing it if it opted out earlier.
func (r *SubscriberRepository) Upsert(ctx context.Context, sub *models.Subscriber) error {
	query := r.sb.
		Insert("subscribers").
		Columns("email", "name", "subscribed", "created_at").
		Values(sub.Email, sub.Name, true, sq.Expr("NOW()")).
		Suffix(`
ON CONFLICT (email)
DO UPDATE SET
	name = EXCLUDED.name,
	subscribed = TRUE
RETURNING id, created_at
`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert subscriber sql: %w", err)
	}

	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	sub.Subscribed = true

	return nil
}

// Active returns every subscribed address, oldest first.
func (r *SubscriberRepository) Active(ctx context.Context) ([]models.Subscriber, error) {
	query := r.sb.
		Select("id", "email", "name", "subscribed", "created_at").
		From("subscribers").
		Where(sq.Eq{"subscribed": true}).
		OrderBy("created_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active subscribers sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	defer rows.Close()

	var out []models.Subscriber
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.Subscribed, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

type ContactRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewContactRepository(db *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ContactRepository) Insert(ctx context.Context, c *models.ContactSubmission) error {
	query := r.sb.
		Insert("contact_submissions").
		Columns("name", "email", "subject", "message", "created_at").
		Values(c.Name, c.Email, c.Subject, c.Message, sq.Expr("NOW()")).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert contact sql: %w", err)
	}

	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact submission: %w", err)
	}

	return nil
}
