package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"lynixmail/internal/models"
)

// EventRepository writes the email_events delivery log. Inserts are
// best-effort at the call sites: a lost log row never fails a send.
type EventRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *EventRepository) Insert(ctx context.Context, ev *models.EmailEvent) error {
	query := r.sb.
		Insert("email_events").
		Columns("job_id", "event_type", "recipient", "outcome", "detail", "created_at").
		Values(ev.JobID, ev.EventType, ev.Recipient, ev.Outcome, ev.Detail, sq.Expr("NOW()"))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert email event sql: %w", err)
	}

	if _, err := r.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert email event: %w", err)
	}

	return nil
}
