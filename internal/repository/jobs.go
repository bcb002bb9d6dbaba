package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lynixmail/internal/models"
)

type JobRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// JobFilter narrows List. Zero values mean "no filter".
type JobFilter struct {
	Status models.JobStatus
	RuleID int64
}

const jobColumns = "id, rule_id, recipient_email, template_variables, status, sent_at, error_message, retry_count, user_id, created_at, updated_at"

// Insert persists a new job in pending state and fills in generated fields.
// A job row always exists before any send attempt is made.
func (r *JobRepository) Insert(ctx context.Context, job *models.AutomationJob) error {
	if job.Variables == nil {
		job.Variables = map[string]string{}
	}
	variables, err := json.Marshal(job.Variables)
	if err != nil {
		return fmt.Errorf("encode job variables: %w", err)
	}

	job.Status = models.StatusPending

	query := r.sb.
		Insert("email_automation_jobs").
		Columns("rule_id", "recipient_email", "template_variables", "status", "retry_count", "user_id", "created_at", "updated_at").
		Values(job.RuleID, job.RecipientEmail, variables, job.Status, 0, job.UserID, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id, created_at, updated_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert job sql: %w", err)
	}

	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

func (r *JobRepository) Get(ctx context.Context, id int64) (*models.AutomationJob, error) {
	query := r.sb.
		Select(jobColumns).
		From("email_automation_jobs").
		Where(sq.Eq{"id": id}).
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get job sql: %w", err)
	}

	job, err := scanJob(r.db.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	return job, nil
}

// MarkCompleted records a successful send: sent_at is stamped and any prior
// error message is cleared.
func (r *JobRepository) MarkCompleted(ctx context.Context, id int64) error {
	query := r.sb.
		Update("email_automation_jobs").
		Set("status", models.StatusCompleted).
		Set("sent_at", sq.Expr("NOW()")).
		Set("error_message", nil).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})

	return r.exec(ctx, query, "mark job completed")
}

// MarkFailed records a failed send. sent_at is left as it was.
func (r *JobRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := r.sb.
		Update("email_automation_jobs").
		Set("status", models.StatusFailed).
		Set("error_message", errorMsg).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})

	return r.exec(ctx, query, "mark job failed")
}

// RecordRetry persists the outcome of one retry attempt. retry_count is
// incremented whether the attempt succeeded or not.
func (r *JobRepository) RecordRetry(ctx context.Context, id int64, succeeded bool, errorMsg string) error {
	query := r.sb.
		Update("email_automation_jobs").
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})

	if succeeded {
		query = query.
			Set("status", models.StatusCompleted).
			Set("sent_at", sq.Expr("NOW()")).
			Set("error_message", nil)
	} else {
		query = query.
			Set("status", models.StatusFailed).
			Set("error_message", errorMsg)
	}

	return r.exec(ctx, query, "record job retry")
}

// List returns jobs newest first with the total count for pagination.
// page is 1-based.
func (r *JobRepository) List(ctx context.Context, filter JobFilter, page, pageSize int) ([]models.AutomationJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := sq.Eq{}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if filter.RuleID != 0 {
		where["rule_id"] = filter.RuleID
	}

	countQuery := r.sb.Select("COUNT(*)").From("email_automation_jobs")
	if len(where) > 0 {
		countQuery = countQuery.Where(where)
	}
	sqlStr, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count jobs sql: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := r.sb.
		Select(jobColumns).
		From("email_automation_jobs").
		OrderBy("created_at DESC").
		Limit(uint64(pageSize)).
		Offset(uint64(page-1) * uint64(pageSize))
	if len(where) > 0 {
		query = query.Where(where)
	}

	sqlStr, args, err = query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list jobs sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []models.AutomationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}

	return out, total, rows.Err()
}

func (r *JobRepository) exec(ctx context.Context, query sq.UpdateBuilder, op string) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanJob(row pgx.Row) (*models.AutomationJob, error) {
	var (
		job       models.AutomationJob
		variables []byte
	)
	err := row.Scan(
		&job.ID,
		&job.RuleID,
		&job.RecipientEmail,
		&variables,
		&job.Status,
		&job.SentAt,
		&job.ErrorMsg,
		&job.RetryCount,
		&job.UserID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &job.Variables); err != nil {
			return nil, fmt.Errorf("decode job variables: %w", err)
		}
	}
	return &job, nil
}
