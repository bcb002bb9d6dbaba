package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lynixmail/internal/metrics"
	"lynixmail/internal/models"
)

// RetryJob re-attempts delivery for a failed job. Only failed jobs may be
// retried; the precondition is checked against the job's current persisted
// state. Every attempt, successful or not, increments retry_count. The
// template is re-resolved through the owning rule, so edits made since the
// original send take effect here.
//
// The returned job reflects the post-attempt state. A non-nil error is
// either repository.ErrNotFound, ErrInvalidJobState, or a delivery failure
// (in which case the job is still returned for traceability).
func (s *Service) RetryJob(ctx context.Context, id int64) (*models.AutomationJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.StatusFailed {
		return nil, ErrInvalidJobState
	}

	metrics.JobRetries.Inc()

	sendErr := func() error {
		tmpl, err := s.rules.TemplateForRule(ctx, job.RuleID)
		if err != nil {
			return err
		}
		return s.deliver(ctx, tmpl, job.RecipientEmail, job.Variables)
	}()

	if sendErr != nil {
		if dbErr := s.jobs.RecordRetry(ctx, id, false, sendErr.Error()); dbErr != nil {
			s.log.Error("failed to record retry failure",
				zap.Int64("job_id", id),
				zap.Error(dbErr))
		}
		metrics.EmailFailures.Inc()

		job, getErr := s.jobs.Get(ctx, id)
		if getErr != nil {
			job = nil
		}
		return job, fmt.Errorf("retry send failed: %w", sendErr)
	}

	if dbErr := s.jobs.RecordRetry(ctx, id, true, ""); dbErr != nil {
		s.log.Error("failed to record retry success",
			zap.Int64("job_id", id),
			zap.Error(dbErr))
	}
	metrics.EmailsSent.Inc()

	s.log.Info("job retried successfully",
		zap.Int64("job_id", id),
		zap.String("recipient", job.RecipientEmail))

	return s.jobs.Get(ctx, id)
}
