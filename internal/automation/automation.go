package automation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lynixmail/internal/mailer"
	"lynixmail/internal/metrics"
	"lynixmail/internal/models"
	"lynixmail/internal/render"
	"lynixmail/internal/repository"
)

// EventType names a well-known automation trigger. The matcher itself
// accepts arbitrary strings so administrators can define custom events;
// these constants only back the convenience wrappers.
type EventType string

const (
	EventUserWelcome            EventType = "user_welcome"
	EventContactFormReply       EventType = "contact_form_reply"
	EventProjectUpdate          EventType = "project_update"
	EventNewsletterConfirmation EventType = "newsletter_confirmation"
	EventProjectInquiryReply    EventType = "project_inquiry_reply"
	EventProjectInquiryAdmin    EventType = "project_inquiry_admin"
)

// ErrInvalidJobState means a retry was attempted on a job that is not in
// the failed state.
var ErrInvalidJobState = errors.New("only failed jobs can be retried")

type RuleStore interface {
	ActiveForEvent(ctx context.Context, eventType string) (*models.AutomationRule, *models.EmailTemplate, error)
	TemplateForRule(ctx context.Context, ruleID int64) (*models.EmailTemplate, error)
}

type JobStore interface {
	Insert(ctx context.Context, job *models.AutomationJob) error
	Get(ctx context.Context, id int64) (*models.AutomationJob, error)
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
	RecordRetry(ctx context.Context, id int64, succeeded bool, errorMsg string) error
}

type SubscriberSource interface {
	Active(ctx context.Context) ([]models.Subscriber, error)
}

type TransportSource interface {
	Transporter(ctx context.Context) (mailer.Transport, error)
}

type EventLog interface {
	Insert(ctx context.Context, ev *models.EmailEvent) error
}

type Deps struct {
	Rules       RuleStore
	Jobs        JobStore
	Subscribers SubscriberSource
	Transports  TransportSource
	Events      EventLog
	Log         *zap.Logger
}

type Options struct {
	SiteURL       string
	CompanyName   string
	AdminEmail    string
	BroadcastRate int
}

// Service orchestrates rule matching, job lifecycle, rendering and delivery
// for one trigger or retry invocation. Every send is synchronous within the
// invocation that requested it.
type Service struct {
	rules       RuleStore
	jobs        JobStore
	subscribers SubscriberSource
	transports  TransportSource
	events      EventLog
	log         *zap.Logger
	limiter     *rate.Limiter

	siteURL     string
	companyName string
	adminEmail  string
}

func New(d Deps, opts Options) *Service {
	if opts.BroadcastRate <= 0 {
		opts.BroadcastRate = 10
	}
	return &Service{
		rules:       d.Rules,
		jobs:        d.Jobs,
		subscribers: d.Subscribers,
		transports:  d.Transports,
		events:      d.Events,
		log:         d.Log,
		limiter:     rate.NewLimiter(rate.Limit(opts.BroadcastRate), opts.BroadcastRate),
		siteURL:     opts.SiteURL,
		companyName: opts.CompanyName,
		adminEmail:  opts.AdminEmail,
	}
}

// TriggerResult is the non-throwing outcome of one trigger invocation.
// JobID is set as soon as a job row exists, even when the send failed, so
// failed sends stay traceable through the jobs listing.
type TriggerResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	JobID   int64  `json:"job_id,omitempty"`

	// NotFound marks the "no rule / no template" outcomes so the HTTP layer
	// can answer 404 instead of 500.
	NotFound bool `json:"-"`
}

func failure(format string, args ...any) TriggerResult {
	return TriggerResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Trigger runs the full automation sequence for one event: match the active
// rule, persist a pending job, render the template, deliver, record the
// terminal state. All failures come back inside the result; Trigger never
// panics or returns an error value.
func (s *Service) Trigger(ctx context.Context, eventType, recipient string, vars map[string]string, userID *string) TriggerResult {
	metrics.AutomationTriggers.WithLabelValues(eventType).Inc()

	rule, tmpl, err := s.rules.ActiveForEvent(ctx, eventType)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoRule):
			res := failure("No automation rule found for event: %s", eventType)
			res.NotFound = true
			return res
		case errors.Is(err, repository.ErrTemplateMissing):
			s.log.Error("automation rule has a dangling template",
				zap.String("event_type", eventType))
			res := failure("No template found for event: %s", eventType)
			res.NotFound = true
			return res
		default:
			s.log.Error("rule lookup failed",
				zap.String("event_type", eventType),
				zap.Error(err))
			return failure("rule lookup failed: %v", err)
		}
	}

	job := &models.AutomationJob{
		RuleID:         rule.ID,
		RecipientEmail: recipient,
		Variables:      vars,
		UserID:         userID,
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		s.log.Error("failed to create automation job",
			zap.String("event_type", eventType),
			zap.String("recipient", recipient),
			zap.Error(err))
		return failure("failed to create automation job: %v", err)
	}

	if err := s.deliver(ctx, tmpl, recipient, vars); err != nil {
		if dbErr := s.jobs.MarkFailed(ctx, job.ID, err.Error()); dbErr != nil {
			s.log.Error("failed to record job failure",
				zap.Int64("job_id", job.ID),
				zap.Error(dbErr))
		}
		s.logEvent(ctx, job.ID, eventType, recipient, "failed", err.Error())
		metrics.EmailFailures.Inc()

		s.log.Error("automation send failed",
			zap.String("event_type", eventType),
			zap.String("recipient", recipient),
			zap.Int64("job_id", job.ID),
			zap.Error(err))

		res := failure("%v", err)
		res.JobID = job.ID
		return res
	}

	// The email is out; a lost status update must not turn success into
	// failure for the caller.
	if err := s.jobs.MarkCompleted(ctx, job.ID); err != nil {
		s.log.Error("failed to record job completion",
			zap.Int64("job_id", job.ID),
			zap.Error(err))
	}
	s.logEvent(ctx, job.ID, eventType, recipient, "sent", "")
	metrics.EmailsSent.Inc()

	s.log.Info("automation email sent",
		zap.String("event_type", eventType),
		zap.String("recipient", recipient),
		zap.Int64("job_id", job.ID))

	return TriggerResult{
		Success: true,
		Message: "Automation triggered successfully",
		JobID:   job.ID,
	}
}

func (s *Service) deliver(ctx context.Context, tmpl *models.EmailTemplate, recipient string, vars map[string]string) error {
	transport, err := s.transports.Transporter(ctx)
	if err != nil {
		return err
	}

	html := render.Render(tmpl.Content, vars)
	return transport.Send(&mailer.Message{
		To:      recipient,
		Subject: render.Render(tmpl.Subject, vars),
		HTML:    html,
		Text:    render.StripTags(html),
	})
}

func (s *Service) logEvent(ctx context.Context, jobID int64, eventType, recipient, outcome, detail string) {
	if s.events == nil {
		return
	}
	ev := &models.EmailEvent{
		JobID:     &jobID,
		EventType: eventType,
		Recipient: recipient,
		Outcome:   outcome,
		Detail:    detail,
	}
	if err := s.events.Insert(ctx, ev); err != nil {
		s.log.Warn("failed to record email event", zap.Error(err))
	}
}

// FireAndForget runs an automation trigger purely as a side effect of a
// primary action. The outcome is logged, never returned, so the primary
// action's own success cannot depend on it.
func (s *Service) FireAndForget(ctx context.Context, desc string, fn func(context.Context) TriggerResult) {
	res := fn(ctx)
	if !res.Success {
		s.log.Warn("background automation failed",
			zap.String("trigger", desc),
			zap.String("error", res.Error),
			zap.Int64("job_id", res.JobID))
		return
	}
	s.log.Debug("background automation sent",
		zap.String("trigger", desc),
		zap.Int64("job_id", res.JobID))
}

func (s *Service) baseVars() map[string]string {
	return map[string]string{
		"site_url":     s.siteURL,
		"company_name": s.companyName,
	}
}

func (s *Service) SendWelcomeEmail(ctx context.Context, email, name string, userID *string) TriggerResult {
	vars := s.baseVars()
	vars["user_name"] = name
	vars["user_email"] = email
	return s.Trigger(ctx, string(EventUserWelcome), email, vars, userID)
}

func (s *Service) SendContactFormAutoReply(ctx context.Context, email, name, subject string) TriggerResult {
	vars := s.baseVars()
	vars["user_name"] = name
	vars["original_subject"] = subject
	return s.Trigger(ctx, string(EventContactFormReply), email, vars, nil)
}

func (s *Service) SendNewsletterConfirmation(ctx context.Context, email string) TriggerResult {
	vars := s.baseVars()
	vars["user_email"] = email
	return s.Trigger(ctx, string(EventNewsletterConfirmation), email, vars, nil)
}

func (s *Service) SendProjectUpdate(ctx context.Context, email, projectName, update string, userID *string) TriggerResult {
	vars := s.baseVars()
	vars["project_name"] = projectName
	vars["project_update"] = update
	return s.Trigger(ctx, string(EventProjectUpdate), email, vars, userID)
}

func (s *Service) SendProjectInquiryAutoReply(ctx context.Context, email, name, projectType string) TriggerResult {
	vars := s.baseVars()
	vars["user_name"] = name
	vars["project_type"] = projectType
	return s.Trigger(ctx, string(EventProjectInquiryReply), email, vars, nil)
}

// SendProjectInquiryAdminNotification goes to the configured admin inbox,
// not the inquirer.
func (s *Service) SendProjectInquiryAdminNotification(ctx context.Context, name, email, projectType, details string) TriggerResult {
	vars := s.baseVars()
	vars["user_name"] = name
	vars["user_email"] = email
	vars["project_type"] = projectType
	vars["project_details"] = details
	return s.Trigger(ctx, string(EventProjectInquiryAdmin), s.adminEmail, vars, nil)
}
