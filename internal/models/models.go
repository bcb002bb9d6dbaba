package models

import "time"

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// EmailTemplate is an admin-authored subject/body pair. Subject and content
// may contain {{key}} placeholders; unknown keys survive rendering untouched.
type EmailTemplate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AutomationRule binds an event type to a template. Only active rules are
// considered at trigger time; the newest active rule wins when several exist
// for the same event type.
type AutomationRule struct {
	ID         int64          `json:"id"`
	EventType  string         `json:"event_type"`
	TemplateID int64          `json:"template_id"`
	IsActive   bool           `json:"is_active"`
	Conditions map[string]any `json:"conditions"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RuleSummary is a rule joined with the name of its template, for listings.
type RuleSummary struct {
	AutomationRule
	TemplateName string `json:"template_name"`
}

type AutomationJob struct {
	ID             int64             `json:"id"`
	RuleID         int64             `json:"rule_id"`
	RecipientEmail string            `json:"recipient_email"`
	Variables      map[string]string `json:"template_variables"`

	Status     JobStatus  `json:"status"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ErrorMsg   *string    `json:"error_message,omitempty"`
	RetryCount int        `json:"retry_count"`
	UserID     *string    `json:"user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SMTPConfig is resolved at send time, never persisted as-is. Admin settings
// take precedence; env defaults back it up.
type SMTPConfig struct {
	Host     string `json:"smtp_host"`
	Port     int    `json:"smtp_port"`
	Username string `json:"smtp_username"`
	Password string `json:"-"`
	UseTLS   bool   `json:"smtp_use_tls"`
	ReplyTo  string `json:"smtp_reply_to,omitempty"`
	From     string `json:"from_email"`
	FromName string `json:"from_name"`
}

type Subscriber struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Subscribed bool      `json:"subscribed"`
	CreatedAt  time.Time `json:"created_at"`
}

type ContactSubmission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// EmailEvent is a best-effort delivery log row. Failures to record it are
// logged and swallowed.
type EmailEvent struct {
	ID        int64     `json:"id"`
	JobID     *int64    `json:"job_id,omitempty"`
	EventType string    `json:"event_type"`
	Recipient string    `json:"recipient"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
