package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lynixmail/internal/automation"
	"lynixmail/internal/mailer"
	"lynixmail/internal/models"
	"lynixmail/internal/repository"
)

type RuleStore interface {
	List(ctx context.Context) ([]models.RuleSummary, error)
	Create(ctx context.Context, rule *models.AutomationRule) error
	Update(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type JobLister interface {
	List(ctx context.Context, filter repository.JobFilter, page, pageSize int) ([]models.AutomationJob, int64, error)
}

type SettingsStore interface {
	GetSMTP(ctx context.Context) (*models.SMTPConfig, error)
	UpsertSMTP(ctx context.Context, cfg *models.SMTPConfig) error
}

type SubscriberStore interface {
	Upsert(ctx context.Context, sub *models.Subscriber) error
}

type ContactStore interface {
	Insert(ctx context.Context, c *models.ContactSubmission) error
}

// TransportCache is the transporter cache surface the handlers need:
// explicit invalidation and a transport for connectivity tests.
type TransportCache interface {
	Transporter(ctx context.Context) (mailer.Transport, error)
	Invalidate()
}

// Automation is the facade surface exposed over HTTP.
type Automation interface {
	Trigger(ctx context.Context, eventType, recipient string, vars map[string]string, userID *string) automation.TriggerResult
	RetryJob(ctx context.Context, id int64) (*models.AutomationJob, error)
	Broadcast(ctx context.Context, subject, html string) (*automation.BroadcastResult, error)
	FireAndForget(ctx context.Context, desc string, fn func(context.Context) automation.TriggerResult)
	SendContactFormAutoReply(ctx context.Context, email, name, subject string) automation.TriggerResult
	SendNewsletterConfirmation(ctx context.Context, email string) automation.TriggerResult
}

type Handler struct {
	Rules       RuleStore
	Jobs        JobLister
	Settings    SettingsStore
	Subscribers SubscriberStore
	Contacts    ContactStore
	Automation  Automation
	Cache       TransportCache
	Log         *zap.Logger
}

// ----------------------------
// Rules CRUD
// ----------------------------

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Rules.List(r.Context())
	if err != nil {
		h.Log.Error("failed to list rules", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rules == nil {
		rules = []models.RuleSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"rules":   rules,
	})
}

type createRuleRequest struct {
	EventType  string         `json:"event_type"`
	TemplateID int64          `json:"template_id"`
	IsActive   *bool          `json:"is_active"`
	Conditions map[string]any `json:"conditions"`
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EventType == "" || req.TemplateID == 0 {
		writeError(w, http.StatusBadRequest, "event_type and template_id are required")
		return
	}

	rule := &models.AutomationRule{
		EventType:  req.EventType,
		TemplateID: req.TemplateID,
		IsActive:   true,
		Conditions: req.Conditions,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := h.Rules.Create(r.Context(), rule); err != nil {
		h.Log.Error("failed to create rule", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"rule":    rule,
	})
}

type updateRuleRequest struct {
	EventType  *string        `json:"event_type"`
	TemplateID *int64         `json:"template_id"`
	IsActive   *bool          `json:"is_active"`
	Conditions map[string]any `json:"conditions"`
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fields := map[string]any{}
	if req.EventType != nil {
		fields["event_type"] = *req.EventType
	}
	if req.TemplateID != nil {
		fields["template_id"] = *req.TemplateID
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.Conditions != nil {
		fields["conditions"] = req.Conditions
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.Rules.Update(r.Context(), id, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.Log.Error("failed to update rule", zap.Int64("rule_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := h.Rules.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.Log.Error("failed to delete rule", zap.Int64("rule_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ----------------------------
// Trigger + jobs
// ----------------------------

type triggerRequest struct {
	EventType      string            `json:"event_type"`
	RecipientEmail string            `json:"recipient_email"`
	Variables      map[string]string `json:"variables"`
	UserID         *string           `json:"user_id"`
}

func (h *Handler) TriggerAutomation(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EventType == "" || req.RecipientEmail == "" {
		writeError(w, http.StatusBadRequest, "event_type and recipient_email are required")
		return
	}

	res := h.Automation.Trigger(r.Context(), req.EventType, req.RecipientEmail, req.Variables, req.UserID)

	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
		if res.NotFound {
			status = http.StatusNotFound
		}
	}
	writeJSON(w, status, res)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	limit := 20
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	filter := repository.JobFilter{
		Status: models.JobStatus(q.Get("status")),
	}
	if v, err := strconv.ParseInt(q.Get("rule_id"), 10, 64); err == nil {
		filter.RuleID = v
	}

	jobs, total, err := h.Jobs.List(r.Context(), filter, page, limit)
	if err != nil {
		h.Log.Error("failed to list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []models.AutomationJob{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"jobs":    jobs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *Handler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.Automation.RetryJob(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, automation.ErrInvalidJobState):
			writeError(w, http.StatusBadRequest, "Only failed jobs can be retried")
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   err.Error(),
				"job":     job,
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"job":     job,
	})
}
