package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"lynixmail/internal/automation"
	"lynixmail/internal/mailer"
	"lynixmail/internal/models"
	"lynixmail/internal/repository"
)

type stubAutomation struct {
	triggerResult automation.TriggerResult
	retryJob      *models.AutomationJob
	retryErr      error
	confirmCalled bool
}

func (s *stubAutomation) Trigger(ctx context.Context, eventType, recipient string, vars map[string]string, userID *string) automation.TriggerResult {
	return s.triggerResult
}

func (s *stubAutomation) RetryJob(ctx context.Context, id int64) (*models.AutomationJob, error) {
	return s.retryJob, s.retryErr
}

func (s *stubAutomation) Broadcast(ctx context.Context, subject, html string) (*automation.BroadcastResult, error) {
	return &automation.BroadcastResult{Success: true}, nil
}

func (s *stubAutomation) FireAndForget(ctx context.Context, desc string, fn func(context.Context) automation.TriggerResult) {
	fn(ctx)
}

func (s *stubAutomation) SendContactFormAutoReply(ctx context.Context, email, name, subject string) automation.TriggerResult {
	return automation.TriggerResult{Success: false, Error: "No automation rule found for event: contact_form_reply"}
}

func (s *stubAutomation) SendNewsletterConfirmation(ctx context.Context, email string) automation.TriggerResult {
	s.confirmCalled = true
	return automation.TriggerResult{Success: false, Error: "smtp down"}
}

type stubSubscribers struct {
	err error
}

func (s *stubSubscribers) Upsert(ctx context.Context, sub *models.Subscriber) error {
	sub.ID = 1
	return s.err
}

type stubSettings struct {
	saved *models.SMTPConfig
}

func (s *stubSettings) GetSMTP(ctx context.Context) (*models.SMTPConfig, error) {
	return nil, repository.ErrNotFound
}

func (s *stubSettings) UpsertSMTP(ctx context.Context, cfg *models.SMTPConfig) error {
	s.saved = cfg
	return nil
}

type stubCache struct{ invalidated int }

func (s *stubCache) Transporter(ctx context.Context) (mailer.Transport, error) {
	return nil, mailer.ErrNotConfigured
}

func (s *stubCache) Invalidate() { s.invalidated++ }

func newTestHandler(auto *stubAutomation) *Handler {
	return &Handler{
		Subscribers: &stubSubscribers{},
		Automation:  auto,
		Cache:       &stubCache{},
		Log:         zap.NewNop(),
	}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func testRouter(auto *stubAutomation) http.Handler {
	return Routes(newTestHandler(auto), &StaticVerifier{Token: "test-token"})
}

func TestTriggerRequiresFields(t *testing.T) {
	rec := doRequest(t, testRouter(&stubAutomation{}), http.MethodPost,
		"/api/email-automation/trigger", `{"event_type":"user_welcome"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTriggerNoRuleMapsTo404(t *testing.T) {
	auto := &stubAutomation{triggerResult: automation.TriggerResult{
		Success:  false,
		Error:    "No automation rule found for event: user_welcome",
		NotFound: true,
	}}
	rec := doRequest(t, testRouter(auto), http.MethodPost,
		"/api/email-automation/trigger",
		`{"event_type":"user_welcome","recipient_email":"alice@example.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRetryUnknownJobMapsTo404(t *testing.T) {
	auto := &stubAutomation{retryErr: repository.ErrNotFound}
	rec := doRequest(t, testRouter(auto), http.MethodPost,
		"/api/email-automation/jobs/42/retry", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRetryInvalidStateMapsTo400(t *testing.T) {
	auto := &stubAutomation{retryErr: automation.ErrInvalidJobState}
	rec := doRequest(t, testRouter(auto), http.MethodPost,
		"/api/email-automation/jobs/42/retry", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Only failed jobs can be retried" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestSubscribeSucceedsWhenAutomationFails(t *testing.T) {
	auto := &stubAutomation{}
	rec := doRequest(t, testRouter(auto), http.MethodPost,
		"/api/subscribe", `{"email":"alice@example.com","name":"Alice"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite failed confirmation email", rec.Code)
	}
	if !auto.confirmCalled {
		t.Error("confirmation automation should have been fired")
	}
}

func TestSubscribeFailsWhenPersistenceFails(t *testing.T) {
	h := newTestHandler(&stubAutomation{})
	h.Subscribers = &stubSubscribers{err: errors.New("insert denied")}
	router := Routes(h, &StaticVerifier{Token: "test-token"})

	rec := doRequest(t, router, http.MethodPost,
		"/api/subscribe", `{"email":"alice@example.com"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestUpdateSMTPSettingsInvalidatesCache(t *testing.T) {
	settings := &stubSettings{}
	cache := &stubCache{}
	h := newTestHandler(&stubAutomation{})
	h.Settings = settings
	h.Cache = cache
	router := Routes(h, &StaticVerifier{Token: "test-token"})

	rec := doRequest(t, router, http.MethodPut, "/api/admin/settings/smtp",
		`{"smtp_host":"smtp.new.local","smtp_port":465,"smtp_username":"new-user","smtp_password":"secret"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if settings.saved == nil || settings.saved.Host != "smtp.new.local" {
		t.Errorf("saved settings = %+v, want new relay persisted", settings.saved)
	}
	if cache.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1 after settings edit", cache.invalidated)
	}
}

func TestUpdateSMTPSettingsRejectsIncompleteConfig(t *testing.T) {
	cache := &stubCache{}
	h := newTestHandler(&stubAutomation{})
	h.Settings = &stubSettings{}
	h.Cache = cache
	router := Routes(h, &StaticVerifier{Token: "test-token"})

	rec := doRequest(t, router, http.MethodPut, "/api/admin/settings/smtp",
		`{"smtp_port":465}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if cache.invalidated != 0 {
		t.Error("rejected update must not touch the cache")
	}
}

func TestClearCacheEndpointInvalidates(t *testing.T) {
	cache := &stubCache{}
	h := newTestHandler(&stubAutomation{})
	h.Cache = cache
	router := Routes(h, &StaticVerifier{Token: "test-token"})

	rec := doRequest(t, router, http.MethodPost, "/api/admin/email/cache/clear", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cache.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1", cache.invalidated)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := testRouter(&stubAutomation{})

	req := httptest.NewRequest(http.MethodGet, "/api/email-automation/jobs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without bearer token", rec.Code)
	}
}
