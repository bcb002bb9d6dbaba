package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"lynixmail/internal/mailer"
	"lynixmail/internal/models"
	"lynixmail/internal/repository"
)

func (h *Handler) GetSMTPSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Settings.GetSMTP(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "SMTP settings not configured")
			return
		}
		h.Log.Error("failed to read smtp settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Password is excluded by the model's json tag.
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": cfg,
	})
}

type smtpSettingsRequest struct {
	Host     string `json:"smtp_host"`
	Port     int    `json:"smtp_port"`
	Username string `json:"smtp_username"`
	Password string `json:"smtp_password"`
	UseTLS   bool   `json:"smtp_use_tls"`
	ReplyTo  string `json:"smtp_reply_to"`
	From     string `json:"from_email"`
	FromName string `json:"from_name"`
}

func (h *Handler) UpdateSMTPSettings(w http.ResponseWriter, r *http.Request) {
	var req smtpSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Host == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "smtp_host and smtp_username are required")
		return
	}

	cfg := &models.SMTPConfig{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		UseTLS:   req.UseTLS,
		ReplyTo:  req.ReplyTo,
		From:     req.From,
		FromName: req.FromName,
	}
	if err := h.Settings.UpsertSMTP(r.Context(), cfg); err != nil {
		h.Log.Error("failed to save smtp settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The next send must pick up the new relay.
	h.Cache.Invalidate()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "SMTP settings updated",
	})
}

func (h *Handler) ClearTransporterCache(w http.ResponseWriter, r *http.Request) {
	h.Cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Transporter cache cleared",
	})
}

// TestSMTP builds a transport from current settings and verifies the
// connection without sending anything.
func (h *Handler) TestSMTP(w http.ResponseWriter, r *http.Request) {
	transport, err := h.Cache.Transporter(r.Context())
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := transport.Verify(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "SMTP connection verified",
	})
}

type broadcastRequest struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (h *Handler) BroadcastNewsletter(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Subject == "" || req.HTML == "" {
		writeError(w, http.StatusBadRequest, "subject and html are required")
		return
	}

	res, err := h.Automation.Broadcast(r.Context(), req.Subject, req.HTML)
	if err != nil {
		h.Log.Error("broadcast failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}
