package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"lynixmail/internal/automation"
	"lynixmail/internal/csvparser"
	"lynixmail/internal/models"
)

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Subscribe persists the subscription and fires the confirmation email as a
// side effect. The subscription succeeds even when the email does not.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	sub := &models.Subscriber{Email: req.Email, Name: req.Name}
	if err := h.Subscribers.Upsert(r.Context(), sub); err != nil {
		h.Log.Error("failed to save subscriber", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Automation.FireAndForget(r.Context(), "newsletter confirmation",
		func(ctx context.Context) automation.TriggerResult {
			return h.Automation.SendNewsletterConfirmation(ctx, req.Email)
		})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Subscribed successfully",
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SubmitContact persists the submission and fires the auto-reply as a side
// effect, same decoupling as Subscribe.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "name, email and message are required")
		return
	}

	c := &models.ContactSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := h.Contacts.Insert(r.Context(), c); err != nil {
		h.Log.Error("failed to save contact submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Automation.FireAndForget(r.Context(), "contact auto-reply",
		func(ctx context.Context) automation.TriggerResult {
			return h.Automation.SendContactFormAutoReply(ctx, req.Email, req.Name, req.Subject)
		})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Message received",
	})
}

// ImportSubscribers bulk-imports subscribers from a CSV request body.
func (h *Handler) ImportSubscribers(w http.ResponseWriter, r *http.Request) {
	rows, err := csvparser.ParseSubscriberRows(r.Body, 1000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	imported := 0
	for _, row := range rows {
		sub := &models.Subscriber{Email: row.Email, Name: row.Name}
		if err := h.Subscribers.Upsert(r.Context(), sub); err != nil {
			h.Log.Warn("failed to import subscriber",
				zap.String("email", row.Email),
				zap.Error(err))
			continue
		}
		imported++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"imported": imported,
		"skipped":  len(rows) - imported,
	})
}
