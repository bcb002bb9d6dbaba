package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes assembles the HTTP surface. Public form endpoints are open; the
// automation and admin endpoints require the admin role.
func Routes(h *Handler, verifier TokenVerifier) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/subscribe", h.Subscribe)
		r.Post("/contact", h.SubmitContact)

		r.Route("/email-automation", func(r chi.Router) {
			r.Use(RequireRole(verifier, "admin"))
			r.Get("/rules", h.ListRules)
			r.Post("/rules", h.CreateRule)
			r.Put("/rules/{id}", h.UpdateRule)
			r.Delete("/rules/{id}", h.DeleteRule)
			r.Post("/trigger", h.TriggerAutomation)
			r.Get("/jobs", h.ListJobs)
			r.Post("/jobs/{id}/retry", h.RetryJob)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(verifier, "admin"))
			r.Get("/settings/smtp", h.GetSMTPSettings)
			r.Put("/settings/smtp", h.UpdateSMTPSettings)
			r.Post("/email/cache/clear", h.ClearTransporterCache)
			r.Post("/email/test", h.TestSMTP)
			r.Post("/newsletter/broadcast", h.BroadcastNewsletter)
			r.Post("/subscribers/import", h.ImportSubscribers)
		})
	})

	return r
}
