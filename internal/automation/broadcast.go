package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lynixmail/internal/mailer"
	"lynixmail/internal/metrics"
	"lynixmail/internal/render"
)

// BroadcastResult summarizes a best-effort broadcast. Success is true even
// when individual recipients failed; only the inability to start at all
// (no subscribers query, no transport) is reported as an error.
type BroadcastResult struct {
	Success      bool     `json:"success"`
	SentCount    int      `json:"sent_count"`
	FailedCount  int      `json:"failed_count"`
	FailedEmails []string `json:"failed_emails,omitempty"`
}

// Broadcast sends one rendered message to every active subscriber,
// sequentially and rate-limited. A failure for one recipient does not stop
// the rest.
func (s *Service) Broadcast(ctx context.Context, subject, html string) (*BroadcastResult, error) {
	subs, err := s.subscribers.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	transport, err := s.transports.Transporter(ctx)
	if err != nil {
		return nil, err
	}

	res := &BroadcastResult{Success: true}
	for _, sub := range subs {
		if err := s.limiter.Wait(ctx); err != nil {
			return res, err
		}

		vars := s.baseVars()
		vars["user_name"] = sub.Name
		vars["user_email"] = sub.Email

		body := render.Render(html, vars)
		err := transport.Send(&mailer.Message{
			To:      sub.Email,
			Subject: render.Render(subject, vars),
			HTML:    body,
			Text:    render.StripTags(body),
		})
		if err != nil {
			res.FailedCount++
			res.FailedEmails = append(res.FailedEmails, sub.Email)
			metrics.EmailFailures.Inc()
			s.log.Warn("broadcast send failed",
				zap.String("recipient", sub.Email),
				zap.Error(err))
			continue
		}

		res.SentCount++
		metrics.EmailsSent.Inc()
	}

	s.log.Info("broadcast finished",
		zap.Int("sent", res.SentCount),
		zap.Int("failed", res.FailedCount))

	return res, nil
}
