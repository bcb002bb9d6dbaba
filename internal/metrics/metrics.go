package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AutomationTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_triggers_total",
			Help: "Automation triggers by event type",
		},
		[]string{"event_type"},
	)

	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total emails sent",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total failed emails",
		},
	)

	JobRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "job_retries_total",
			Help: "Total manual job retry attempts",
		},
	)
)

func Init() {
	prometheus.MustRegister(AutomationTriggers)
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailFailures)
	prometheus.MustRegister(JobRetries)
}
