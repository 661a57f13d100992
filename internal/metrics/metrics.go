package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "habits"

// Reminder delivery outcomes.
const (
	StatusSent          = "sent"
	StatusFailed        = "failed"
	StatusNoChat        = "no_chat"
	StatusMissing       = "missing"
	StatusNotConfigured = "not_configured"
	StatusMoved         = "moved"
)

type Metrics struct {
	SweepsTotal        prometheus.Counter
	RemindersScheduled prometheus.Counter
	RemindersSkipped   *prometheus.CounterVec
	RemindersTotal     *prometheus.CounterVec
	HabitWritesTotal   *prometheus.CounterVec
}

// New registers the service metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SweepsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "sweeps_total",
			Help:      "Number of reminder sweeps run",
		}),
		RemindersScheduled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "scheduled_total",
			Help:      "Reminder jobs handed to the job runner",
		}),
		RemindersSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "skipped_total",
			Help:      "Due habits not scheduled, by reason",
		}, []string{"reason"}),
		RemindersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "dispatched_total",
			Help:      "Reminder dispatch outcomes",
		}, []string{"status"}),
		HabitWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "habits",
			Name:      "writes_total",
			Help:      "Habit writes by operation and result",
		}, []string{"op", "result"}),
	}
}

// Discard returns metrics registered on a private registry, for tests and
// tools that do not expose /metrics.
func Discard() *Metrics { return New(prometheus.NewRegistry()) }
