// Package metrics exposes game counters to Prometheus. A nil *Metrics is valid
// and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionsEnded   prometheus.Counter
	ActiveSessions  prometheus.Gauge
	TargetsSpawned  prometheus.Counter
	TargetsDowned   prometheus.Counter
	Clicks          prometheus.Counter
	ClicksOnTarget  prometheus.Counter
	FinalScore      prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monkeysnype",
			Name:      "sessions_started_total",
			Help:      "Sessions started.",
		}),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monkeysnype",
			Name:      "sessions_ended_total",
			Help:      "Sessions ended with a summary.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "monkeysnype",
			Name:      "active_sessions",
			Help:      "1 while a session is running.",
		}),
		TargetsSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monkeysnype",
			Name:      "targets_spawned_total",
			Help:      "Targets spawned across all sessions.",
		}),
		TargetsDowned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monkeysnype",
			Name:      "targets_downed_total",
			Help:      "Targets hit before being replaced.",
		}),
		Clicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monkeysnype",
			Name:      "clicks_total",
			Help:      "Clicks registered in the play area.",
		}),
		ClicksOnTarget: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monkeysnype",
			Name:      "clicks_on_target_total",
			Help:      "Clicks that downed a live target.",
		}),
		FinalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "monkeysnype",
			Name:      "final_score",
			Help:      "Composite score at the end of each session.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionsStarted,
			m.SessionsEnded,
			m.ActiveSessions,
			m.TargetsSpawned,
			m.TargetsDowned,
			m.Clicks,
			m.ClicksOnTarget,
			m.FinalScore,
		)
	}
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.ActiveSessions.Set(1)
}

func (m *Metrics) SessionEnded(finalScore float64) {
	if m == nil {
		return
	}
	m.SessionsEnded.Inc()
	m.ActiveSessions.Set(0)
	m.FinalScore.Observe(finalScore)
}

func (m *Metrics) TargetSpawned() {
	if m == nil {
		return
	}
	m.TargetsSpawned.Inc()
}

func (m *Metrics) Click(hit bool) {
	if m == nil {
		return
	}
	m.Clicks.Inc()
	if hit {
		m.ClicksOnTarget.Inc()
		m.TargetsDowned.Inc()
	}
}
