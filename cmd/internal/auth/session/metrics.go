package session

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels.
const (
	outcomeSuccess       = "success"
	outcomeInvalid       = "invalid"
	outcomeUnknown       = "unknown_session"
	outcomeRateLimited   = "rate_limited"
	outcomeLostRace      = "lost_race"
	outcomeBadCredential = "invalid_credentials"
	outcomeError         = "error"
)

// Metrics counts lifecycle events.
type Metrics struct {
	AccountsCreated prometheus.Counter
	Logins          *prometheus.CounterVec // labels: method, outcome
	Refreshes       *prometheus.CounterVec // labels: outcome
	Logouts         prometheus.Counter
	SessionsPurged  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		AccountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authkit",
			Name:      "accounts_created_total",
			Help:      "Accounts created.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authkit",
			Name:      "logins_total",
			Help:      "Login attempts by identifier and outcome.",
		}, []string{"method", "outcome"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authkit",
			Name:      "refreshes_total",
			Help:      "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		Logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authkit",
			Name:      "logouts_total",
			Help:      "Sessions closed by logout.",
		}),
		SessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authkit",
			Name:      "sessions_purged_total",
			Help:      "Stale sessions removed by housekeeping.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.AccountsCreated, m.Logins, m.Refreshes, m.Logouts, m.SessionsPurged} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) accountCreated() {
	if m != nil {
		m.AccountsCreated.Inc()
	}
}

func (m *Metrics) login(method Credential, outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(string(method), outcome).Inc()
	}
}

func (m *Metrics) refresh(outcome string) {
	if m != nil {
		m.Refreshes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) logout(n int) {
	if m != nil && n > 0 {
		m.Logouts.Add(float64(n))
	}
}

func (m *Metrics) purged(n int64) {
	if m != nil && n > 0 {
		m.SessionsPurged.Add(float64(n))
	}
}
