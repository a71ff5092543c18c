package api

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts authentication outcomes.
type Metrics struct {
	logins          *prometheus.CounterVec
	passwordChanges *prometheus.CounterVec
}

// NewMetrics registers the API collectors on reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usersvc",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		passwordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usersvc",
			Name:      "password_changes_total",
			Help:      "Password change attempts by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.logins, m.passwordChanges)
	}
	return m
}

func (m *Metrics) login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) passwordChange(outcome string) {
	if m != nil {
		m.passwordChanges.WithLabelValues(outcome).Inc()
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case isValidation(err):
		return "invalid_request"
	case isInvalidCredentials(err):
		return "invalid_credentials"
	default:
		return "error"
	}
}
