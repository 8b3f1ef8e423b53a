package telemetry

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/anon-inbox/internal/core/port"
)

const namespace = "inbox"

// Metrics implements port.MetricsRecorder with Prometheus counters.
type Metrics struct {
	registrations *prometheus.CounterVec
	verifications *prometheus.CounterVec
	received      prometheus.Counter
	rejected      *prometheus.CounterVec
	deleted       prometheus.Counter
	acceptance    *prometheus.CounterVec
}

// NewMetrics builds the counters and registers them on reg, reusing collectors that are already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Sign-up attempts by outcome",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification code checks by outcome",
		}, []string{"outcome"}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Anonymous messages stored",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Anonymous messages refused by reason",
		}, []string{"reason"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deleted_total",
			Help:      "Messages removed by inbox owners",
		}),
		acceptance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acceptance_changes_total",
			Help:      "Acceptance toggles by resulting state",
		}, []string{"accepting"}),
	}

	var err error
	if m.registrations, err = registerCounterVec(reg, m.registrations); err != nil {
		return nil, err
	}
	if m.verifications, err = registerCounterVec(reg, m.verifications); err != nil {
		return nil, err
	}
	if m.rejected, err = registerCounterVec(reg, m.rejected); err != nil {
		return nil, err
	}
	if m.acceptance, err = registerCounterVec(reg, m.acceptance); err != nil {
		return nil, err
	}
	if m.received, err = registerCounter(reg, m.received); err != nil {
		return nil, err
	}
	if m.deleted, err = registerCounter(reg, m.deleted); err != nil {
		return nil, err
	}

	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) RegistrationCompleted(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) VerificationAttempted(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MessageReceived() {
	m.received.Inc()
}

func (m *Metrics) MessageRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) MessageDeleted() {
	m.deleted.Inc()
}

func (m *Metrics) AcceptanceChanged(accepting bool) {
	m.acceptance.WithLabelValues(strconv.FormatBool(accepting)).Inc()
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RegistrationCompleted(string) {}
func (NopMetrics) VerificationAttempted(string) {}
func (NopMetrics) MessageReceived()             {}
func (NopMetrics) MessageRejected(string)       {}
func (NopMetrics) MessageDeleted()              {}
func (NopMetrics) AcceptanceChanged(bool)       {}

var (
	_ port.MetricsRecorder = (*Metrics)(nil)
	_ port.MetricsRecorder = NopMetrics{}
)
