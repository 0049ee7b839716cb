package attrtrail

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports counters about recorded and rejected writes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	live        *prometheus.GaugeVec
}

// NewMetrics creates the attrtrail collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer. Collectors that are
// already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attrtrail_transitions_total",
				Help: "Total number of field writes recorded",
			},
			[]string{"kind"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attrtrail_rejected_total",
				Help: "Total number of field writes rejected before recording",
			},
			[]string{"kind", "reason"},
		),
		live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "attrtrail_live_records",
				Help: "Number of history records held for live instances",
			},
			[]string{"kind"},
		),
	}
	var err error
	m.transitions, err = register(reg, m.transitions)
	if err != nil {
		return nil, err
	}
	m.rejected, err = register(reg, m.rejected)
	if err != nil {
		return nil, err
	}
	m.live, err = register(reg, m.live)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) recorded(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

func (m *Metrics) rejectedWrite(kind string, err error) {
	if m == nil {
		return
	}
	reason := "rejected"
	if errors.Is(err, ErrTypeMismatch) {
		reason = "type_mismatch"
	} else if errors.Is(err, ErrStoreConsistency) {
		reason = "consistency"
	}
	m.rejected.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) registered(kind string) {
	if m == nil {
		return
	}
	m.live.WithLabelValues(kind).Inc()
}

func (m *Metrics) released(kind string) {
	if m == nil {
		return
	}
	m.live.WithLabelValues(kind).Dec()
}
