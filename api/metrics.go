package api

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// 401 recovery outcomes
const (
	OutcomeRecovered     = "recovered"
	OutcomeReissueFailed = "reissue_failed"
	OutcomeRejectedAgain = "rejected_again"
	OutcomeNotReplayable = "not_replayable"
	OutcomeAbandoned     = "abandoned"
)

type metrics struct {
	requests   *prometheus.CounterVec
	recoveries *prometheus.CounterVec
}

// newMetrics builds the client counters. With a nil reg they are counted but
// never exported.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reserve_client",
				Name:      "http_requests_total",
				Help:      "Requests sent to the backend by method and status class",
			},
			[]string{"method", "status"},
		),
		recoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reserve_client",
				Name:      "auth_recoveries_total",
				Help:      "401 recovery attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		m.requests = register(reg, m.requests)
		m.recoveries = register(reg, m.recoveries)
	}
	return m
}

// register returns the already registered collector when a second client
// shares reg
func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	log.Warn().Err(err).Msg("Failed to register client metrics")
	return c
}

func (m *metrics) request(method string, status int) {
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
}

func (m *metrics) recovery(outcome string) {
	m.recoveries.WithLabelValues(outcome).Inc()
}

// RecoveryCount returns how many 401 recoveries ended with outcome
func (c *Client) RecoveryCount(outcome string) float64 {
	return counterValue(c.metrics.recoveries.WithLabelValues(outcome))
}

func statusClass(status int) string {
	if status == 0 {
		return "error"
	}
	return fmt.Sprintf("%dxx", status/100)
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
