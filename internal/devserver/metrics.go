package devserver

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	logins   *prometheus.CounterVec
	reissues *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reserve_devserver",
				Name:      "http_requests_total",
				Help:      "Requests served by route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reserve_devserver",
				Name:      "logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		reissues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reserve_devserver",
				Name:      "reissues_total",
				Help:      "Access token reissues by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.requests, m.logins, m.reissues)
	return m
}

func (m *metrics) request(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *metrics) login(ok bool) {
	m.logins.WithLabelValues(result(ok)).Inc()
}

func (m *metrics) reissue(ok bool) {
	m.reissues.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
