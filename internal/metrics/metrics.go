package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the service's Prometheus registry. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	signIns         *prometheus.CounterVec
	resetRequests   *prometheus.CounterVec
	passwordUpdates *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
	authEvents      *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tmt_sign_ins_total",
			Help: "Password sign-in attempts by result",
		}, []string{"result"}), // result: success|rejected|invalid|error
		resetRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tmt_reset_requests_total",
			Help: "Password reset requests by outcome",
		}, []string{"outcome"}), // outcome: dispatched|suppressed|invalid|failed
		passwordUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tmt_password_updates_total",
			Help: "Password updates from the recovery flow by result",
		}, []string{"result"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tmt_admin_guard_decisions_total",
			Help: "Administrative route guard decisions",
		}, []string{"outcome"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tmt_auth_events_total",
			Help: "Auth state change events published",
		}, []string{"type"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.signIns,
		r.resetRequests,
		r.passwordUpdates,
		r.guardDecisions,
		r.authEvents,
		r.httpRequestsTotal,
		r.httpRequestDuration,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) SignIn(result string) {
	if r == nil {
		return
	}
	r.signIns.WithLabelValues(result).Inc()
}

func (r *Recorder) ResetRequest(outcome string) {
	if r == nil {
		return
	}
	r.resetRequests.WithLabelValues(outcome).Inc()
}

func (r *Recorder) PasswordUpdate(result string) {
	if r == nil {
		return
	}
	r.passwordUpdates.WithLabelValues(result).Inc()
}

func (r *Recorder) GuardDecision(outcome string) {
	if r == nil {
		return
	}
	r.guardDecisions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) AuthEvent(eventType string) {
	if r == nil {
		return
	}
	r.authEvents.WithLabelValues(eventType).Inc()
}

// ObserveHTTP records one served request. route should be the mux pattern, not the raw path.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
