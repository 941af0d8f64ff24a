// Package metrics содержит счётчики Prometheus для биллинга.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "billing"

// Metrics набор счётчиков. Методы безопасно вызывать на nil.
type Metrics struct {
	checkouts   prometheus.Counter
	confirmed   prometheus.Counter
	transitions *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_created_total",
			Help:      "Number of created checkout sessions.",
		}),
		confirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_confirmed_total",
			Help:      "Number of payment confirmations.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_transitions_total",
			Help:      "Subscription status transitions by target status.",
		}, []string{"to"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(m.checkouts, m.confirmed, m.transitions, m.requests)
	return m
}

// CheckoutCreated учитывает созданный платёж.
func (m *Metrics) CheckoutCreated() {
	if m == nil {
		return
	}
	m.checkouts.Inc()
}

// PaymentConfirmed учитывает подтверждение платежа.
func (m *Metrics) PaymentConfirmed() {
	if m == nil {
		return
	}
	m.confirmed.Inc()
}

// Transition учитывает переход подписки в статус to.
func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// Middleware считает HTTP-запросы по методу и коду ответа.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if m == nil {
			return
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	})
}
