package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector exported by the service.
type Metrics struct {
	serviceName string

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database
	DBQueryDuration     *prometheus.HistogramVec
	DBQueryErrors       *prometheus.CounterVec
	DBOpenConnections   *prometheus.GaugeVec
	DBInUseConnections  *prometheus.GaugeVec
	DBIdleConnections   *prometheus.GaugeVec
	DBWaitCount         *prometheus.GaugeVec
	DBWaitDurationTotal *prometheus.GaugeVec

	// Business
	AppointmentsCreated    *prometheus.CounterVec
	BookingConflicts       *prometheus.CounterVec
	AppointmentTransitions *prometheus.CounterVec
	PackageDeductions      *prometheus.CounterVec
	PackagePayments        *prometheus.CounterVec
}

// New registers collectors in the default Prometheus registry.
func New(serviceName string) *Metrics {
	return NewWithRegisterer(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers collectors in reg.
func NewWithRegisterer(serviceName string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		serviceName: serviceName,

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "operation"}),

		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of failed database queries",
		}, []string{"service", "operation"}),

		DBOpenConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_open_connections",
			Help: "Number of established connections",
		}, []string{"service"}),

		DBInUseConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_in_use_connections",
			Help: "Number of connections currently in use",
		}, []string{"service"}),

		DBIdleConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_idle_connections",
			Help: "Number of idle connections",
		}, []string{"service"}),

		DBWaitCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_wait_count",
			Help: "Total number of connections waited for",
		}, []string{"service"}),

		DBWaitDurationTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_wait_duration_seconds_total",
			Help: "Total time blocked waiting for a new connection",
		}, []string{"service"}),

		AppointmentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appointments_created_total",
			Help: "Total number of booked appointments",
		}, []string{"service"}),

		BookingConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Total number of rejected bookings by conflict axis",
		}, []string{"service", "axis"}),

		AppointmentTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_transitions_total",
			Help: "Total number of appointment status transitions",
		}, []string{"service", "from", "to"}),

		PackageDeductions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "package_deductions_total",
			Help: "Total number of package balance deductions",
		}, []string{"service", "kind"}),

		PackagePayments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "package_payments_total",
			Help: "Total number of recorded payments",
		}, []string{"service"}),
	}
}

// ServiceName returns the value of the "service" label.
func (m *Metrics) ServiceName() string {
	return m.serviceName
}

// AppointmentCreated counts a successful booking
func (m *Metrics) AppointmentCreated() {
	m.AppointmentsCreated.WithLabelValues(m.serviceName).Inc()
}

// ConflictDetected counts a booking rejected by the conflict guard
func (m *Metrics) ConflictDetected(axis string) {
	m.BookingConflicts.WithLabelValues(m.serviceName, axis).Inc()
}

// StatusChanged counts an appointment transition
func (m *Metrics) StatusChanged(from, to string) {
	m.AppointmentTransitions.WithLabelValues(m.serviceName, from, to).Inc()
}

// PackageDeducted counts a ledger deduction of the given kind (sessions/minutes)
func (m *Metrics) PackageDeducted(kind string) {
	m.PackageDeductions.WithLabelValues(m.serviceName, kind).Inc()
}

// PaymentRecorded counts an accepted payment
func (m *Metrics) PaymentRecorded() {
	m.PackagePayments.WithLabelValues(m.serviceName).Inc()
}
