package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	specsGenerated        *prometheus.CounterVec
	generationDuration    *prometheus.HistogramVec
	validationsTotal      *prometheus.CounterVec
	validationDiagnostics prometheus.Histogram
	correctionAttempts    prometheus.Histogram
	llmTokens             *prometheus.CounterVec
	archiveWrites         *prometheus.CounterVec
	jobsActive            *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.specsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specforge_specs_generated_total",
			Help: "Total number of spec generation requests",
		},
		[]string{"family", "outcome"},
	)
	r.generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "specforge_generation_duration_seconds",
			Help:    "Spec generation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"family"},
	)
	r.validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specforge_validations_total",
			Help: "Total number of spec validations",
		},
		[]string{"family", "outcome"},
	)
	r.validationDiagnostics = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "specforge_validation_diagnostics",
			Help:    "Diagnostics per rejected spec",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		},
	)
	r.correctionAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "specforge_correction_attempts",
			Help:    "Correction passes used per generation",
			Buckets: []float64{0, 1, 2},
		},
	)
	r.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specforge_llm_tokens_total",
			Help: "Total LLM tokens consumed",
		},
		[]string{"provider", "direction"},
	)
	r.archiveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specforge_archive_writes_total",
			Help: "Total archive writes of accepted specs",
		},
		[]string{"backend", "status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "specforge_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.specsGenerated)
	reg.MustRegister(r.generationDuration)
	reg.MustRegister(r.validationsTotal)
	reg.MustRegister(r.validationDiagnostics)
	reg.MustRegister(r.correctionAttempts)
	reg.MustRegister(r.llmTokens)
	reg.MustRegister(r.archiveWrites)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordGeneration records one generation request outcome.
func (r *Registry) RecordGeneration(family, outcome string, duration float64, corrections int) {
	r.specsGenerated.WithLabelValues(family, outcome).Inc()
	r.generationDuration.WithLabelValues(family).Observe(duration)
	r.correctionAttempts.Observe(float64(corrections))
}

// RecordValidation records one validation outcome.
func (r *Registry) RecordValidation(family string, valid bool, diagnostics int) {
	outcome := "accepted"
	if !valid {
		outcome = "rejected"
		r.validationDiagnostics.Observe(float64(diagnostics))
	}
	r.validationsTotal.WithLabelValues(family, outcome).Inc()
}

// RecordTokens records LLM token consumption.
func (r *Registry) RecordTokens(provider string, input, output int) {
	r.llmTokens.WithLabelValues(provider, "input").Add(float64(input))
	r.llmTokens.WithLabelValues(provider, "output").Add(float64(output))
}

// RecordArchiveWrite records an archive write result.
func (r *Registry) RecordArchiveWrite(backend, status string) {
	r.archiveWrites.WithLabelValues(backend, status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
