package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Call metrics
	activeCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "triage_gateway_active_calls",
		Help: "Number of active bridged calls",
	})

	totalCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_gateway_calls_total",
		Help: "Total number of calls bridged to the voice agent",
	})

	callDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_gateway_call_duration_seconds",
		Help:    "Duration of bridged calls in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Triage metrics
	classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_gateway_classifications_total",
		Help: "Call classification outcomes",
	}, []string{"result"}) // result: "emergency" or "non_emergency"

	criticalityLevels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_gateway_criticality_total",
		Help: "Criticality levels assigned to calls",
	}, []string{"level"})

	// Reasoning model metrics
	reasoningRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_gateway_reasoning_requests_total",
		Help: "Total number of reasoning model requests",
	}, []string{"operation", "status"})

	reasoningLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triage_gateway_reasoning_latency_seconds",
		Help:    "Reasoning model request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"operation"})

	// Bridge metrics
	bargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_gateway_barge_ins_total",
		Help: "Total number of caller barge-in interruptions",
	})

	audioBytesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_gateway_audio_bytes_total",
		Help: "Total audio bytes relayed",
	}, []string{"direction"}) // direction: "in" or "out"

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "triage_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks metrics for a single call
type Metrics struct {
	callSid   string
	startTime time.Time
}

// NewCallMetrics creates a new metrics tracker for a call
func NewCallMetrics(callSid string) *Metrics {
	return &Metrics{
		callSid:   callSid,
		startTime: time.Now(),
	}
}

// RecordCallStart records the start of a bridged call
func (m *Metrics) RecordCallStart() {
	activeCalls.Inc()
	totalCalls.Inc()
}

// RecordCallEnd records the end of a bridged call
func (m *Metrics) RecordCallEnd() {
	activeCalls.Dec()
	callDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordBargeIn records a caller interruption that flushed queued audio
func (m *Metrics) RecordBargeIn() {
	bargeIns.Inc()
}

// RecordAudioBytes records audio bytes relayed in one direction
func (m *Metrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesRelayed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordClassification records a classification outcome
func RecordClassification(isEmergency bool) {
	result := "non_emergency"
	if isEmergency {
		result = "emergency"
	}
	classifications.WithLabelValues(result).Inc()
}

// RecordCriticality records the criticality level assigned to a call
func RecordCriticality(level string) {
	criticalityLevels.WithLabelValues(level).Inc()
}

// ObserveReasoning records one reasoning model request
func ObserveReasoning(operation string, latency time.Duration, success bool) {
	reasoningLatency.WithLabelValues(operation).Observe(latency.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	reasoningRequests.WithLabelValues(operation, status).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
