// Package metrics provides Prometheus metrics for the transcription
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meeting_assistant"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal     *prometheus.CounterVec
	SessionsActive    prometheus.Gauge
	HandshakeFailures *prometheus.CounterVec
	SessionDuration   prometheus.Histogram

	// Audio metrics
	AudioChunksSent *prometheus.CounterVec
	AudioBytesSent  *prometheus.CounterVec
	IngressFrames   *prometheus.CounterVec
	IngressBytes    prometheus.Counter

	// Transcript metrics
	TranscriptDeltas prometheus.Counter
	TranscriptsFinal prometheus.Counter
	ProtocolErrors   *prometheus.CounterVec

	// Event publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of transcription sessions started",
		}, []string{"channel"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently open transcription sessions",
		}),
		HandshakeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_handshake_failures_total",
			Help:      "Total number of failed session handshakes",
		}, []string{"channel"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of transcription sessions in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}),

		AudioChunksSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_sent_total",
			Help:      "Total audio chunks sent to the speech service",
		}, []string{"channel"}),
		AudioBytesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total encoded audio bytes sent to the speech service",
		}, []string{"channel"}),
		IngressFrames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_frames_total",
			Help:      "Total audio frames received on the capture ingress",
		}, []string{"channel", "encoding"}),
		IngressBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_bytes_total",
			Help:      "Total audio bytes received on the capture ingress",
		}),

		TranscriptDeltas: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_deltas_total",
			Help:      "Total partial transcript deltas received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total finalized transcripts received",
		}),
		ProtocolErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Total protocol-level errors by kind",
		}, []string{"kind"}),

		PublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Total transcript events published downstream",
		}, []string{"topic", "event_type"}),
		PublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total transcript event publish errors",
		}, []string{"topic", "event_type"}),
		PublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_seconds",
			Help:      "Transcript event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a session entering the open state.
func (m *Metrics) RecordSessionStart(channel string) {
	m.SessionsTotal.WithLabelValues(channel).Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session leaving the open state.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordHandshakeFailure records a failed connect attempt.
func (m *Metrics) RecordHandshakeFailure(channel string) {
	m.HandshakeFailures.WithLabelValues(channel).Inc()
}

// RecordAudioSent records an audio chunk forwarded to the speech service.
func (m *Metrics) RecordAudioSent(channel string, bytes int) {
	m.AudioChunksSent.WithLabelValues(channel).Inc()
	m.AudioBytesSent.WithLabelValues(channel).Add(float64(bytes))
}

// RecordIngressFrame records an audio frame received from a capture helper.
func (m *Metrics) RecordIngressFrame(channel, encoding string, bytes int) {
	m.IngressFrames.WithLabelValues(channel, encoding).Inc()
	m.IngressBytes.Add(float64(bytes))
}

// RecordTranscriptDelta records a partial transcript delta.
func (m *Metrics) RecordTranscriptDelta() {
	m.TranscriptDeltas.Inc()
}

// RecordTranscriptFinal records a finalized transcript.
func (m *Metrics) RecordTranscriptFinal() {
	m.TranscriptsFinal.Inc()
}

// RecordProtocolError records a protocol-level error by kind.
func (m *Metrics) RecordProtocolError(kind string) {
	m.ProtocolErrors.WithLabelValues(kind).Inc()
}

// RecordPublish records a downstream publish attempt.
func (m *Metrics) RecordPublish(topic, eventType string, err error, latencySeconds float64) {
	m.PublishTotal.WithLabelValues(topic, eventType).Inc()
	m.PublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.PublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
