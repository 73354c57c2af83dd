// Package monitoring holds the Prometheus metrics of the arbiter and its
// transports.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "caraudio"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Vehicle protocol
	FocusRequests   *prometheus.CounterVec
	FocusResponses  *prometheus.CounterVec
	Timeouts        prometheus.Counter
	StreamMismatch  prometheus.Counter
	RoundTrip       prometheus.Histogram
	FocusState      prometheus.Gauge
	GrantedStreams  prometheus.Gauge
	AudioContexts   prometheus.Gauge
	RadioActive     prometheus.Gauge
	CallActive      prometheus.Gauge

	// Platform side
	PlatformGrants    prometheus.Counter
	ProxyRequests     *prometheus.CounterVec
	ReleasesScheduled prometheus.Counter
	TranslationErrors prometheus.Counter

	// Vehicle events
	VolumeEvents       prometheus.Counter
	StreamStatusEvents prometheus.Counter

	// Transports
	WSConnections prometheus.Gauge
	WSMessages    prometheus.Counter
	WSDropped     prometheus.Counter
	UDPPackets    prometheus.Counter

	Registry *prometheus.Registry
}

// NewMetrics creates every metric on a fresh registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers every metric on reg.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,

		FocusRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "focus_requests_total",
				Help:      "Focus requests sent to the vehicle",
			},
			[]string{"request"},
		),
		FocusResponses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "focus_responses_total",
				Help:      "Focus states reported by the vehicle",
			},
			[]string{"state"},
		),
		Timeouts: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "focus_response_timeouts_total",
				Help:      "Focus requests the vehicle did not answer in time",
			},
		),
		StreamMismatch: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "focus_stream_mismatch_total",
				Help:      "Responses that did not grant every requested stream",
			},
		),
		RoundTrip: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "focus_round_trip_seconds",
				Help:      "Time from focus request to vehicle response",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		FocusState: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "focus_state",
				Help:      "Current vehicle focus state code",
			},
		),
		GrantedStreams: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "focus_streams",
				Help:      "Bitmask of streams currently granted by the vehicle",
			},
		),
		AudioContexts: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "audio_contexts",
				Help:      "Bitmask of audio contexts last sent to the vehicle",
			},
		),
		RadioActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "radio_active",
				Help:      "1 while external radio plays alongside platform audio",
			},
		),
		CallActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "call_active",
				Help:      "1 while a voice call holds focus",
			},
		),
		PlatformGrants: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "platform_focus_grants_total",
				Help:      "Focus grants observed on the platform stack",
			},
		),
		ProxyRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxy_focus_requests_total",
				Help:      "Platform focus requests made on behalf of the vehicle",
			},
			[]string{"gain"},
		),
		ReleasesScheduled: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "focus_releases_scheduled_total",
				Help:      "Delayed focus releases scheduled",
			},
		),
		TranslationErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_translation_errors_total",
				Help:      "Focus holders whose usage could not be routed",
			},
		),
		VolumeEvents: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "volume_events_total",
				Help:      "Volume and volume limit changes reported by the vehicle",
			},
		),
		StreamStatusEvents: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_status_events_total",
				Help:      "Stream start and stop events reported by the vehicle",
			},
		),
		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Connected WebSocket status clients",
			},
		),
		WSMessages: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Status messages delivered to WebSocket clients",
			},
		),
		WSDropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_dropped_total",
				Help:      "Status messages dropped because the broadcast queue was full",
			},
		),
		UDPPackets: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "udp_packets_total",
				Help:      "Status packets sent over UDP",
			},
		),
	}
}

// ObserveRoundTrip records how long the vehicle took to answer.
func (m *Metrics) ObserveRoundTrip(d time.Duration) {
	m.RoundTrip.Observe(d.Seconds())
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
