// Package metrics exposes optional prometheus counters/gauges for the
// chat client runtime. None of this is part of the wire contract; it is
// purely ambient observability, wired through -metrics-addr.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelKind      = "kind"
	labelReason    = "reason"
	labelStateFrom = "state_from"
	labelStateTo   = "state_to"
)

// Metrics bundles every gauge/counter the runtime emits. A nil *Metrics
// disables metrics; the runtime checks for nil before recording anything.
type Metrics struct {
	reg *prometheus.Registry

	FramesSent       *prometheus.CounterVec
	FramesReceived   *prometheus.CounterVec
	FramesMalformed  *prometheus.CounterVec
	Retransmissions  prometheus.Counter
	ConfirmTimeouts  prometheus.Counter
	QueueDepth       prometheus.Gauge
	SessionState     *prometheus.GaugeVec
	StateTransitions *prometheus.CounterVec
}

// New constructs a Metrics bundle registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipk24chat_frames_sent_total",
			Help: "Frames transmitted, by kind.",
		}, []string{labelKind}),
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipk24chat_frames_received_total",
			Help: "Frames received, by kind.",
		}, []string{labelKind}),
		FramesMalformed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipk24chat_frames_malformed_total",
			Help: "Inbound frames that failed to disassemble, by reason.",
		}, []string{labelReason}),
		Retransmissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ipk24chat_retransmissions_total",
			Help: "UDP retransmissions performed by the Sender.",
		}),
		ConfirmTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ipk24chat_confirm_timeouts_total",
			Help: "Messages that exhausted udp_max_retries without a CONFIRM.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ipk24chat_queue_depth",
			Help: "Current length of the outbound message queue.",
		}),
		SessionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ipk24chat_session_state",
			Help: "1 for the FSM's current state, 0 otherwise.",
		}, []string{"state"}),
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipk24chat_state_transitions_total",
			Help: "FSM state transitions.",
		}, []string{labelStateFrom, labelStateTo}),
	}
}

// Registry returns the registry New wired these metrics into, for
// mounting under promhttp.HandlerFor in cmd/ipk24chat-client.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
