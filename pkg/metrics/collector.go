package metrics

import (
	"context"
	"time"

	"github.com/icare-life/carebot/internal/conversation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebot_messages_total",
			Help: "Total number of widget messages received labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	messageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carebot_message_duration_seconds",
			Help:    "Duration of message handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	flowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebot_flow_transitions_total",
			Help: "Total number of conversation flow transitions",
		},
		[]string{"from", "to"},
	)
	policyVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebot_policy_verdicts_total",
			Help: "Total number of access policy verdicts by kind",
		},
		[]string{"kind"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebot_errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carebot_active_sessions",
			Help: "Current number of live chat sessions",
		},
	)
	sessionsByFlow = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carebot_sessions_by_flow",
			Help: "Number of live sessions per conversation flow",
		},
		[]string{"flow"},
	)
	lookupDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carebot_lookup_duration_seconds",
			Help:    "Knowledge base and fallback lookup latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)

var trackedFlows = []conversation.Flow{
	conversation.FlowWelcome,
	conversation.FlowUserType,
	conversation.FlowStudent,
	conversation.FlowPartner,
	conversation.FlowGuest,
	conversation.FlowHealth,
}

func init() {
	conversation.RegisterFlowTransitionRecorder(RecordFlowTransition)
	conversation.RegisterVerdictRecorder(RecordVerdict)
}

// RecordMessage increments message counters and records handling duration.
func RecordMessage(kind, status string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	messagesTotal.WithLabelValues(kind, status).Inc()
	messageDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordFlowTransition tracks conversation flow transitions.
func RecordFlowTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	flowTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordVerdict counts access policy outcomes.
func RecordVerdict(kind string) {
	if kind == "" {
		kind = "unknown"
	}

	policyVerdictsTotal.WithLabelValues(kind).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// RecordLookupDuration observes the latency of an answer lookup.
func RecordLookupDuration(source string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}

	lookupDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// SessionLister exposes the live session snapshots the collector polls.
type SessionLister interface {
	States(ctx context.Context) ([]*conversation.State, error)
}

// SessionCollector periodically gathers session counts and emits gauge metrics.
type SessionCollector struct {
	sessions SessionLister
}

// NewSessionCollector builds a metrics collector bound to the session manager.
func NewSessionCollector(sessions SessionLister) *SessionCollector {
	return &SessionCollector{sessions: sessions}
}

// Run polls the session manager every 10 seconds, updating gauges until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.sessions == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *SessionCollector) collect(ctx context.Context) error {
	states, err := c.sessions.States(ctx)
	if err != nil {
		return err
	}

	activeSessions.Set(float64(len(states)))

	flowCounts := make(map[string]int, len(states))
	for _, st := range states {
		label := "unknown"
		if st != nil && st.CurrentFlow != "" {
			label = string(st.CurrentFlow)
		}
		flowCounts[label]++
	}

	sessionsByFlow.Reset()

	for _, tracked := range trackedFlows {
		label := string(tracked)
		sessionsByFlow.WithLabelValues(label).Set(float64(flowCounts[label]))
		delete(flowCounts, label)
	}

	for label, count := range flowCounts {
		sessionsByFlow.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
