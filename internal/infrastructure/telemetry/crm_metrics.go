package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Chatbot outcomes
const (
	OutcomeAnswered   = "answered"
	OutcomeNotLoaded  = "not_loaded"
	OutcomeError      = "error"
	OutcomeNoResponse = "no_response"
)

var (
	attrOutcome  = attribute.Key("outcome")
	attrProvider = attribute.Key("llm.provider")
	attrStatus   = attribute.Key("status")
	attrCache    = attribute.Key("cache")
)

// CRMMetrics records the service-level counters. A nil *CRMMetrics is a valid no-op.
type CRMMetrics struct {
	chatbotRequests *Counter
	panelCloses     *Counter
	snapshotLoads   *Counter
	llmDuration     *Histogram
}

// NewCRMMetrics creates the instruments on meter
func NewCRMMetrics(meter metric.Meter) (*CRMMetrics, error) {
	var (
		m   CRMMetrics
		err error
	)
	if m.chatbotRequests, err = NewCounter(meter, "crm_chatbot_requests_total",
		"Chatbot questions by outcome", "{requests}"); err != nil {
		return nil, err
	}
	if m.panelCloses, err = NewCounter(meter, "crm_notification_panel_closes_total",
		"Notification panel closes that advanced the read marker", "{closes}"); err != nil {
		return nil, err
	}
	if m.snapshotLoads, err = NewCounter(meter, "crm_chatbot_snapshot_loads_total",
		"Chatbot context lookups by cache result", "{loads}"); err != nil {
		return nil, err
	}
	if m.llmDuration, err = NewHistogram(meter, "crm_llm_request_duration_seconds",
		"Text-generation request latency", "s", LLMDurationBuckets); err != nil {
		return nil, err
	}
	return &m, nil
}

// ChatbotOutcome counts one answered question
func (m *CRMMetrics) ChatbotOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.chatbotRequests.Inc(ctx, attrOutcome.String(outcome))
}

// PanelClosed counts one panel close
func (m *CRMMetrics) PanelClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.panelCloses.Inc(ctx)
}

// SnapshotLoaded counts a context lookup served from cache or assembled fresh
func (m *CRMMetrics) SnapshotLoaded(ctx context.Context, cached bool) {
	if m == nil {
		return
	}
	result := "miss"
	if cached {
		result = "hit"
	}
	m.snapshotLoads.Inc(ctx, attrCache.String(result))
}

// LLMRequest records the latency of one text-generation call
func (m *CRMMetrics) LLMRequest(ctx context.Context, provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmDuration.RecordDuration(ctx, d, attrProvider.String(provider), attrStatus.String(status))
}
