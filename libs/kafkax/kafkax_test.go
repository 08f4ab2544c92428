package kafkax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, SplitBrokers(" k1:9092, ,k2:9092"))
	assert.Nil(t, SplitBrokers(""))
}

func TestEventHeaders(t *testing.T) {
	h := EventHeaders("evt-1", "clinic.appointment.booked.v1")
	assert.Equal(t, "evt-1", HeaderValue(h, "event_id"))
	assert.Equal(t, "clinic.appointment.booked.v1", HeaderValue(h, "event_type"))
	assert.Equal(t, "", HeaderValue(h, "missing"))
}

func TestInjectTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	h := InjectTraceHeaders(ctx, EventHeaders("evt-1", "t"))
	assert.Contains(t, HeaderValue(h, "traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
	assert.Len(t, h, 3)
}
