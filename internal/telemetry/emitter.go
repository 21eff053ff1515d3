package telemetry

import (
	"context"
	"fmt"

	"github.com/opsmind/intelplane/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Emitter records request lifecycle events as span events on the
// current trace plus a structured log line. Delivery is fire-and-forget:
// Emit never returns an error and a missing span is not a failure.
type Emitter struct {
	tracer trace.Tracer
}

// NewEmitter creates the emitter. It uses the globally registered
// tracer provider, so Init must run first for spans to be exported.
func NewEmitter() *Emitter {
	return &Emitter{tracer: otel.Tracer("intelplane")}
}

// Emit records one telemetry event.
func (e *Emitter) Emit(ctx context.Context, event models.TelemetryEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", event.Provider),
		attribute.String("episode.kind", string(event.EpisodeKind)),
	}
	if event.Model != "" {
		attrs = append(attrs, attribute.String("model", event.Model))
	}
	for k, v := range event.Measurements {
		attrs = append(attrs, attribute.Float64("measurement."+k, v))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, attribute.String("metadata."+k, toString(v)))
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		span.AddEvent(event.Name, trace.WithAttributes(attrs...))
	}

	logEvent := log.Debug()
	if event.Name == models.EventRequestFailed {
		logEvent = log.Warn()
	}
	logEvent.
		Str("event", event.Name).
		Str("provider", event.Provider).
		Str("kind", string(event.EpisodeKind)).
		Fields(map[string]interface{}{"measurements": event.Measurements, "metadata": event.Metadata}).
		Msg("telemetry")
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
