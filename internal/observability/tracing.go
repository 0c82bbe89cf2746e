// Package observability wires guardctl's OpenTelemetry tracing: a
// process-wide TracerProvider and span helpers for three phases
// (evaluation, the HITL wait, and the AITL review call). Only the
// evaluation span (ResolveSpan) is started by the service layer; nothing
// in the repository starts HITLWaitSpan or ReviewSpan.
//
// The teacher repo (sentinel-gate) carries the full otel dependency set in
// go.mod but never imports it; there is no existing span around any of its
// request handling to imitate. The provider-setup and Start/End/RecordError
// idiom here instead follows goa.design/goa-ai's runtime telemetry
// (runtime/agent/telemetry/clue.go, runtime/agent/runtime/model_tracing.go),
// the one example repo that actually wires otel end to end.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sentineltrace/guardctl"

// Tracer wraps the guardctl tracer. The zero value is not usable; build one
// with NewTracer.
type Tracer struct {
	tracer trace.Tracer
}

// TracerProviderConfig configures the process-wide TracerProvider.
type TracerProviderConfig struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string
	// ServiceVersion is recorded as the service.version resource attribute.
	ServiceVersion string
	// PrettyPrint renders stdout spans as indented JSON, useful for local
	// development. Leave false in normal dev-mode logging.
	PrettyPrint bool
}

// NewTracerProvider builds a TracerProvider that exports spans to stdout,
// installs it as the global provider, and returns it so the caller can
// Shutdown it on exit. Matches the teacher's dependency set exactly: the
// teacher's go.mod pulls in stdout trace/metric exporters only, no OTLP
// network exporter, so none is wired here either.
func NewTracerProvider(ctx context.Context, cfg TracerProviderConfig) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// NewTracer returns a Tracer over the global TracerProvider. Call after
// NewTracerProvider has installed it (or in tests, over the no-op provider
// otel defaults to).
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// Start begins a span named name and returns the derived context alongside
// an End func that records err (if non-nil) before closing the span. Callers
// defer the returned func:
//
//	ctx, end := tracer.Start(ctx, "policy.resolve", attribute.String("tool", name))
//	defer func() { end(err) }()
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// ResolveSpan wraps a single policy resolution decision.
func (t *Tracer) ResolveSpan(ctx context.Context, toolName, mcpServer string) (context.Context, func(err error)) {
	return t.Start(ctx, "guardctl.policy.resolve",
		attribute.String("guardctl.tool_name", toolName),
		attribute.String("guardctl.mcp_server", mcpServer),
	)
}

// HITLWaitSpan wraps the time a turn spends blocked on a chat or bot
// approval resolving.
func (t *Tracer) HITLWaitSpan(ctx context.Context, toolCallID string) (context.Context, func(err error)) {
	return t.Start(ctx, "guardctl.hitl.wait",
		attribute.String("guardctl.tool_call_id", toolCallID),
	)
}

// ReviewSpan wraps a single AITL reviewer call.
func (t *Tracer) ReviewSpan(ctx context.Context, toolName, model string) (context.Context, func(err error)) {
	return t.Start(ctx, "guardctl.reviewer.review",
		attribute.String("guardctl.tool_name", toolName),
		attribute.String("guardctl.reviewer_model", model),
	)
}
