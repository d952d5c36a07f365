package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartBridgeRequest opens a span around one JSON-RPC request handled
// by the bridge server, tagged with the method name and the
// originating connection's remote address.
func (p *Provider) StartBridgeRequest(ctx context.Context, method, remoteAddr string) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, "bridge.request",
		trace.WithAttributes(
			attribute.String("mcpbridge.method", method),
			attribute.String("mcpbridge.remote_addr", remoteAddr),
		),
	)
}

// StartLifecycleTransition opens a span around one lifecycle state
// transition (e.g. "running" -> "reloading", or "reloading" -> "recovered").
func (p *Provider) StartLifecycleTransition(ctx context.Context, from, to string) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, "lifecycle.transition",
		trace.WithAttributes(
			attribute.String("mcpbridge.lifecycle.from", from),
			attribute.String("mcpbridge.lifecycle.to", to),
		),
	)
}

// EndWithError records err on span (if non-nil) before ending it,
// mirroring the span.SetStatus(codes.Error, ...) pattern used for
// request-scoped spans.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
