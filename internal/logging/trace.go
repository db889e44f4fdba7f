package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// withTrace appends trace_id and span_id when ctx carries a sampled or
// remote span, so log lines can be joined with traces.
func withTrace(ctx context.Context, args []any) []any {
	if ctx == nil {
		return args
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return args
	}
	out := make([]any, 0, len(args)+4)
	out = append(out, args...)
	return append(out, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}
