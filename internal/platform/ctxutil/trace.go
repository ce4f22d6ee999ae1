package ctxutil

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type traceDataKey struct{}

// TraceData carries request correlation ids. ResourceID is the job or recruitment id taken
// from the route and is empty for other requests.
type TraceData struct {
	TraceID    string
	RequestID  string
	ResourceID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns trace/request identifiers for structured logging. Background work has no
// TraceData, so the active span's trace id is used when present.
func LogFields(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	if td := GetTraceData(ctx); td != nil {
		fields := []interface{}{"trace_id", td.TraceID, "request_id", td.RequestID}
		if td.ResourceID != "" {
			fields = append(fields, "resource_id", td.ResourceID)
		}
		return fields
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return []interface{}{"trace_id", sc.TraceID().String()}
	}
	return nil
}
