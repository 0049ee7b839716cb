package attrtrail

import (
	"context"
)

// metaKey is an unexported context key type.
type metaKey struct{}

// WithOperator attaches an operator identifier to the context.
func WithOperator(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.Operator = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithTraceID attaches a trace identifier.
func WithTraceID(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.TraceID = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithReason attaches a human-readable reason for the write.
func WithReason(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.Reason = v
	return context.WithValue(ctx, metaKey{}, m)
}

// extractMeta extracts metadata from context.
func extractMeta(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	if v := ctx.Value(metaKey{}); v != nil {
		if m, ok := v.(Meta); ok {
			return m
		}
	}
	return Meta{}
}
