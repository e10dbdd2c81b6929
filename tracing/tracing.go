// Package tracing wraps the opentracing-go span helpers the optimizer
// driver uses, so the instrumentation convention (span name, fields set on
// finish) lives in one place instead of being inlined at every call site.
package tracing

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
)

// Span wraps an opentracing.Span with the handful of operations the
// planning core needs: set a couple of standard fields and finish.
type Span struct {
	span opentracing.Span
}

// StartOptimize starts a span for one Driver.Optimize call.
func StartOptimize(ctx context.Context) (*Span, context.Context) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "optimizer.Optimize")
	return &Span{span: span}, spanCtx
}

// SetPlanCount records how many candidate plans the frontier held when
// the span ended.
func (s *Span) SetPlanCount(n int) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetTag("plan_count", n)
}

// SetAppliedRules records the winning plan's applied-rule count.
func (s *Span) SetAppliedRules(n int) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetTag("applied_rules", n)
}

// Finish closes the span.
func (s *Span) Finish() {
	if s == nil || s.span == nil {
		return
	}
	s.span.Finish()
}
