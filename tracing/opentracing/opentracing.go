// Copyright 2021 Molecula Corp. All rights reserved.
package opentracing

import (
	"context"
	"net/http"

	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/tracing"
	"github.com/opentracing/opentracing-go"
)

// Ensure type implements interface.
var _ tracing.Tracer = (*Tracer)(nil)

// Tracer represents a wrapper for OpenTracing that implements tracing.Tracer.
type Tracer struct {
	tracer opentracing.Tracer
	logger logger.Logger
}

// NewTracer returns a new instance of Tracer.
func NewTracer(tracer opentracing.Tracer, logger logger.Logger) *Tracer {
	return &Tracer{tracer: tracer, logger: logger}
}

// Install makes the tracer registered with opentracing.SetGlobalTracer the
// one every job span goes to.
func Install(logger logger.Logger) {
	tracing.GlobalTracer = NewTracer(opentracing.GlobalTracer(), logger)
}

// StartSpanFromContext returns a new child span and context from a given context.
func (t *Tracer) StartSpanFromContext(ctx context.Context, operationName string) (tracing.Span, context.Context) {
	var opts []opentracing.StartSpanOption
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}
	s := t.tracer.StartSpan(operationName, opts...)
	return span{s}, opentracing.ContextWithSpan(ctx, s)
}

// InjectHTTPHeaders adds the span of the request's context to its headers.
func (t *Tracer) InjectHTTPHeaders(r *http.Request) {
	if s := opentracing.SpanFromContext(r.Context()); s != nil {
		if err := t.tracer.Inject(
			s.Context(),
			opentracing.HTTPHeaders,
			opentracing.HTTPHeadersCarrier(r.Header),
		); err != nil {
			t.logger.Errorf("opentracing inject error: %s", err)
		}
	}
}

type span struct {
	opentracing.Span
}

func (s span) SetTag(key string, value interface{}) {
	s.Span.SetTag(key, value)
}
