// Copyright 2021 Molecula Corp. All rights reserved.

// Package tracing starts spans around the work of an import job. Every span
// started through StartSpanFromContext carries the job it belongs to.
package tracing

import (
	"context"
	"net/http"

	jobcontext "github.com/featurebasedb/recordimport/context"
)

// Span tags.
const (
	TagJobID        = "job.id"
	TagCollectionID = "job.collection"
	TagError        = "error"
)

// GlobalTracer is a single, global instance of Tracer.
var GlobalTracer Tracer = NopTracer()

// StartSpanFromContext returns a new child span and context from a given
// context using the global tracer. The span is tagged with the job and
// collection ctx carries.
func StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	span, ctx := GlobalTracer.StartSpanFromContext(ctx, operationName)
	if id, ok := jobcontext.JobID(ctx); ok {
		span.SetTag(TagJobID, id)
	}
	if id, ok := jobcontext.CollectionID(ctx); ok {
		span.SetTag(TagCollectionID, id)
	}
	return span, ctx
}

// FinishSpan finishes span, marking it failed when err is not nil.
func FinishSpan(span Span, err error) {
	if err != nil {
		span.SetTag(TagError, true)
		span.LogKV("error", err.Error())
	}
	span.Finish()
}

// Tracer implements a generic distributed tracing interface.
type Tracer interface {
	// Returns a new child span and context from a given context.
	StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context)

	// Adds the headers carrying the span of r's context to r, so a
	// fetched file's server can join the trace.
	InjectHTTPHeaders(r *http.Request)
}

// Span represents a single span in a distributed trace.
type Span interface {
	Finish()
	LogKV(alternatingKeyValues ...interface{})
	SetTag(key string, value interface{})
}

// NopTracer returns a tracer that doesn't do anything.
func NopTracer() Tracer {
	return nopTracer{}
}

type nopTracer struct{}

func (nopTracer) StartSpanFromContext(ctx context.Context, _ string) (Span, context.Context) {
	return nopSpan{}, ctx
}

func (nopTracer) InjectHTTPHeaders(*http.Request) {}

type nopSpan struct{}

func (nopSpan) Finish()                    {}
func (nopSpan) LogKV(...interface{})       {}
func (nopSpan) SetTag(string, interface{}) {}
