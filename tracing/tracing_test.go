// Copyright 2021 Molecula Corp. All rights reserved.
package tracing_test

import (
	"context"
	"testing"

	jobcontext "github.com/featurebasedb/recordimport/context"
	"github.com/featurebasedb/recordimport/tracing"
	"github.com/stretchr/testify/assert"
)

func TestNopTracerKeepsContext(t *testing.T) {
	ctx := jobcontext.WithJobID(context.Background(), "job-1")
	span, got := tracing.StartSpanFromContext(ctx, "op")
	id, ok := jobcontext.JobID(got)
	assert.True(t, ok)
	assert.Equal(t, "job-1", id)
	tracing.FinishSpan(span, nil)
}
