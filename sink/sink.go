// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package sink defines where batches of records are written.
package sink

import (
	"context"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/schema"
)

// Sink receives the record types and batches produced by an import job.
//
// CreateOrModifyRecordType is idempotent: it creates the type from observed
// the first time and afterwards widens the existing schema to accept
// observed, returning the schema in effect. UpsertBatch overlays only the
// attributes each record carries. Close is always called once at the end of
// the job; side effects that must only happen for a successful job are
// performed there when MarkSuccess has been called.
type Sink interface {
	CreateOrModifyRecordType(ctx context.Context, t record.RecordType, observed schema.Schema, recs []*record.Record, primaryKey string) (schema.Schema, error)
	UpsertBatch(ctx context.Context, t record.RecordType, s schema.Schema, recs []*record.Record, primaryKey string) error
	DeleteBatch(ctx context.Context, t record.RecordType, recs []*record.Record) error
	MarkSuccess()
	Close(ctx context.Context) error
}

// Kind selects a Sink implementation.
type Kind string

const (
	KindStore   Kind = "store"
	KindHandoff Kind = "handoff"
)

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindStore, KindHandoff:
		return k, nil
	}
	return "", errors.Errorf("unknown sink '%s', expected %s or %s", s, KindStore, KindHandoff)
}
