// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package source

import (
	"time"

	"github.com/featurebasedb/recordimport/record"
)

// Transform rewrites a single record. It must not retain the record.
type Transform func(*record.Record) *record.Record

// Mapped applies a Transform to every record read from an inner Source.
type Mapped struct {
	inner Source
	fn    Transform
}

// Map wraps inner so every record it returns passes through fn.
func Map(inner Source, fn Transform) *Mapped {
	return &Mapped{inner: inner, fn: fn}
}

func (m *Mapped) ReadPage(n int) ([]*record.Record, Op, error) {
	recs, op, err := m.inner.ReadPage(n)
	if err != nil {
		return nil, op, err
	}
	out := make([]*record.Record, len(recs))
	for i, r := range recs {
		out[i] = m.fn(r)
	}
	return out, op, nil
}

func (m *Mapped) Close() error {
	return m.inner.Close()
}

// Provenance attribute names.
const (
	AttrImportTimestamp  = "import:timestamp"
	AttrImportSnapshotID = "import:snapshot_id"
)

// Provenance returns a Transform stamping each record with the time of the
// import and, when snapshotID is not empty, the snapshot it came from.
func Provenance(at time.Time, snapshotID string) Transform {
	stamp := record.DateTime(at.UTC())
	return func(r *record.Record) *record.Record {
		r.Set(AttrImportTimestamp, stamp)
		if snapshotID != "" {
			r.Set(AttrImportSnapshotID, record.String(snapshotID))
		}
		return r
	}
}
