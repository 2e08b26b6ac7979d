// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package batch drives a Source through a Sink a page at a time.
package batch

import (
	"context"
	"time"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/infer"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/sink"
	"github.com/featurebasedb/recordimport/source"
	"github.com/featurebasedb/recordimport/tracing"
)

// DefaultPageSize is the number of records read per page when no size is
// configured.
const DefaultPageSize = 500

// DefaultPrimaryKey names the key column of types without a configured
// primary key.
const DefaultPrimaryKey = "sys_name"

type writer struct {
	pageSize    int
	primaryKey  string
	primaryKeys map[record.RecordType]string
	pass        string
	log         logger.Logger
	onPage      func(PageStats)
}

// PageStats describes one applied group of a page.
type PageStats struct {
	Type     record.RecordType
	Op       source.Op
	Records  int
	Duration time.Duration
}

// Option configures Write.
type Option func(*writer)

func OptPageSize(n int) Option {
	return func(w *writer) { w.pageSize = n }
}

// OptPrimaryKey sets the key column used for types missing from the map
// given to OptPrimaryKeys.
func OptPrimaryKey(pk string) Option {
	return func(w *writer) { w.primaryKey = pk }
}

func OptPrimaryKeys(pks map[record.RecordType]string) Option {
	return func(w *writer) { w.primaryKeys = pks }
}

// OptPass names the pass in log lines and errors.
func OptPass(name string) Option {
	return func(w *writer) { w.pass = name }
}

func OptLogger(l logger.Logger) Option {
	return func(w *writer) { w.log = l }
}

// OptPageHook is called after each group of records is applied.
func OptPageHook(fn func(PageStats)) Option {
	return func(w *writer) { w.onPage = fn }
}

func (w *writer) key(t record.RecordType) string {
	if pk, ok := w.primaryKeys[t]; ok && pk != "" {
		return pk
	}
	return w.primaryKey
}

// Write reads src until it is exhausted, applying every page to snk, and
// returns the number of records upserted per type. src is closed on every
// path. snk is left open because a job may run several passes through it:
// callers must Close it once the last pass is written, which is what
// publishes a hand-off document.
//
// Each page is split by record type, keeping the order in which types first
// appear. For every group the schema is inferred and applied before the
// records are written, so a failing group leaves earlier pages in place and
// stops the pass.
func Write(ctx context.Context, src source.Source, snk sink.Sink, opts ...Option) (result record.BatchWriteResult, err error) {
	w := &writer{
		pageSize:   DefaultPageSize,
		primaryKey: DefaultPrimaryKey,
		pass:       "import",
		log:        logger.NopLogger,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.pageSize <= 0 {
		src.Close()
		return result, errors.Errorf("invalid page size %d", w.pageSize)
	}

	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "closing source after %s", w.pass)
		}
	}()

	span, ctx := tracing.StartSpanFromContext(ctx, "batch.Write")
	span.LogKV("pass", w.pass)
	defer func() { tracing.FinishSpan(span, err) }()

	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrapf(err, "%s interrupted", w.pass)
		}
		page, op, err := src.ReadPage(w.pageSize)
		if err != nil {
			return result, errors.WithMessagef(err, "%s: reading page %d", w.pass, pageNum)
		}
		if len(page) == 0 {
			return result, nil
		}
		for _, g := range groupByType(page) {
			start := time.Now()
			if err := w.apply(ctx, snk, g.typ, op, g.recs); err != nil {
				return result, errors.WithMessagef(err, "%s of %s failed at page %d", w.pass, g.typ, pageNum)
			}
			if op == source.Upsert {
				result = result.With(g.typ, len(g.recs))
			}
			if w.onPage != nil {
				w.onPage(PageStats{Type: g.typ, Op: op, Records: len(g.recs), Duration: time.Since(start)})
			}
		}
		w.log.Debugf("%s: page %d applied (%d records)", w.pass, pageNum, len(page))
	}
}

// apply writes one group. Deletes skip schema inference: they only need the
// ids.
func (w *writer) apply(ctx context.Context, snk sink.Sink, t record.RecordType, op source.Op, recs []*record.Record) error {
	if op == source.Delete {
		return snk.DeleteBatch(ctx, t, recs)
	}
	pk := w.key(t)
	observed, err := infer.InferSchema(recs)
	if err != nil {
		return err
	}
	applied, err := snk.CreateOrModifyRecordType(ctx, t, observed, recs, pk)
	if err != nil {
		return err
	}
	return snk.UpsertBatch(ctx, t, applied, recs, pk)
}

type group struct {
	typ  record.RecordType
	recs []*record.Record
}

func groupByType(page []*record.Record) []group {
	var groups []group
	idx := make(map[record.RecordType]int)
	for _, r := range page {
		i, ok := idx[r.Type]
		if !ok {
			i = len(groups)
			idx[r.Type] = i
			groups = append(groups, group{typ: r.Type})
		}
		groups[i].recs = append(groups[i].recs, r)
	}
	return groups
}
