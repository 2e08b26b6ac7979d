// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package importer

import (
	"context"

	"github.com/featurebasedb/recordimport/blob"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/notify"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/schema"
	"github.com/featurebasedb/recordimport/sink"
	"github.com/featurebasedb/recordimport/sink/handoff"
	"github.com/featurebasedb/recordimport/sink/store"
)

// SinkFactory builds the sink a job writes to.
type SinkFactory interface {
	NewSink(ctx context.Context, job Job) (sink.Sink, error)
}

// Factory selects the sink implementation by Kind.
type Factory struct {
	Kind sink.Kind

	// Store settings.
	Driver string
	DSN    string

	// Hand-off settings. Prefix overrides the strategy otherwise chosen
	// from the job's format.
	Blobs    blob.Store
	Notifier notify.Notifier
	Prefix   handoff.PrefixStrategy
	TempDir  string

	Logger logger.Logger
}

func (f *Factory) NewSink(ctx context.Context, job Job) (sink.Sink, error) {
	log := f.Logger
	if log == nil {
		log = logger.NopLogger
	}
	switch f.Kind {
	case sink.KindStore:
		return store.Open(f.Driver, f.DSN, job.CollectionID,
			store.OptLogger(log.WithPrefix("store: ")),
			store.OptSchemaChangeHook(func(t record.RecordType, d schema.Delta) {
				CounterSchemaChanges.Inc()
				log.Infof("schema of %s changed: added %v, widened %v", t, d.ToAdd.Names(), d.ToWiden.Names())
			}))
	case sink.KindHandoff:
		if f.Blobs == nil || f.Notifier == nil {
			return nil, errors.Errorf("hand-off sink needs a blob store and a notifier")
		}
		prefix := f.Prefix
		if prefix == "" {
			prefix = defaultPrefix(job.Format)
		}
		return handoff.New(
			handoff.Job{ID: job.ID, CollectionID: job.CollectionID, UserEmail: job.UserEmail},
			f.Blobs, f.Notifier,
			handoff.OptPrefix(prefix),
			handoff.OptTempDir(f.TempDir),
			handoff.OptLogger(log.WithPrefix("handoff: ")))
	}
	return nil, errors.Errorf("unknown sink '%s'", f.Kind)
}

func defaultPrefix(f Format) handoff.PrefixStrategy {
	switch f {
	case FormatPFB:
		return handoff.PrefixPFB
	case FormatSnapshot:
		return handoff.PrefixTDR
	}
	return handoff.PrefixNone
}
