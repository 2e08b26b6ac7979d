// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package importer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/featurebasedb/recordimport/batch"
	"github.com/featurebasedb/recordimport/blob"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/source"
	jsonsource "github.com/featurebasedb/recordimport/source/json"
	"github.com/featurebasedb/recordimport/source/pfb"
	"github.com/featurebasedb/recordimport/source/snapshot"
	"github.com/featurebasedb/recordimport/source/tsv"
	"golang.org/x/sync/errgroup"
)

// Pass names.
const (
	PassSnapshotIDs    = "snapshot-ids"
	PassBaseAttributes = "base-attributes"
	PassRelations      = "relations"
	PassRecords        = "records"
)

// pfb scans the file three times: once for the snapshots it was exported
// from, once for the rows and once to link the rows to each other.
func (r *run) pfb(ctx context.Context) error {
	rc, err := r.im.fetcher.Open(ctx, r.job.SourceURL)
	if err != nil {
		return errors.WithMessage(err, PassSnapshotIDs)
	}
	ids, err := pfb.SnapshotIDs(rc, r.im.pageSize)
	if err != nil {
		return errors.WithMessage(err, PassSnapshotIDs)
	}
	r.status.SnapshotIDs = ids
	r.log.Infof("file references %d snapshots: %v", len(ids), ids)
	r.status.Passes = append(r.status.Passes, PassSnapshotIDs)
	r.save()

	stamp := source.Provenance(r.status.Started, "")
	for _, mode := range []source.Mode{source.BaseAttributes, source.Relations} {
		name := passName(mode)
		rc, err := r.im.fetcher.Open(ctx, r.job.SourceURL)
		if err != nil {
			return errors.WithMessage(err, name)
		}
		src, err := pfb.NewSource(rc, mode)
		if err != nil {
			return errors.WithMessage(err, name)
		}
		var s source.Source = src
		if mode == source.BaseAttributes {
			s = source.Map(src, stamp)
		}
		if err := r.write(ctx, name, mode == source.BaseAttributes, s, batch.OptPrimaryKey(pfb.PrimaryKey)); err != nil {
			return err
		}
	}
	return nil
}

// snapshot imports every table of the manifest with base attributes before
// any table's relations, so relations may point at rows of tables listed
// later.
func (r *run) snapshot(ctx context.Context) error {
	doc, err := r.im.fetcher.ReadAll(ctx, r.job.SourceURL)
	if err != nil {
		return errors.WithMessage(err, "fetching manifest")
	}
	m, err := snapshot.ParseManifest(bytes.NewReader(doc))
	if err != nil {
		return err
	}
	tables, err := m.Tables()
	if err != nil {
		return err
	}
	if m.Snapshot.ID != "" {
		r.status.SnapshotIDs = []string{m.Snapshot.ID}
	}
	r.log.Infof("snapshot %s (%s): %d tables", m.Snapshot.Name, m.Snapshot.ID, len(tables))

	stamp := source.Provenance(r.status.Started, m.Snapshot.ID)
	for _, mode := range []source.Mode{source.BaseAttributes, source.Relations} {
		for _, t := range tables {
			if mode == source.Relations && len(t.Relations) == 0 {
				continue
			}
			files, err := r.fetchTable(ctx, t)
			if err != nil {
				return errors.WithMessagef(err, "%s of %s", passName(mode), t.Type)
			}
			for i, data := range files {
				if len(data) == 0 {
					r.log.Warnf("skipping empty file %s of table %s", t.Paths[i], t.Type)
					continue
				}
				name := fmt.Sprintf("%s %s", passName(mode), t.Type)
				if len(files) > 1 {
					name = fmt.Sprintf("%s file %d", name, i+1)
				}
				src, err := snapshot.NewSource(ctx, data, t, mode)
				if err != nil {
					return errors.WithMessage(err, name)
				}
				var s source.Source = src
				if mode == source.BaseAttributes {
					s = source.Map(src, stamp)
				}
				if err := r.write(ctx, name, mode == source.BaseAttributes, s, batch.OptPrimaryKey(t.PrimaryKey)); err != nil {
					return err
				}
				files[i] = nil
			}
		}
	}
	return nil
}

// fetchTable reads every file of t into memory, several at a time.
func (r *run) fetchTable(ctx context.Context, t snapshot.Table) ([][]byte, error) {
	files := make([][]byte, len(t.Paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.im.prefetch)
	for i, p := range t.Paths {
		i, loc := i, blob.Resolve(r.job.SourceURL, p)
		g.Go(func() error {
			b, err := r.im.fetcher.ReadAll(ctx, loc)
			if err != nil {
				return err
			}
			files[i] = b
			return nil
		})
	}
	return files, g.Wait()
}

func (r *run) json(ctx context.Context) error {
	rc, err := r.im.fetcher.Open(ctx, r.job.SourceURL)
	if err != nil {
		return errors.WithMessage(err, PassRecords)
	}
	opts := []batch.Option{}
	if r.job.PrimaryKey != "" {
		opts = append(opts, batch.OptPrimaryKey(r.job.PrimaryKey))
	}
	return r.write(ctx, PassRecords, true, jsonsource.NewSource(rc), opts...)
}

func (r *run) tsv(ctx context.Context) error {
	rc, err := r.im.fetcher.Open(ctx, r.job.SourceURL)
	if err != nil {
		return errors.WithMessage(err, PassRecords)
	}
	src, err := tsv.NewSource(rc, r.job.RecordType, source.Upsert, r.job.PrimaryKey)
	if err != nil {
		return errors.WithMessage(err, PassRecords)
	}
	return r.write(ctx, PassRecords, true, src, batch.OptPrimaryKey(src.PrimaryKey()))
}

func passName(m source.Mode) string {
	if m == source.Relations {
		return PassRelations
	}
	return PassBaseAttributes
}
