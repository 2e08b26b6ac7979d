// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package snapshot_test

import (
	"context"
	"strings"
	"testing"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/source"
	"github.com/featurebasedb/recordimport/source/snapshot"
	"github.com/featurebasedb/recordimport/source/snapshot/snapshottest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `{
  "snapshot": {
    "id": "0f8b2c3e-aaaa-bbbb-cccc-1234567890ab",
    "name": "example",
    "tables": [
      {"name": "donor", "primaryKey": ["donor_id"]},
      {"name": "sample", "primaryKey": ["sample_id"]},
      {"name": "file", "primaryKey": []}
    ],
    "relationships": [
      {"name": "sample_donor", "from": {"table": "sample", "column": "donor"}, "to": {"table": "donor", "column": "donor_id"}},
      {"name": "sample_files", "from": {"table": "sample", "column": "files"}, "to": {"table": "file", "column": "datarepo_row_id"}},
      {"name": "bad_target", "from": {"table": "sample", "column": "other"}, "to": {"table": "donor", "column": "name"}}
    ]
  },
  "format": {"parquet": {"location": {"tables": [
    {"name": "donor", "paths": ["gs://bucket/donor/1.parquet"]},
    {"name": "sample", "paths": ["gs://bucket/sample/1.parquet", "gs://bucket/sample/2.parquet"]}
  ]}}}
}`

func TestManifestTables(t *testing.T) {
	m, err := snapshot.ParseManifest(strings.NewReader(manifest))
	require.NoError(t, err)
	assert.Equal(t, "example", m.Snapshot.Name)
	assert.Equal(t, map[string]string{
		"donor": "donor_id", "sample": "sample_id", "file": snapshot.DefaultPrimaryKey,
	}, m.PrimaryKeys())

	tables, err := m.Tables()
	require.NoError(t, err)
	exp := []snapshot.Table{
		{Type: "donor", PrimaryKey: "donor_id", Paths: []string{"gs://bucket/donor/1.parquet"}},
		{Type: "sample", PrimaryKey: "sample_id",
			Paths: []string{"gs://bucket/sample/1.parquet", "gs://bucket/sample/2.parquet"},
			Relations: []record.Relation{
				{Column: "donor", Target: "donor"},
				{Column: "files", Target: "file"},
			}},
	}
	if diff := cmp.Diff(exp, tables); diff != "" {
		t.Fatalf("tables mismatch (-want +got):\n%s", diff)
	}
}

func TestManifestUnknownTable(t *testing.T) {
	m, err := snapshot.ParseManifest(strings.NewReader(`{"format": {"parquet": {"location": {"tables": [{"name": "x"}]}}}}`))
	require.NoError(t, err)
	_, err = m.Tables()
	assert.True(t, errors.Is(err, errors.ErrParse))

	_, err = snapshot.ParseManifest(strings.NewReader(`{`))
	assert.True(t, errors.Is(err, errors.ErrParse))
}

var sampleTable = snapshot.Table{
	Type:       "sample",
	PrimaryKey: "sample_id",
	Relations: []record.Relation{
		{Column: "donor", Target: "donor"},
		{Column: "files", Target: "file"},
	},
}

func sampleFile(t *testing.T) []byte {
	return snapshottest.Parquet(t,
		snapshottest.Column{Name: "sample_id", Values: []string{"s1", "s2", "s3"}},
		snapshottest.Column{Name: "depth", Values: []int64{30, 31, 32}},
		snapshottest.Column{Name: "ok", Values: []bool{true, false, true}},
		snapshottest.Column{Name: "donor", Values: []*string{snapshottest.Str("d1"), nil, snapshottest.Str("d2")}},
		snapshottest.Column{Name: "files", Values: [][]string{{"f1", "f2"}, {}, {"f3"}}},
	)
}

func TestSourceBaseAttributes(t *testing.T) {
	src, err := snapshot.NewSource(context.Background(), sampleFile(t), sampleTable, source.BaseAttributes)
	require.NoError(t, err)
	defer src.Close()

	page, op, err := src.ReadPage(2)
	require.NoError(t, err)
	assert.Equal(t, source.Upsert, op)
	require.Len(t, page, 2)
	assert.Equal(t, "s1", page[0].ID)
	assert.Equal(t, record.RecordType("sample"), page[0].Type)
	assert.Equal(t, []string{"sample_id", "depth", "ok"}, page[0].Attributes.Names())
	depth, _ := page[1].Attributes.Get("depth")
	assert.Equal(t, record.Int(31), depth)

	page, _, err = src.ReadPage(2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "s3", page[0].ID)

	page, _, err = src.ReadPage(2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSourceRelations(t *testing.T) {
	src, err := snapshot.NewSource(context.Background(), sampleFile(t), sampleTable, source.Relations)
	require.NoError(t, err)
	defer src.Close()

	page, _, err := src.ReadPage(10)
	require.NoError(t, err)
	require.Len(t, page, 3)

	assert.Equal(t, []string{"donor", "files"}, page[0].Attributes.Names())
	donor, _ := page[0].Attributes.Get("donor")
	assert.Equal(t, record.RefTo(record.Ref{Type: "donor", ID: "d1"}), donor)
	files, _ := page[0].Attributes.Get("files")
	assert.Equal(t, record.Array(
		record.RefTo(record.Ref{Type: "file", ID: "f1"}),
		record.RefTo(record.Ref{Type: "file", ID: "f2"}),
	), files)

	assert.False(t, page[1].Attributes.Has("donor"), "null relations are skipped")
	empty, _ := page[1].Attributes.Get("files")
	assert.Equal(t, 0, len(empty.Elems()))
}

func TestSourceMissingPrimaryKey(t *testing.T) {
	b := snapshottest.Parquet(t, snapshottest.Column{Name: "depth", Values: []int64{1}})
	_, err := snapshot.NewSource(context.Background(), b, sampleTable, source.BaseAttributes)
	assert.True(t, errors.Is(err, errors.ErrInvalidAttribute))
}

func TestSourceNotParquet(t *testing.T) {
	_, err := snapshot.NewSource(context.Background(), []byte("nope"), sampleTable, source.BaseAttributes)
	assert.True(t, errors.Is(err, errors.ErrParse))
}
