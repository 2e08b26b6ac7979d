// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/infer"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/schema"
	"github.com/featurebasedb/recordimport/sink/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "records.db") + "?_pragma=foreign_keys(1)"
	s, err := store.Open(store.SQLite, dsn, "c0ffee", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

// write applies the schema of recs and upserts them.
func write(t *testing.T, s *store.Store, typ record.RecordType, pk string, recs ...*record.Record) error {
	t.Helper()
	ctx := context.Background()
	observed, err := infer.InferSchema(recs)
	require.NoError(t, err)
	applied, err := s.CreateOrModifyRecordType(ctx, typ, observed, recs, pk)
	if err != nil {
		return err
	}
	return s.UpsertBatch(ctx, typ, applied, recs, pk)
}

func dec(t *testing.T, s string) record.Value {
	v, err := record.Decimal(s)
	require.NoError(t, err)
	return v
}

func TestStoreRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	when := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	doc, err := record.JSON([]byte(`{"k": [1, 2]}`))
	require.NoError(t, err)

	rec := record.New("s1", "sample").
		Set("sample_id", record.String("s1")).
		Set("depth", record.Int(30)).
		Set("ratio", dec(t, "0.25")).
		Set("ok", record.Bool(true)).
		Set("collected", record.Date(when)).
		Set("seen", record.DateTime(when)).
		Set("name", record.String("first")).
		Set("doc", doc).
		Set("tags", record.Array(record.String("a"), record.String("b"))).
		Set("sizes", record.Array(record.Int(1), dec(t, "2.5"))).
		Set("empty", record.Array()).
		Set("gone", record.Null())
	require.NoError(t, write(t, s, "sample", "sample_id", rec))

	sch, pk, err := s.Schema(ctx, "sample")
	require.NoError(t, err)
	assert.Equal(t, "sample_id", pk)
	assert.Equal(t, []string{"depth", "ratio", "ok", "collected", "seen", "name", "doc", "tags", "sizes", "empty", "gone"}, sch.Names())
	typ, _ := sch.Get("sizes")
	assert.Equal(t, datatype.ArrayOfNumber, typ)

	got, err := s.Get(ctx, "sample", "s1")
	require.NoError(t, err)
	get := func(name string) record.Value {
		v, ok := got.Attributes.Get(name)
		require.True(t, ok, name)
		return v
	}
	assert.Equal(t, record.Int(30), get("depth"))
	assert.Equal(t, "0.25", get("ratio").NumberText())
	assert.Equal(t, record.Bool(true), get("ok"))
	assert.Equal(t, record.Date(when), get("collected"))
	assert.True(t, when.Equal(get("seen").AsTime()))
	assert.Equal(t, record.String("first"), get("name"))
	assert.Equal(t, `{"k":[1,2]}`, get("doc").JSONText())
	assert.Equal(t, record.Array(record.String("a"), record.String("b")), get("tags"))
	assert.Equal(t, "2.5", get("sizes").Elems()[1].NumberText())
	assert.Len(t, get("empty").Elems(), 0)
	assert.False(t, got.Attributes.Has("gone"))

	n, err := s.Count(ctx, "sample")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, "sample", "nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoreUpsertOverlaysColumns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, write(t, s, "sample", "id",
		record.New("s1", "sample").Set("a", record.Int(1)).Set("b", record.String("x"))))
	require.NoError(t, write(t, s, "sample", "id",
		record.New("s1", "sample").Set("b", record.String("y")),
		record.New("s2", "sample").Set("a", record.Int(2))))

	got, err := s.Get(ctx, "sample", "s1")
	require.NoError(t, err)
	a, _ := got.Attributes.Get("a")
	b, _ := got.Attributes.Get("b")
	assert.Equal(t, record.Int(1), a, "untouched column keeps its value")
	assert.Equal(t, record.String("y"), b)

	n, err := s.Count(ctx, "sample")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStoreWidensAndNeverNarrows(t *testing.T) {
	var deltas []schema.Delta
	s := openStore(t, store.OptSchemaChangeHook(func(_ record.RecordType, d schema.Delta) { deltas = append(deltas, d) }))
	ctx := context.Background()

	require.NoError(t, write(t, s, "sample", "id", record.New("s1", "sample").Set("v", record.Int(1))))
	require.NoError(t, write(t, s, "sample", "id", record.New("s2", "sample").Set("v", record.String("abc"))))
	require.NoError(t, write(t, s, "sample", "id", record.New("s3", "sample").Set("v", record.Int(3))))

	sch, _, err := s.Schema(ctx, "sample")
	require.NoError(t, err)
	typ, _ := sch.Get("v")
	assert.Equal(t, datatype.String, typ)
	require.Len(t, deltas, 2)
	assert.Equal(t, []string{"v"}, deltas[1].ToWiden.Names())

	got, err := s.Get(ctx, "sample", "s1")
	require.NoError(t, err)
	v, _ := got.Attributes.Get("v")
	assert.Equal(t, record.String("1"), v)
}

func TestStoreTypeConflict(t *testing.T) {
	s := openStore(t)
	require.NoError(t, write(t, s, "sample", "id", record.New("s1", "sample").Set("v", record.Int(1))))
	err := write(t, s, "sample", "id", record.New("s2", "sample").Set("v", record.Array(record.Int(1))))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTypeConflict))
	assert.Contains(t, err.Error(), "s2")
}

func TestStoreRelations(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	ref := func(id string) record.Value { return record.RefTo(record.Ref{Type: "donor", ID: id}) }

	err := write(t, s, "sample", "id", record.New("s0", "sample").Set("donor", ref("d1")))
	assert.True(t, errors.Is(err, errors.ErrUnknownRelationTarget), "target type does not exist yet: %v", err)

	require.NoError(t, write(t, s, "donor", "id", record.New("d1", "donor").Set("age", record.Int(40))))
	require.NoError(t, write(t, s, "sample", "id",
		record.New("s1", "sample").Set("donor", ref("d1")).Set("all", record.Array(ref("d1")))))

	got, err := s.Get(ctx, "sample", "s1")
	require.NoError(t, err)
	v, _ := got.Attributes.Get("donor")
	assert.Equal(t, ref("d1"), v)
	all, _ := got.Attributes.Get("all")
	assert.Equal(t, record.Array(ref("d1")), all)

	err = write(t, s, "sample", "id", record.New("s2", "sample").Set("donor", ref("d9")))
	assert.True(t, errors.Is(err, errors.ErrUnknownRelationTarget), "target row does not exist: %v", err)
	_, err = s.Get(ctx, "sample", "s2")
	assert.True(t, errors.Is(err, errors.ErrNotFound), "failed batch is rolled back")

	err = write(t, s, "sample", "id", record.New("s3", "sample").Set("donor", record.String("plain")))
	assert.True(t, errors.Is(err, errors.ErrInvalidSchemaChange), "got %v", err)

	err = s.DeleteBatch(ctx, "donor", []*record.Record{record.New("d1", "donor")})
	assert.True(t, errors.Is(err, errors.ErrRelationExists), "got %v", err)
	n, err := s.Count(ctx, "donor")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreForwardReferenceInBatch(t *testing.T) {
	s := openStore(t)
	ref := record.RefTo(record.Ref{Type: "node", ID: "n2"})
	require.NoError(t, write(t, s, "node", "id", record.New("n0", "node").Set("label", record.String("root"))))
	require.NoError(t, write(t, s, "node", "id",
		record.New("n1", "node").Set("next", ref),
		record.New("n2", "node").Set("label", record.String("later"))))
}

func TestStoreDelete(t *testing.T) {
	log := logger.NewBufferLogger()
	s := openStore(t, store.OptLogger(log))
	ctx := context.Background()
	require.NoError(t, write(t, s, "donor", "id",
		record.New("d1", "donor").Set("age", record.Int(1)),
		record.New("d2", "donor").Set("age", record.Int(2))))

	require.NoError(t, s.DeleteBatch(ctx, "donor", []*record.Record{record.New("d1", "donor"), record.New("d7", "donor")}))
	n, err := s.Count(ctx, "donor")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, log.String(), "d7")

	err = s.DeleteBatch(ctx, "nothing", []*record.Record{record.New("x", "nothing")})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStorePrimaryKeyMismatch(t *testing.T) {
	s := openStore(t)
	require.NoError(t, write(t, s, "donor", "id", record.New("d1", "donor").Set("age", record.Int(1))))
	err := write(t, s, "donor", "donor_id", record.New("d2", "donor").Set("age", record.Int(1)))
	assert.True(t, errors.Is(err, errors.ErrPrimaryKeyMismatch))
}

func TestStoreRejectsReservedAttribute(t *testing.T) {
	s := openStore(t)
	err := write(t, s, "donor", "id", record.New("d1", "donor").Set("sys_age", record.Int(1)))
	assert.True(t, errors.Is(err, errors.ErrInvalidAttribute))
}

func TestStoreBatchFailsWithSample(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	recs := []*record.Record{record.New("d1", "donor").Set("age", record.Int(1))}
	require.NoError(t, write(t, s, "donor", "id", recs...))

	sch, _, err := s.Schema(ctx, "donor")
	require.NoError(t, err)
	batch := []*record.Record{
		record.New("d2", "donor").Set("age", record.Int(2)),
		record.New("d3", "donor").Set("age", record.String("old")),
		record.New("d4", "donor").Set("age", record.String("older")),
	}
	err = s.UpsertBatch(ctx, "donor", sch, batch, "id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBatchWrite))
	assert.Contains(t, err.Error(), "2 offending rows, sample: d3, d4")

	n, err := s.Count(ctx, "donor")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "no row of a failed batch is written")
}

func TestStoreTypes(t *testing.T) {
	s := openStore(t)
	require.NoError(t, write(t, s, "b", "id", record.New("1", "b").Set("x", record.Int(1))))
	require.NoError(t, write(t, s, "a", "id", record.New("1", "a").Set("x", record.Int(1))))
	types, err := s.Types(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []record.RecordType{"a", "b"}, types)
}

func TestStoreArrayRelations(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	ref := func(id string) record.Value { return record.RefTo(record.Ref{Type: "donor", ID: id}) }
	donor := func(id string) *record.Record { return record.New(id, "donor") }
	count := func(typ record.RecordType) int {
		n, err := s.Count(ctx, typ)
		require.NoError(t, err)
		return n
	}

	require.NoError(t, write(t, s, "donor", "id",
		donor("d1").Set("age", record.Int(1)),
		donor("d2").Set("age", record.Int(2))))
	require.NoError(t, write(t, s, "cohort", "id",
		record.New("c1", "cohort").Set("members", record.Array(ref("d1"), record.Null(), ref("d2")))))

	err := s.DeleteBatch(ctx, "donor", []*record.Record{donor("d1")})
	assert.True(t, errors.Is(err, errors.ErrRelationExists), "got %v", err)
	assert.Equal(t, 2, count("donor"))

	err = write(t, s, "cohort", "id", record.New("c2", "cohort").Set("members", record.Array(ref("d9"))))
	assert.True(t, errors.Is(err, errors.ErrUnknownRelationTarget), "got %v", err)
	_, err = s.Get(ctx, "cohort", "c2")
	assert.True(t, errors.Is(err, errors.ErrNotFound), "failed batch is rolled back")

	// rewriting the array drops the references it no longer holds
	require.NoError(t, write(t, s, "cohort", "id", record.New("c1", "cohort").Set("members", record.Array(ref("d2")))))
	require.NoError(t, s.DeleteBatch(ctx, "donor", []*record.Record{donor("d1")}))

	err = s.DeleteBatch(ctx, "donor", []*record.Record{donor("d2")})
	assert.True(t, errors.Is(err, errors.ErrRelationExists), "got %v", err)
	require.NoError(t, s.DeleteBatch(ctx, "cohort", []*record.Record{record.New("c1", "cohort")}))
	require.NoError(t, s.DeleteBatch(ctx, "donor", []*record.Record{donor("d2")}))
	assert.Equal(t, 0, count("donor"))
}

func TestStoreRelationAfterNullColumn(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	ref := func(id string) record.Value { return record.RefTo(record.Ref{Type: "sample", ID: id}) }

	require.NoError(t, write(t, s, "sample", "id", record.New("s1", "sample").Set("depth", record.Int(1))))
	require.NoError(t, write(t, s, "aliquot", "id", record.New("a1", "aliquot").Set("parent", record.Null())))

	err := write(t, s, "aliquot", "id", record.New("a2", "aliquot").Set("parent", ref("missing")))
	assert.True(t, errors.Is(err, errors.ErrUnknownRelationTarget), "got %v", err)

	require.NoError(t, write(t, s, "aliquot", "id", record.New("a3", "aliquot").Set("parent", ref("s1"))))
	sch, _, err := s.Schema(ctx, "aliquot")
	require.NoError(t, err)
	typ, _ := sch.Get("parent")
	assert.Equal(t, datatype.Relation, typ)

	got, err := s.Get(ctx, "aliquot", "a3")
	require.NoError(t, err)
	v, _ := got.Attributes.Get("parent")
	assert.Equal(t, ref("s1"), v)

	err = s.DeleteBatch(ctx, "sample", []*record.Record{record.New("s1", "sample")})
	assert.True(t, errors.Is(err, errors.ErrRelationExists), "got %v", err)
}

func TestStoreUpsertLastRecordWins(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, write(t, s, "sample", "id",
		record.New("a", "sample").Set("x", record.Int(1)).Set("y", record.Int(1)),
		record.New("a", "sample").Set("x", record.Int(2)),
		record.New("a", "sample").Set("x", record.Int(3)).Set("y", record.Int(3))))

	got, err := s.Get(ctx, "sample", "a")
	require.NoError(t, err)
	x, _ := got.Attributes.Get("x")
	y, _ := got.Attributes.Get("y")
	assert.Equal(t, record.Int(3), x)
	assert.Equal(t, record.Int(3), y)
}
