// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package infer_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/infer"
	"github.com/featurebasedb/recordimport/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rel(typ, id string) string {
	return record.RelationString(record.Ref{Type: record.RecordType(typ), ID: id})
}

func strs(ss ...string) record.Value {
	vs := make([]record.Value, len(ss))
	for i, s := range ss {
		vs[i] = record.String(s)
	}
	return record.Array(vs...)
}

func mustDecimal(t *testing.T, s string) record.Value {
	v, err := record.Decimal(s)
	require.NoError(t, err)
	return v
}

func TestClassifyText(t *testing.T) {
	tests := map[string]datatype.DataType{
		"":                         datatype.Null,
		"true":                     datatype.Boolean,
		"False":                    datatype.Boolean,
		"12345":                    datatype.Number,
		"-3.14":                    datatype.Number,
		"09":                       datatype.String,
		"12345A":                   datatype.String,
		"Hello":                    datatype.String,
		"2020-01-01":               datatype.Date,
		"2020-01-01T00:10:00":      datatype.DateTime,
		"2020-01-01T00:10:00.5Z":   datatype.DateTime,
		`{"list": ["a", "b"]}`:     datatype.JSON,
		"[1, 2, 3]":                datatype.ArrayOfNumber,
		`["a", "b"]`:               datatype.ArrayOfString,
		"[True, FALSE]":            datatype.ArrayOfBoolean,
		"[true, false]":            datatype.ArrayOfBoolean,
		"[Hello]":                  datatype.String,
		`["A", TRUE]`:              datatype.String,
		"[11, 99, -3.14, 09]":      datatype.String,
		"[a]":                      datatype.String,
		"[]":                       datatype.EmptyArray,
		`[{"a": 1}]`:               datatype.ArrayOfJSON,
		`[[1], [2, 3]]`:            datatype.ArrayOfJSON,
		rel("donor", "d1"):         datatype.Relation,
		"drs://host.example/v1_12": datatype.File,
		"https://acct.blob.core.windows.net/container/file.cram?sig=x": datatype.File,
		"https://example.com/file.cram":                                datatype.String,
	}
	for in, exp := range tests {
		assert.Equal(t, exp, infer.ClassifyText(in), "%q", in)
	}
	arr := fmt.Sprintf(`[%q, %q]`, rel("donor", "d1"), rel("donor", "d2"))
	assert.Equal(t, datatype.ArrayOfRelation, infer.ClassifyText(arr))
}

func TestClassifyIsDeterministic(t *testing.T) {
	for _, in := range []string{"", "true", "1.5", "[True]", `{"a":1}`, "x"} {
		assert.Equal(t, infer.ClassifyText(in), infer.ClassifyText(in))
	}
}

func TestClassifyValues(t *testing.T) {
	now := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	j, err := record.JSONOf(map[string]interface{}{"foo": "bar"})
	require.NoError(t, err)

	tests := []struct {
		v   record.Value
		exp datatype.DataType
	}{
		{record.Null(), datatype.Null},
		{record.String(""), datatype.String},
		{record.String("True"), datatype.Boolean},
		{record.String("47"), datatype.String},
		{record.Int(4747), datatype.Number},
		{record.Date(now), datatype.Date},
		{record.DateTime(now), datatype.DateTime},
		{j, datatype.JSON},
		{record.Array(), datatype.EmptyArray},
		{strs("red", "yellow"), datatype.ArrayOfString},
		{strs("11", "99"), datatype.ArrayOfString},
		{record.Array(record.Bool(true), record.String("false"), record.String("True")), datatype.ArrayOfBoolean},
		{record.Array(record.Int(11), record.Int(99), mustDecimal(t, "-3.14")), datatype.ArrayOfNumber},
		{record.Array(record.Int(11), mustDecimal(t, "-3.14"), record.String("09")), datatype.ArrayOfString},
		{record.Array(record.Null(), record.Null()), datatype.EmptyArray},
		{record.Array(record.Null(), record.String("foo"), record.Null()), datatype.ArrayOfString},
		{record.Array(j, record.Int(11), record.String("I'm a string")), datatype.ArrayOfJSON},
		{record.Array(record.Array(record.Int(1)), record.Array(record.Int(2))), datatype.ArrayOfJSON},
		{record.Array(record.String("2020-01-01"), record.String("2020-01-01T10:00:00")), datatype.ArrayOfDateTime},
		{strs("https://a.blob.core.windows.net/c/notebook.ipynb", "drs://jade.example.org/v1_95"), datatype.ArrayOfFile},
		{record.RefTo(record.Ref{Type: "donor", ID: "1"}), datatype.Relation},
		{record.Array(record.RefTo(record.Ref{Type: "donor", ID: "1"})), datatype.ArrayOfRelation},
	}
	for i, test := range tests {
		assert.Equal(t, test.exp, infer.Classify(test.v), "case %d: %v", i, test.v)
	}
}

func TestParseText(t *testing.T) {
	assert.True(t, infer.ParseText("").IsNull())
	assert.Equal(t, record.KindBool, infer.ParseText("TRUE").Kind())
	assert.Equal(t, record.KindInt, infer.ParseText("12").Kind())
	assert.Equal(t, record.KindDecimal, infer.ParseText("1.25").Kind())
	assert.Equal(t, record.KindString, infer.ParseText("09").Kind())
	assert.Equal(t, record.KindRef, infer.ParseText(rel("sample", "s1")).Kind())
	assert.Equal(t, record.KindJSON, infer.ParseText(`{"a": [1]}`).Kind())
	arr := infer.ParseText("[True, false]")
	require.Equal(t, record.KindArray, arr.Kind())
	assert.True(t, arr.Equal(record.Array(record.Bool(true), record.Bool(false))))
	assert.Equal(t, record.KindString, infer.ParseText("2020-01-01").Kind())
}

func TestInferSchema(t *testing.T) {
	recs := []*record.Record{
		record.New("1", "thing").
			Set("int_val", record.Int(4747)).
			Set("number_or_string", record.Int(47)).
			Set("date_val", record.String("2001-11-03")).
			Set("rel", record.Null()),
		record.New("2", "thing").
			Set("number_or_string", record.String("forty seven")).
			Set("int_val", mustDecimal(t, "1.5")).
			Set("rel", record.String(rel("thing", "1"))).
			Set("tags", record.Array()),
		record.New("3", "thing").
			Set("tags", strs("a")),
	}
	s, err := infer.InferSchema(recs)
	require.NoError(t, err)
	assert.Equal(t, []string{"int_val", "number_or_string", "date_val", "rel", "tags"}, s.Names())
	for name, exp := range map[string]datatype.DataType{
		"int_val":          datatype.Number,
		"number_or_string": datatype.String,
		"date_val":         datatype.Date,
		"rel":              datatype.Relation,
		"tags":             datatype.ArrayOfString,
	} {
		got, _ := s.Get(name)
		assert.Equal(t, exp, got, name)
	}

	rels, err := infer.FindRelations(recs, s)
	require.NoError(t, err)
	require.Len(t, rels.Scalar, 1)
	assert.Equal(t, record.Relation{Column: "rel", Target: "thing"}, rels.Scalar[0])
	assert.Empty(t, rels.Array)
}

func TestInferSchemaNullArrayMergesNeutrally(t *testing.T) {
	recs := []*record.Record{
		record.New("1", "thing").Set("sizes", record.Array(record.Null(), record.Null())),
		record.New("2", "thing").Set("sizes", record.Array(record.Int(1), record.Int(2))),
	}
	s, err := infer.InferSchema(recs)
	require.NoError(t, err)
	got, _ := s.Get("sizes")
	assert.Equal(t, datatype.ArrayOfNumber, got)
}

func TestInferSchemaConflict(t *testing.T) {
	recs := []*record.Record{
		record.New("a", "t").Set("v", record.Int(1)),
		record.New("b", "t").Set("v", record.Array(record.Int(1))),
		record.New("c", "t").Set("v", record.Array(record.Int(2))),
	}
	_, err := infer.InferSchema(recs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTypeConflict))
	assert.Contains(t, err.Error(), "'v'")
	assert.Contains(t, err.Error(), "b, c")
}

func TestFindRelationsArrays(t *testing.T) {
	recs := []*record.Record{
		record.New("1", "thing").Set("rel", record.Null()),
		record.New("2", "thing").Set("rel", record.Array(record.RefTo(record.Ref{Type: "thing", ID: "1"}))),
	}
	s, err := infer.InferSchema(recs)
	require.NoError(t, err)
	rels, err := infer.FindRelations(recs, s)
	require.NoError(t, err)
	require.Len(t, rels.Array, 1)
	assert.Equal(t, record.RecordType("thing"), rels.Array[0].Target)

	mixed := []*record.Record{
		record.New("1", "x").Set("rel", record.RefTo(record.Ref{Type: "a", ID: "1"})),
		record.New("2", "x").Set("rel", record.RefTo(record.Ref{Type: "b", ID: "1"})),
	}
	s, err = infer.InferSchema(mixed)
	require.NoError(t, err)
	_, err = infer.FindRelations(mixed, s)
	assert.True(t, errors.Is(err, errors.ErrInvalidAttribute))
}
