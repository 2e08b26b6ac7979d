// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package record_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordType(t *testing.T) {
	for _, good := range []string{"sample", "aliquot-2", "Sequencing Run", "a_b"} {
		_, err := record.ParseRecordType(good)
		assert.NoError(t, err, good)
	}
	for _, bad := range []string{"", "sys_internal", "SYS_x", "bad/name", "semi;colon", string(make([]byte, 64))} {
		_, err := record.ParseRecordType(bad)
		assert.True(t, errors.Is(err, errors.ErrInvalidRecordType), bad)
	}
}

func TestValidateAttributeName(t *testing.T) {
	assert.NoError(t, record.ValidateAttributeName("sys_name", "sys_name"))
	assert.NoError(t, record.ValidateAttributeName("import:timestamp", "sys_name"))
	assert.Error(t, record.ValidateAttributeName("sys_other", "sys_name"))
	assert.Error(t, record.ValidateAttributeName("", "id"))
}

func TestAttributesOrder(t *testing.T) {
	a := record.NewAttributes().
		Set("b", record.Int(1)).
		Set("a", record.String("x")).
		Set("c", record.Null())
	assert.Equal(t, []string{"b", "a", "c"}, a.Names())

	o := record.NewAttributes().
		Set("d", record.Bool(true)).
		Set("a", record.String("y"))
	m := a.Merge(o)
	assert.Equal(t, []string{"b", "a", "c", "d"}, m.Names(), "first-seen position wins")
	v, _ := m.Get("a")
	assert.Equal(t, "y", v.StringValue())
	// a itself is untouched
	v, _ = a.Get("a")
	assert.Equal(t, "x", v.StringValue())

	m.Delete("a")
	assert.Equal(t, []string{"b", "c", "d"}, m.Names())
	assert.Equal(t, 3, m.Len())

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"c":null,"d":true}`, string(b))
}

func TestValues(t *testing.T) {
	d, err := record.Decimal("3.14")
	require.NoError(t, err)
	assert.Equal(t, record.KindDecimal, d.Kind())
	assert.Equal(t, "3.14", d.Text())

	i, err := record.Decimal("42")
	require.NoError(t, err)
	assert.Equal(t, record.KindInt, i.Kind())

	_, err = record.Decimal("09")
	assert.Error(t, err)
	_, err = record.Decimal("abc")
	assert.Error(t, err)

	assert.True(t, record.Float(nan()).IsNull())

	day := record.Date(time.Date(2020, 1, 2, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, "2020-01-02", day.Text())

	j, err := record.JSON([]byte(`{ "list": ["a", "b"] }`))
	require.NoError(t, err)
	assert.Equal(t, `{"list":["a","b"]}`, j.Text())
	_, err = record.JSON([]byte(`{`))
	assert.Error(t, err)

	ref := record.RefTo(record.Ref{Type: "donor", ID: "d1"})
	arr := record.Array(record.Int(1), record.String("two"), ref, record.Null())
	b, err := json.Marshal(arr)
	require.NoError(t, err)
	assert.Equal(t, `[1,"two","rec:/donor/d1",null]`, string(b))

	assert.True(t, arr.Equal(record.Array(record.Int(1), record.String("two"), ref, record.Null())))
	assert.False(t, arr.Equal(record.Array(record.Int(1))))
	assert.Empty(t, cmp.Diff(arr, record.Array(record.Int(1), record.String("two"), ref, record.Null())))
}

func TestRelationString(t *testing.T) {
	ref := record.Ref{Type: "sample", ID: "abc/123"}
	s := record.RelationString(ref)
	assert.Equal(t, "rec:/sample/abc/123", s)

	back, ok := record.ParseRelation(s)
	require.True(t, ok)
	assert.Equal(t, ref, back)

	for _, bad := range []string{"sample/abc", "rec:/sample", "rec:/sample/", "rec://abc", "rec:/sys_x/1"} {
		_, ok := record.ParseRelation(bad)
		assert.False(t, ok, bad)
	}
}

func TestBatchWriteResult(t *testing.T) {
	a := record.NewBatchWriteResult().With("sample", 3)
	b := record.NewBatchWriteResult().With("sample", 2).With("donor", 5)

	m := a.Merge(b)
	assert.Equal(t, 5, m.Count("sample"))
	assert.Equal(t, 5, m.Count("donor"))
	assert.Equal(t, 10, m.Total())
	assert.Equal(t, []record.RecordType{"donor", "sample"}, m.Types())

	// inputs are unchanged
	assert.Equal(t, 3, a.Count("sample"))
	assert.Equal(t, 0, a.Count("donor"))

	assert.True(t, a.Merge(b).Equal(b.Merge(a)))
	c := record.NewBatchWriteResult().With("x", 1)
	assert.True(t, a.Merge(b).Merge(c).Equal(a.Merge(b.Merge(c))))

	zero := record.NewBatchWriteResult().With("empty", 0)
	assert.Equal(t, []record.RecordType{"empty"}, zero.Types())

	assert.Panics(t, func() { record.NewBatchWriteResult().With("x", -1) })

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"donor":5,"sample":5}`, string(out))
	assert.True(t, record.ResultFromCounts(m.Counts()).Equal(m))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
