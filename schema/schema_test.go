// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package schema_test

import (
	"testing"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(name string, t datatype.DataType) schema.Column {
	return schema.Column{Name: name, Type: t}
}

func TestReconcile(t *testing.T) {
	existing := schema.Of(
		col("age", datatype.Number),
		col("born", datatype.Date),
		col("tags", datatype.EmptyArray),
		col("note", datatype.String),
	)
	observed := schema.Of(
		col("age", datatype.String),
		col("born", datatype.DateTime),
		col("tags", datatype.ArrayOfString),
		col("note", datatype.Number),
		col("new", datatype.Boolean),
	)

	d, err := schema.Reconcile(existing, observed)
	require.NoError(t, err)
	assert.True(t, d.ToAdd.Equal(schema.Of(col("new", datatype.Boolean))))
	assert.True(t, d.ToWiden.Equal(schema.Of(
		col("age", datatype.String),
		col("born", datatype.DateTime),
		col("tags", datatype.ArrayOfString),
	)))

	applied := schema.Apply(existing, d)
	assert.Equal(t, []string{"age", "born", "tags", "note", "new"}, applied.Names())
	typ, _ := applied.Get("note")
	assert.Equal(t, datatype.String, typ, "never narrowed")
}

func TestReconcileNeverNarrows(t *testing.T) {
	current := schema.Of(col("value", datatype.Number))
	pages := []datatype.DataType{datatype.Number, datatype.String, datatype.Number, datatype.Null, datatype.Number}
	for _, p := range pages {
		d, err := schema.Reconcile(current, schema.Of(col("value", p)))
		require.NoError(t, err)
		current = schema.Apply(current, d)
	}
	typ, _ := current.Get("value")
	assert.Equal(t, datatype.String, typ)

	// converges: a further identical page changes nothing
	d, err := schema.Reconcile(current, schema.Of(col("value", datatype.Number)))
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestReconcileConflict(t *testing.T) {
	_, err := schema.Reconcile(
		schema.Of(col("ids", datatype.ArrayOfNumber)),
		schema.Of(col("ids", datatype.Number)),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTypeConflict))
	assert.Contains(t, err.Error(), "ids")
}

func TestSchemaWithout(t *testing.T) {
	s := schema.Of(col("id", datatype.String), col("a", datatype.Number))
	assert.Equal(t, []string{"a"}, s.Without("id").Names())
	assert.Equal(t, []string{"id", "a"}, s.Names())
}
