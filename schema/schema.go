// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package schema computes the additive and widening changes needed to store
// newly observed columns alongside a record type's existing columns.
package schema

import (
	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
)

// Schema is an ordered set of column names and their types.
type Schema struct {
	names []string
	types map[string]datatype.DataType
}

// New returns an empty Schema.
func New() Schema {
	return Schema{types: make(map[string]datatype.DataType)}
}

// Of builds a Schema from name/type pairs in order.
func Of(cols ...Column) Schema {
	s := New()
	for _, c := range cols {
		s = s.With(c.Name, c.Type)
	}
	return s
}

// Column is a single entry of a Schema.
type Column struct {
	Name string
	Type datatype.DataType
}

// With returns a copy of s with name set to t. An existing name keeps its
// position.
func (s Schema) With(name string, t datatype.DataType) Schema {
	out := s.clone()
	if _, ok := out.types[name]; !ok {
		out.names = append(out.names, name)
	}
	out.types[name] = t
	return out
}

// Without returns a copy of s lacking name.
func (s Schema) Without(name string) Schema {
	if _, ok := s.types[name]; !ok {
		return s
	}
	out := New()
	for _, n := range s.names {
		if n != name {
			out = out.With(n, s.types[n])
		}
	}
	return out
}

func (s Schema) clone() Schema {
	out := Schema{
		names: append([]string(nil), s.names...),
		types: make(map[string]datatype.DataType, len(s.types)+1),
	}
	for k, v := range s.types {
		out.types[k] = v
	}
	return out
}

func (s Schema) Get(name string) (datatype.DataType, bool) {
	t, ok := s.types[name]
	return t, ok
}

func (s Schema) Len() int { return len(s.names) }

// Names returns the column names in order.
func (s Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Columns returns the columns in order.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.names))
	for i, n := range s.names {
		out[i] = Column{Name: n, Type: s.types[n]}
	}
	return out
}

// Equal reports whether s and o have the same columns in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.names) != len(o.names) {
		return false
	}
	for i, n := range s.names {
		if o.names[i] != n || o.types[n] != s.types[n] {
			return false
		}
	}
	return true
}

// Delta is the change needed to make a record type able to hold an observed
// schema. Neither part ever removes a column or narrows a type.
type Delta struct {
	ToAdd   Schema
	ToWiden Schema
}

// Empty reports whether the delta requires no change.
func (d Delta) Empty() bool {
	return d.ToAdd.Len() == 0 && d.ToWiden.Len() == 0
}

// Reconcile compares the columns a record type already has with those
// observed in a batch. Observed columns missing from existing are added;
// columns present in both are widened to the merge of both types when that
// merge differs from the existing type. A merge error is a type conflict.
func Reconcile(existing, observed Schema) (Delta, error) {
	d := Delta{ToAdd: New(), ToWiden: New()}
	for _, c := range observed.Columns() {
		cur, ok := existing.Get(c.Name)
		if !ok {
			d.ToAdd = d.ToAdd.With(c.Name, c.Type)
			continue
		}
		if cur == c.Type {
			continue
		}
		merged, err := datatype.Merge(cur, c.Type)
		if err != nil {
			return Delta{}, errors.NewErrTypeConflict(c.Name, cur.String(), c.Type.String(), nil)
		}
		if merged != cur {
			d.ToWiden = d.ToWiden.With(c.Name, merged)
		}
	}
	return d, nil
}

// Apply returns existing with the delta's additions appended and widenings
// applied.
func Apply(existing Schema, d Delta) Schema {
	out := existing
	for _, c := range d.ToWiden.Columns() {
		out = out.With(c.Name, c.Type)
	}
	for _, c := range d.ToAdd.Columns() {
		out = out.With(c.Name, c.Type)
	}
	return out
}
