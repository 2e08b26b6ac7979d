// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package record

import (
	"sort"
	"strings"
)

// RelationScheme prefixes the string form of a reference to another record.
const RelationScheme = "rec:/"

// Ref points at a record of the same collection.
type Ref struct {
	Type RecordType
	ID   string
}

// RelationString encodes a Ref as "rec:/<type>/<id>".
func RelationString(r Ref) string {
	return RelationScheme + string(r.Type) + "/" + r.ID
}

// ParseRelation decodes the output of RelationString. The type part must be a
// valid record type and the id must be non-empty.
func ParseRelation(s string) (Ref, bool) {
	if !strings.HasPrefix(s, RelationScheme) {
		return Ref{}, false
	}
	rest := s[len(RelationScheme):]
	i := strings.IndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return Ref{}, false
	}
	t, err := ParseRecordType(rest[:i])
	if err != nil {
		return Ref{}, false
	}
	return Ref{Type: t, ID: rest[i+1:]}, true
}

// Relation is a column whose values reference records of Target.
type Relation struct {
	Column string
	Target RecordType
}

// Relations holds the single-valued and array-valued relation columns of a
// record type, each sorted by column name.
type Relations struct {
	Scalar []Relation
	Array  []Relation
}

// Find returns the relation for column and whether it is array-valued.
func (r Relations) Find(column string) (rel Relation, isArray bool, ok bool) {
	for _, s := range r.Scalar {
		if s.Column == column {
			return s, false, true
		}
	}
	for _, a := range r.Array {
		if a.Column == column {
			return a, true, true
		}
	}
	return Relation{}, false, false
}

// Targets returns the distinct target record types, sorted.
func (r Relations) Targets() []RecordType {
	seen := make(map[RecordType]bool)
	var out []RecordType
	for _, rels := range [][]Relation{r.Scalar, r.Array} {
		for _, rel := range rels {
			if !seen[rel.Target] {
				seen[rel.Target] = true
				out = append(out, rel.Target)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortRelations orders rels by column name in place and returns it.
func SortRelations(rels []Relation) []Relation {
	sort.Slice(rels, func(i, j int) bool { return rels[i].Column < rels[j].Column })
	return rels
}
