// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package infer classifies attribute values into data types and derives the
// schema and relation columns of a batch of records.
package infer

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/schema"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Classify returns the data type of a single value.
func Classify(v record.Value) datatype.DataType {
	switch v.Kind() {
	case record.KindNull:
		return datatype.Null
	case record.KindBool:
		return datatype.Boolean
	case record.KindInt, record.KindDecimal:
		return datatype.Number
	case record.KindDate:
		return datatype.Date
	case record.KindDateTime:
		return datatype.DateTime
	case record.KindJSON:
		return datatype.JSON
	case record.KindRef:
		return datatype.Relation
	case record.KindArray:
		return classifyArray(v.Elems())
	}
	return classifyString(v.StringValue())
}

// ClassifyText returns the data type of a raw text cell.
func ClassifyText(s string) datatype.DataType {
	return Classify(ParseText(s))
}

func classifyString(s string) datatype.DataType {
	if _, ok := record.ParseRelation(s); ok {
		return datatype.Relation
	}
	if IsDate(s) {
		return datatype.Date
	}
	if IsDateTime(s) {
		return datatype.DateTime
	}
	if _, ok := parseBool(s); ok {
		return datatype.Boolean
	}
	if IsFile(s) {
		return datatype.File
	}
	if isJSONObject(s) {
		return datatype.JSON
	}
	if arr, ok := ParseArrayText(s); ok {
		return Classify(arr)
	}
	return datatype.String
}

func classifyArray(elems []record.Value) datatype.DataType {
	if len(elems) == 0 {
		return datatype.EmptyArray
	}
	elemType := datatype.Null
	for _, e := range elems {
		t := Classify(e)
		if t == datatype.JSON || t.IsArray() {
			return datatype.ArrayOfJSON
		}
		// scalars never fail to merge
		elemType, _ = datatype.Merge(elemType, t)
	}
	if elemType == datatype.Null {
		return datatype.EmptyArray
	}
	return datatype.ArrayOf(elemType)
}

// ParseText converts a raw text cell into a typed value: empty text is null,
// then booleans, integers and decimals are recognised, then relation strings,
// JSON objects and bracketed arrays. Everything else stays a string.
func ParseText(s string) record.Value {
	if s == "" {
		return record.Null()
	}
	if b, ok := parseBool(s); ok {
		return record.Bool(b)
	}
	if v, err := record.Decimal(s); err == nil {
		return v
	}
	if ref, ok := record.ParseRelation(s); ok {
		return record.RefTo(ref)
	}
	if isJSONObject(s) {
		if v, err := record.JSON([]byte(s)); err == nil {
			return v
		}
	}
	if arr, ok := ParseArrayText(s); ok {
		return arr
	}
	return record.String(s)
}

// ParseArrayText parses bracketed text as a JSON array. If the verbatim text
// is not a valid array, the lower-cased text is tried and accepted only when
// every element is a boolean, so "[True, FALSE]" parses but "[Hello]" does not.
func ParseArrayText(s string) (record.Value, bool) {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "[") || !strings.HasSuffix(t, "]") {
		return record.Value{}, false
	}
	if v, ok := decodeArray(t); ok {
		return v, true
	}
	lower := strings.ToLower(t)
	if lower == t {
		return record.Value{}, false
	}
	v, ok := decodeArray(lower)
	if !ok {
		return record.Value{}, false
	}
	for _, e := range v.Elems() {
		if e.Kind() != record.KindBool {
			return record.Value{}, false
		}
	}
	return v, true
}

func decodeArray(s string) (record.Value, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var x []interface{}
	if err := dec.Decode(&x); err != nil {
		return record.Value{}, false
	}
	if dec.More() {
		return record.Value{}, false
	}
	v, err := record.FromJSON(x)
	if err != nil {
		return record.Value{}, false
	}
	return v, true
}

func parseBool(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return false, false
}

func isJSONObject(s string) bool {
	t := bytes.TrimSpace([]byte(s))
	return len(t) > 1 && t[0] == '{' && json.Valid(t)
}

// IsDate reports whether s is an ISO-8601 calendar date.
func IsDate(s string) bool {
	_, err := time.Parse(record.DateLayout, s)
	return err == nil
}

// ParseDateTime parses the datetime forms recognised by the inferer. Times
// without a zone are UTC.
func ParseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsDateTime reports whether s is an ISO-8601 date and time.
func IsDateTime(s string) bool {
	_, ok := ParseDateTime(s)
	return ok
}

var fileHostSuffixes = []string{
	".blob.core.windows.net",
	"storage.googleapis.com",
	".s3.amazonaws.com",
	"s3.amazonaws.com",
}

// IsFile reports whether s is a URL to a file in object storage or a DRS
// identifier.
func IsFile(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "drs":
		return true
	case "s3", "gs":
		return len(strings.Trim(u.Path, "/")) > 0
	case "https":
		if len(strings.Trim(u.Path, "/")) == 0 {
			return false
		}
		host := strings.ToLower(u.Hostname())
		for _, suffix := range fileHostSuffixes {
			if strings.HasSuffix(host, suffix) {
				return true
			}
		}
	}
	return false
}

// InferSchema classifies every attribute of every record and merges the
// types per column. Columns are ordered by first appearance. Columns mixing
// arrays and scalars fail with a type conflict naming a sample of the
// offending records.
func InferSchema(recs []*record.Record) (schema.Schema, error) {
	s := schema.New()
	for _, r := range recs {
		var conflict error
		r.Attributes.Range(func(name string, v record.Value) bool {
			t := Classify(v)
			cur, ok := s.Get(name)
			if !ok {
				s = s.With(name, t)
				return true
			}
			merged, err := datatype.Merge(cur, t)
			if err != nil {
				conflict = errors.NewErrTypeConflict(name, cur.String(), t.String(), conflictingIDs(recs, name, t.IsArray()))
				return false
			}
			if merged != cur {
				s = s.With(name, merged)
			}
			return true
		})
		if conflict != nil {
			return schema.Schema{}, conflict
		}
	}
	return s, nil
}

// conflictingIDs lists the records whose value for column is (or is not) an
// array.
func conflictingIDs(recs []*record.Record, column string, array bool) []string {
	var ids []string
	for _, r := range recs {
		v, ok := r.Attributes.Get(column)
		if !ok || v.IsNull() {
			continue
		}
		if Classify(v).IsArray() == array {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Ref returns the reference held by v, which is either a ref value or a
// relation string.
func Ref(v record.Value) (record.Ref, bool) {
	switch v.Kind() {
	case record.KindRef:
		return v.AsRef(), true
	case record.KindString:
		return record.ParseRelation(v.StringValue())
	}
	return record.Ref{}, false
}

// FindRelations returns the relation columns of s with the record type each
// one references. A column referencing more than one record type is an
// error.
func FindRelations(recs []*record.Record, s schema.Schema) (record.Relations, error) {
	var rels record.Relations
	for _, c := range s.Columns() {
		if !c.Type.IsRelation() {
			continue
		}
		var target record.RecordType
		for _, r := range recs {
			v, ok := r.Attributes.Get(c.Name)
			if !ok {
				continue
			}
			vals := []record.Value{v}
			if v.IsArray() {
				vals = v.Elems()
			}
			for _, e := range vals {
				ref, ok := Ref(e)
				if !ok {
					continue
				}
				if target != "" && target != ref.Type {
					return record.Relations{}, errors.NewErrInvalidAttribute(c.Name,
						"references both "+string(target)+" and "+string(ref.Type))
				}
				target = ref.Type
			}
		}
		if target == "" {
			continue
		}
		rel := record.Relation{Column: c.Name, Target: target}
		if c.Type.IsArray() {
			rels.Array = append(rels.Array, rel)
		} else {
			rels.Scalar = append(rels.Scalar, rel)
		}
	}
	record.SortRelations(rels.Scalar)
	record.SortRelations(rels.Array)
	return rels, nil
}
