// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package pfbtest writes small PFB files for tests.
package pfbtest

import (
	"bytes"
	"testing"

	"github.com/linkedin/goavro/v2"
)

// Schema declares a Metadata row plus "sample" and "subject" record types.
const Schema = `{
  "type": "record", "name": "Entity", "namespace": "pfb",
  "fields": [
    {"name": "id", "type": ["null", "string"]},
    {"name": "name", "type": "string"},
    {"name": "object", "type": [
      {"type": "record", "name": "Metadata", "fields": [
        {"name": "misc", "type": "string"}]},
      {"type": "record", "name": "sample", "fields": [
        {"name": "depth", "type": ["null", "long"]},
        {"name": "ratio", "type": "double"},
        {"name": "collected", "type": {"type": "int", "logicalType": "date"}},
        {"name": "tags", "type": {"type": "array", "items": "string"}},
        {"name": "props", "type": {"type": "map", "values": "string"}},
        {"name": "source_datarepo_snapshot_id", "type": ["null", "string"]}]},
      {"type": "record", "name": "subject", "fields": [
        {"name": "age", "type": ["null", "long"]}]}
    ]},
    {"name": "relations", "type": {"type": "array", "items": {
      "type": "record", "name": "Relation", "fields": [
        {"name": "dst_id", "type": "string"},
        {"name": "dst_name", "type": "string"}]}}}
  ]
}`

// Row is one PFB row. Object holds the attributes of the Name member.
type Row struct {
	ID        string
	Name      string
	Object    map[string]interface{}
	Relations [][2]string // type, id
}

// Metadata returns the row describing the file.
func Metadata() Row {
	return Row{Name: "Metadata", Object: map[string]interface{}{"misc": "x"}}
}

// Write encodes rows as an object container file.
func Write(t testing.TB, rows ...Row) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: &buf, Schema: Schema})
	if err != nil {
		t.Fatalf("creating writer: %v", err)
	}
	data := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		rels := make([]interface{}, 0, len(r.Relations))
		for _, rel := range r.Relations {
			rels = append(rels, map[string]interface{}{"dst_name": rel[0], "dst_id": rel[1]})
		}
		var id interface{}
		if r.ID != "" {
			id = goavro.Union("string", r.ID)
		}
		data = append(data, map[string]interface{}{
			"id":        id,
			"name":      r.Name,
			"object":    goavro.Union("pfb."+r.Name, r.Object),
			"relations": rels,
		})
	}
	if err := w.Append(data); err != nil {
		t.Fatalf("appending rows: %v", err)
	}
	return buf.Bytes()
}
