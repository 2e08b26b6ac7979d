// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package snapshottest writes parquet files and manifests for tests.
package snapshottest

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
)

// Column is a named column of values. Values is one of []int64, []float64,
// []bool, []string, []*string (nil is null) or [][]string.
type Column struct {
	Name   string
	Values interface{}
}

// Parquet encodes columns as a parquet file.
func Parquet(t testing.TB, columns ...Column) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(columns))
	chunks := make([]arrow.Array, len(columns))
	var numRows int64
	for i, c := range columns {
		fields[i].Name = c.Name
		fields[i].Nullable = true
		switch vals := c.Values.(type) {
		case []int64:
			b := array.NewInt64Builder(mem)
			b.AppendValues(vals, nil)
			chunks[i], fields[i].Type, numRows = b.NewArray(), arrow.PrimitiveTypes.Int64, int64(len(vals))
		case []float64:
			b := array.NewFloat64Builder(mem)
			b.AppendValues(vals, nil)
			chunks[i], fields[i].Type, numRows = b.NewArray(), arrow.PrimitiveTypes.Float64, int64(len(vals))
		case []bool:
			b := array.NewBooleanBuilder(mem)
			b.AppendValues(vals, nil)
			chunks[i], fields[i].Type, numRows = b.NewArray(), arrow.FixedWidthTypes.Boolean, int64(len(vals))
		case []string:
			b := array.NewStringBuilder(mem)
			b.AppendValues(vals, nil)
			chunks[i], fields[i].Type, numRows = b.NewArray(), arrow.BinaryTypes.String, int64(len(vals))
		case []*string:
			b := array.NewStringBuilder(mem)
			for _, v := range vals {
				if v == nil {
					b.AppendNull()
				} else {
					b.Append(*v)
				}
			}
			chunks[i], fields[i].Type, numRows = b.NewArray(), arrow.BinaryTypes.String, int64(len(vals))
		case [][]string:
			b := array.NewListBuilder(mem, arrow.BinaryTypes.String)
			vb := b.ValueBuilder().(*array.StringBuilder)
			for _, v := range vals {
				b.Append(true)
				vb.AppendValues(v, nil)
			}
			chunks[i], fields[i].Type, numRows = b.NewArray(), arrow.ListOf(arrow.BinaryTypes.String), int64(len(vals))
		default:
			t.Fatalf("unsupported column values %T", c.Values)
		}
	}
	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, chunks, numRows)
	table := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer table.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithDictionaryDefault(false))
	if err := pqarrow.WriteTable(table, &buf, 4096, props, pqarrow.DefaultWriterProps()); err != nil {
		t.Fatalf("writing parquet: %v", err)
	}
	return buf.Bytes()
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }
