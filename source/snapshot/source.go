// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package snapshot reads the parquet files of an exported data snapshot,
// as described by its manifest.
package snapshot

import (
	"bytes"
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/source"
)

const chunkSize = 1024

// Source pages through the rows of one parquet file of a table. In
// BaseAttributes mode relation columns are left out; in Relations mode only
// relation columns are read, as references to their target type.
type Source struct {
	table arrow.Table
	tr    *array.TableReader
	rec   arrow.Record
	row   int

	t        Table
	mode     source.Mode
	pk       int
	columns  []int
	relation map[int]record.RecordType
}

var _ source.Source = (*Source)(nil)

// NewSource decodes the parquet file held in data.
func NewSource(ctx context.Context, data []byte, t Table, mode source.Mode) (*Source, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewErrParse("parquet file", err)
	}
	defer pf.Close()
	mem := memory.NewGoAllocator()
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errors.NewErrParse("parquet file", err)
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, errors.NewErrParse("parquet file", err)
	}

	s := &Source{table: table, t: t, mode: mode, pk: -1, relation: make(map[int]record.RecordType)}
	targets := make(map[string]record.RecordType, len(t.Relations))
	for _, r := range t.Relations {
		targets[r.Column] = r.Target
	}
	for i, f := range table.Schema().Fields() {
		if f.Name == t.PrimaryKey {
			s.pk = i
		}
		target, isRelation := targets[f.Name]
		switch {
		case isRelation && mode == source.Relations:
			s.relation[i] = target
			s.columns = append(s.columns, i)
		case !isRelation && mode == source.BaseAttributes:
			s.columns = append(s.columns, i)
		}
	}
	if s.pk < 0 {
		table.Release()
		return nil, errors.NewErrInvalidAttribute(t.PrimaryKey, "primary key column is missing from table "+string(t.Type))
	}
	s.tr = array.NewTableReader(table, chunkSize)
	return s, nil
}

func (s *Source) ReadPage(n int) ([]*record.Record, source.Op, error) {
	var page []*record.Record
	for len(page) < n {
		if s.rec == nil || int64(s.row) >= s.rec.NumRows() {
			if !s.tr.Next() {
				break
			}
			s.rec, s.row = s.tr.Record(), 0
		}
		rec, err := s.convert(s.rec, s.row)
		if err != nil {
			return nil, source.Upsert, err
		}
		s.row++
		page = append(page, rec)
	}
	return page, source.Upsert, nil
}

func (s *Source) convert(batch arrow.Record, row int) (*record.Record, error) {
	idv, err := value(batch.Column(s.pk), row)
	if err != nil {
		return nil, err
	}
	if idv.IsNull() {
		return nil, errors.NewErrInvalidAttribute(s.t.PrimaryKey, "primary key is null")
	}
	rec := record.New(idv.Text(), s.t.Type)
	for _, i := range s.columns {
		name := batch.ColumnName(i)
		v, err := value(batch.Column(i), row)
		if err != nil {
			return nil, errors.NewErrParse("column "+name, err)
		}
		if target, ok := s.relation[i]; ok {
			if v.IsNull() {
				continue
			}
			v = toRefs(v, target)
		}
		rec.Set(name, v)
	}
	return rec, nil
}

func toRefs(v record.Value, target record.RecordType) record.Value {
	if !v.IsArray() {
		return record.RefTo(record.Ref{Type: target, ID: v.Text()})
	}
	refs := make([]record.Value, 0, len(v.Elems()))
	for _, e := range v.Elems() {
		refs = append(refs, record.RefTo(record.Ref{Type: target, ID: e.Text()}))
	}
	return record.Array(refs...)
}

func (s *Source) Close() error {
	if s.tr != nil {
		s.tr.Release()
		s.tr = nil
	}
	if s.table != nil {
		s.table.Release()
		s.table = nil
	}
	return nil
}

// value converts element i of arr.
func value(arr arrow.Array, i int) (record.Value, error) {
	if arr.IsNull(i) {
		return record.Null(), nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return record.Bool(a.Value(i)), nil
	case *array.Int8:
		return record.Int(int64(a.Value(i))), nil
	case *array.Int16:
		return record.Int(int64(a.Value(i))), nil
	case *array.Int32:
		return record.Int(int64(a.Value(i))), nil
	case *array.Int64:
		return record.Int(a.Value(i)), nil
	case *array.Uint8:
		return record.Int(int64(a.Value(i))), nil
	case *array.Uint16:
		return record.Int(int64(a.Value(i))), nil
	case *array.Uint32:
		return record.Int(int64(a.Value(i))), nil
	case *array.Uint64:
		return record.Decimal(strconv.FormatUint(a.Value(i), 10))
	case *array.Float32:
		return record.Float(float64(a.Value(i))), nil
	case *array.Float64:
		return record.Float(a.Value(i)), nil
	case *array.String:
		return record.String(a.Value(i)), nil
	case *array.Binary:
		return record.String(string(a.Value(i))), nil
	case *array.Date32:
		return record.Date(time.Unix(int64(a.Value(i))*86400, 0).UTC()), nil
	case *array.Date64:
		return record.Date(time.UnixMilli(int64(a.Value(i))).UTC()), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return record.DateTime(timestamp(int64(a.Value(i)), unit)), nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		r := new(big.Rat).SetFrac(a.Value(i).BigInt(), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))
		return record.Decimal(ratText(r, int(scale)))
	case *array.List:
		offsets := a.Offsets()
		off := a.Data().Offset()
		start, end := int(offsets[i+off]), int(offsets[i+off+1])
		values := a.ListValues()
		elems := make([]record.Value, 0, end-start)
		for j := start; j < end; j++ {
			v, err := value(values, j)
			if err != nil {
				return record.Value{}, err
			}
			elems = append(elems, v)
		}
		return record.Array(elems...), nil
	case *array.Struct:
		obj := make(map[string]interface{}, a.NumField())
		st := a.DataType().(*arrow.StructType)
		for f := 0; f < a.NumField(); f++ {
			v, err := value(a.Field(f), i)
			if err != nil {
				return record.Value{}, err
			}
			obj[st.Field(f).Name] = v
		}
		return record.JSONOf(obj)
	}
	return record.Value{}, errors.Errorf("unsupported parquet column type %s", arr.DataType())
}

func timestamp(v int64, unit arrow.TimeUnit) time.Time {
	switch unit {
	case arrow.Second:
		return time.Unix(v, 0).UTC()
	case arrow.Millisecond:
		return time.UnixMilli(v).UTC()
	case arrow.Microsecond:
		return time.UnixMicro(v).UTC()
	}
	return time.Unix(0, v).UTC()
}

func ratText(r *big.Rat, scale int) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.FloatString(scale)
}
