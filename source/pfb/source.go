// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package pfb reads Portable Format for Biomedical data: an Avro object
// container file whose rows carry an id, a type name, an "object" union
// holding the row's attributes and a list of relations to other rows.
package pfb

import (
	"io"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/source"
	"github.com/linkedin/goavro/v2"
)

const (
	idField        = "id"
	typeField      = "name"
	objectField    = "object"
	relationsField = "relations"
	relationID     = "dst_id"
	relationName   = "dst_name"

	// metadataType names the row describing the file itself.
	metadataType = "Metadata"

	// SnapshotIDAttribute holds the id of the data snapshot a row was
	// exported from.
	SnapshotIDAttribute = "source_datarepo_snapshot_id"

	// PrimaryKey is the id column of every PFB record type.
	PrimaryKey = "id"
)

// Source converts PFB rows to records. In BaseAttributes mode each record
// holds the row's object attributes; in Relations mode it holds one
// relation attribute per related row, named after the related type.
type Source struct {
	rc     io.ReadCloser
	ocf    *goavro.OCFReader
	mode   source.Mode
	schema entitySchema
}

var _ source.Source = (*Source)(nil)

// NewSource reads the container header from rc. rc is closed by Close.
func NewSource(rc io.ReadCloser, mode source.Mode) (*Source, error) {
	ocf, err := goavro.NewOCFReader(rc)
	if err != nil {
		rc.Close()
		return nil, errors.NewErrParse("PFB header", err)
	}
	es, err := parseEntitySchema(ocf.Codec().Schema())
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &Source{rc: rc, ocf: ocf, mode: mode, schema: es}, nil
}

func (s *Source) ReadPage(n int) ([]*record.Record, source.Op, error) {
	var page []*record.Record
	for len(page) < n && s.ocf.Scan() {
		datum, err := s.ocf.Read()
		if err != nil {
			return nil, source.Upsert, errors.NewErrParse("PFB row", err)
		}
		row, ok := datum.(map[string]interface{})
		if !ok {
			return nil, source.Upsert, errors.NewErrParse("PFB row", errors.Errorf("unexpected row of type %T", datum))
		}
		rec, err := s.convert(row)
		if err != nil {
			return nil, source.Upsert, err
		}
		if rec != nil {
			page = append(page, rec)
		}
	}
	if err := s.ocf.Err(); err != nil {
		return nil, source.Upsert, errors.NewErrParse("PFB", err)
	}
	return page, source.Upsert, nil
}

func (s *Source) Close() error {
	return s.rc.Close()
}

func (s *Source) convert(row map[string]interface{}) (*record.Record, error) {
	name, _ := unwrap(row[typeField]).(string)
	if name == metadataType {
		return nil, nil
	}
	id, _ := unwrap(row[idField]).(string)
	if id == "" {
		return nil, errors.NewErrParse("PFB row", errors.Errorf("row of type '%s' has no %s", name, idField))
	}
	typ, err := record.ParseRecordType(name)
	if err != nil {
		return nil, err
	}
	rec := record.New(id, typ)
	if s.mode == source.Relations {
		return rec, s.addRelations(rec, row)
	}
	return rec, s.addAttributes(rec, row)
}

func (s *Source) addAttributes(rec *record.Record, row map[string]interface{}) error {
	obj, ok := row[objectField].(map[string]interface{})
	if !ok || len(obj) != 1 {
		return nil
	}
	var (
		member string
		attrs  map[string]interface{}
	)
	for k, v := range obj {
		member = shortName(k)
		attrs, _ = v.(map[string]interface{})
	}
	fields := s.schema[member]
	seen := make(map[string]bool, len(fields))
	for _, fi := range fields {
		seen[fi.name] = true
		raw, ok := attrs[fi.name]
		if !ok {
			continue
		}
		v, err := convertValue(raw, fi)
		if err != nil {
			return errors.NewErrParse("attribute "+fi.name, err)
		}
		rec.Set(fi.name, v)
	}
	var extra []string
	for name := range attrs {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		v, err := convertValue(attrs[name], fieldInfo{name: name})
		if err != nil {
			return errors.NewErrParse("attribute "+name, err)
		}
		rec.Set(name, v)
	}
	return nil
}

func (s *Source) addRelations(rec *record.Record, row map[string]interface{}) error {
	rels, _ := unwrap(row[relationsField]).([]interface{})
	for _, r := range rels {
		rel, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		dstName, _ := unwrap(rel[relationName]).(string)
		dstID, _ := unwrap(rel[relationID]).(string)
		dst, err := record.ParseRecordType(dstName)
		if err != nil {
			return err
		}
		rec.Set(dstName, record.RefTo(record.Ref{Type: dst, ID: dstID}))
	}
	return nil
}

// unwrap returns the value of a decoded union, which goavro represents as
// a map from the member's type name to the value.
func unwrap(x interface{}) interface{} {
	if m, ok := x.(map[string]interface{}); ok && len(m) == 1 {
		for _, v := range m {
			return v
		}
	}
	return x
}

func convertValue(x interface{}, fi fieldInfo) (record.Value, error) {
	if fi.union {
		x = unwrap(x)
	}
	switch x := x.(type) {
	case nil:
		return record.Null(), nil
	case bool:
		return record.Bool(x), nil
	case int32:
		return record.Int(int64(x)), nil
	case int64:
		return record.Int(x), nil
	case int:
		return record.Int(int64(x)), nil
	case float32:
		return record.Float(float64(x)), nil
	case float64:
		return record.Float(x), nil
	case string:
		return record.String(x), nil
	case []byte:
		return record.String(string(x)), nil
	case time.Time:
		if fi.logical == "date" {
			return record.Date(x), nil
		}
		return record.DateTime(x), nil
	case time.Duration:
		return record.String(x.String()), nil
	case *big.Rat:
		return record.Decimal(ratText(x, fi.scale))
	case []interface{}:
		elems := make([]record.Value, 0, len(x))
		for _, e := range x {
			v, err := convertValue(e, fieldInfo{union: fi.itemsUnion})
			if err != nil {
				return record.Value{}, err
			}
			elems = append(elems, v)
		}
		return record.Array(elems...), nil
	case map[string]interface{}:
		return record.JSONOf(jsonable(x))
	}
	return record.Value{}, errors.Errorf("unsupported Avro value of type %T", x)
}

func ratText(r *big.Rat, scale int) string {
	if r.IsInt() {
		return r.Num().String()
	}
	if scale <= 0 {
		scale = 18
	}
	s := r.FloatString(scale)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// jsonable rewrites decoded Avro values that encoding/json would render
// badly: bytes as strings and decimals as numbers.
func jsonable(x interface{}) interface{} {
	switch x := x.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, v := range x {
			out[k] = jsonable(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, v := range x {
			out[i] = jsonable(v)
		}
		return out
	case []byte:
		return string(x)
	case *big.Rat:
		return jsonNumber(ratText(x, 0))
	}
	return x
}

type jsonNumber string

func (n jsonNumber) MarshalJSON() ([]byte, error) { return []byte(n), nil }

// SnapshotIDs returns the distinct snapshot ids named by the rows of a PFB
// file, in first-seen order.
func SnapshotIDs(rc io.ReadCloser, pageSize int) ([]string, error) {
	src, err := NewSource(rc, source.BaseAttributes)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	var (
		ids  []string
		seen = make(map[string]bool)
	)
	for {
		page, _, err := src.ReadPage(pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return ids, nil
		}
		for _, rec := range page {
			v, ok := rec.Attributes.Get(SnapshotIDAttribute)
			if !ok || v.IsNull() {
				continue
			}
			id := v.Text()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
}
