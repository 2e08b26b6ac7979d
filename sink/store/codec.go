// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package store

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/infer"
	"github.com/featurebasedb/recordimport/record"
)

// column is a stored column: its type and, for relation columns, the type
// it points at.
type column struct {
	name   string
	dt     datatype.DataType
	target record.RecordType
}

// encode converts v to a bind parameter for col.
func encode(d dialect, v record.Value, col column) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	if col.dt.IsArray() {
		if !v.IsArray() {
			return nil, errors.Errorf("column '%s' of type %s cannot hold %s", col.name, col.dt, v.Kind())
		}
		elemCol := column{name: col.name, dt: col.dt.ElementType(), target: col.target}
		if elemCol.dt == datatype.Null {
			elemCol.dt = datatype.String
		}
		elems := make([]interface{}, len(v.Elems()))
		for i, e := range v.Elems() {
			c, err := canonical(e, elemCol)
			if err != nil {
				return nil, err
			}
			elems[i] = c
		}
		return d.encodeArray(elems, elemCol.dt)
	}
	c, err := canonical(v, col)
	if err != nil {
		return nil, err
	}
	switch c := c.(type) {
	case bool:
		return d.encodeBool(c), nil
	case time.Time:
		return d.encodeDateTime(c), nil
	case json.RawMessage:
		return string(c), nil
	case json.Number:
		return c.String(), nil
	}
	return c, nil
}

// canonical converts a scalar value to the Go value representing it in a
// column of type col.dt: string, int64, json.Number, bool, time.Time or
// json.RawMessage.
func canonical(v record.Value, col column) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.IsArray() {
		return nil, errors.Errorf("column '%s' of type %s cannot hold an array", col.name, col.dt)
	}
	mismatch := func() error {
		return errors.Errorf("column '%s' of type %s cannot hold %s value '%s'", col.name, col.dt, v.Kind(), v.Text())
	}
	switch col.dt {
	case datatype.Boolean:
		switch v.Kind() {
		case record.KindBool:
			return v.AsBool(), nil
		case record.KindString:
			if b, err := strconv.ParseBool(strings.ToLower(v.StringValue())); err == nil {
				return b, nil
			}
		}
		return nil, mismatch()

	case datatype.Number:
		switch v.Kind() {
		case record.KindInt:
			return v.AsInt(), nil
		case record.KindDecimal:
			return json.Number(v.NumberText()), nil
		case record.KindString:
			if n, err := record.Decimal(v.StringValue()); err == nil {
				return canonical(n, col)
			}
		}
		return nil, mismatch()

	case datatype.Date:
		switch v.Kind() {
		case record.KindDate, record.KindDateTime:
			return v.AsTime().Format(record.DateLayout), nil
		case record.KindString:
			if infer.IsDate(v.StringValue()) {
				return v.StringValue(), nil
			}
		}
		return nil, mismatch()

	case datatype.DateTime:
		switch v.Kind() {
		case record.KindDate, record.KindDateTime:
			return v.AsTime(), nil
		case record.KindString:
			if t, ok := parseTime(v.StringValue()); ok {
				return t, nil
			}
		}
		return nil, mismatch()

	case datatype.JSON:
		switch v.Kind() {
		case record.KindJSON:
			return json.RawMessage(v.JSONText()), nil
		case record.KindString:
			if json.Valid([]byte(v.StringValue())) {
				return json.RawMessage(v.StringValue()), nil
			}
		}
		return nil, mismatch()

	case datatype.Relation:
		ref, ok := infer.Ref(v)
		if !ok {
			return nil, mismatch()
		}
		if col.target != "" && ref.Type != col.target {
			return nil, errors.Errorf("column '%s' references %s, not %s", col.name, col.target, ref.Type)
		}
		return ref.ID, nil
	}

	// STRING, FILE and NULL columns hold the text form of any scalar.
	switch v.Kind() {
	case record.KindRef:
		return record.RelationString(v.AsRef()), nil
	case record.KindJSON:
		return v.JSONText(), nil
	}
	return v.Text(), nil
}

// decode converts a scanned column value back to a record value.
func decode(d dialect, raw interface{}, col column) (record.Value, error) {
	if raw == nil {
		return record.Null(), nil
	}
	if !col.dt.IsArray() {
		return decodeScalar(raw, col)
	}
	elems, err := d.decodeArray(raw)
	if err != nil {
		return record.Value{}, errors.Wrapf(err, "decoding column '%s'", col.name)
	}
	elemCol := column{name: col.name, dt: col.dt.ElementType(), target: col.target}
	vals := make([]record.Value, len(elems))
	for i, e := range elems {
		switch e := e.(type) {
		case map[string]interface{}, []interface{}:
			vals[i], err = record.JSONOf(e)
		case json.Number:
			vals[i], err = decodeScalar(e.String(), elemCol)
		default:
			vals[i], err = decodeScalar(e, elemCol)
		}
		if err != nil {
			return record.Value{}, err
		}
	}
	return record.Array(vals...), nil
}

func decodeScalar(raw interface{}, col column) (record.Value, error) {
	if raw == nil {
		return record.Null(), nil
	}
	if t, ok := raw.(time.Time); ok {
		if col.dt == datatype.Date {
			return record.Date(t), nil
		}
		if col.dt == datatype.DateTime {
			return record.DateTime(t.UTC()), nil
		}
		return record.String(t.UTC().Format(time.RFC3339Nano)), nil
	}
	var text string
	switch r := raw.(type) {
	case bool:
		if col.dt == datatype.Boolean {
			return record.Bool(r), nil
		}
		text = strconv.FormatBool(r)
	case int64:
		switch col.dt {
		case datatype.Number:
			return record.Int(r), nil
		case datatype.Boolean:
			return record.Bool(r != 0), nil
		}
		text = strconv.FormatInt(r, 10)
	case float64:
		if col.dt == datatype.Number {
			return record.Float(r), nil
		}
		text = strconv.FormatFloat(r, 'f', -1, 64)
	default:
		s, ok := rawText(raw)
		if !ok {
			return record.Value{}, errors.Errorf("column '%s': unexpected value of type %T", col.name, raw)
		}
		text = s
	}

	bad := func(err error) (record.Value, error) {
		return record.Value{}, errors.Errorf("column '%s': cannot read '%s' as %s: %v", col.name, text, col.dt, err)
	}
	switch col.dt {
	case datatype.Boolean:
		switch strings.ToLower(text) {
		case "t", "true", "1":
			return record.Bool(true), nil
		case "f", "false", "0":
			return record.Bool(false), nil
		}
		return bad(errors.Errorf("not a boolean"))
	case datatype.Number:
		v, err := record.Decimal(trimDecimal(text))
		if err != nil {
			return bad(err)
		}
		return v, nil
	case datatype.Date:
		if len(text) >= len(record.DateLayout) {
			if t, err := time.Parse(record.DateLayout, text[:len(record.DateLayout)]); err == nil {
				return record.Date(t), nil
			}
		}
		return bad(errors.Errorf("not a date"))
	case datatype.DateTime:
		if t, ok := parseTime(text); ok {
			return record.DateTime(t), nil
		}
		return bad(errors.Errorf("not a timestamp"))
	case datatype.JSON:
		v, err := record.JSON([]byte(text))
		if err != nil {
			return bad(err)
		}
		return v, nil
	case datatype.Relation:
		return record.RefTo(record.Ref{Type: col.target, ID: text}), nil
	}
	return record.String(text), nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	record.DateLayout,
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// trimDecimal drops the trailing zeros a fixed-scale column pads with.
func trimDecimal(s string) string {
	if !strings.Contains(s, ".") || strings.ContainsAny(s, "eE") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
