// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindString
	KindDate
	KindDateTime
	KindJSON
	KindRef
	KindArray
)

var kindNames = [...]string{"null", "bool", "int", "decimal", "string", "date", "datetime", "json", "ref", "array"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = time.RFC3339Nano
)

// Value is a dynamically typed attribute value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string // decimal text, string, or compact JSON text
	t    time.Time
	ref  Ref
	arr  []Value
}

var decimalRE = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)

func Null() Value             { return Value{} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func RefTo(r Ref) Value       { return Value{kind: KindRef, ref: r} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: append([]Value{}, vs...)} }

// Decimal returns a numeric Value from its decimal text representation.
// Text without a fractional part or exponent that fits in an int64 yields an
// integer Value.
func Decimal(text string) (Value, error) {
	if !decimalRE.MatchString(text) {
		return Value{}, fmt.Errorf("'%s' is not a decimal number", text)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(i), nil
	}
	return Value{kind: KindDecimal, s: text}, nil
}

// Float returns a numeric Value for f. NaN and infinities are null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindDecimal, s: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Date returns a date Value for the calendar day of t.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func DateTime(t time.Time) Value {
	return Value{kind: KindDateTime, t: t}
}

// JSON returns a Value holding a JSON document. The text must be valid JSON.
func JSON(raw []byte) (Value, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Value{}, err
	}
	return Value{kind: KindJSON, s: buf.String()}, nil
}

// JSONOf marshals v and wraps it as a JSON Value.
func JSONOf(v interface{}) (Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindJSON, s: string(b)}, nil
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsArray() bool { return v.kind == KindArray }
func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindDecimal
}

func (v Value) AsBool() bool        { return v.b }
func (v Value) AsInt() int64        { return v.i }
func (v Value) AsTime() time.Time   { return v.t }
func (v Value) AsRef() Ref          { return v.ref }
func (v Value) Elems() []Value      { return v.arr }
func (v Value) JSONText() string    { return v.s }
func (v Value) StringValue() string { return v.s }

// NumberText is the decimal text of a numeric Value.
func (v Value) NumberText() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.i, 10)
	}
	return v.s
}

// Text renders a scalar Value in the form used for storage and for text
// formats: numbers as decimal text, dates as YYYY-MM-DD, datetimes as RFC 3339,
// refs as their target id. Arrays render as JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt, KindDecimal:
		return v.NumberText()
	case KindString, KindJSON:
		return v.s
	case KindDate:
		return v.t.Format(DateLayout)
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	case KindRef:
		return v.ref.ID
	case KindArray:
		b, _ := json.Marshal(v)
		return string(b)
	}
	return ""
}

// MarshalJSON renders the Value as JSON. Refs render as relation strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	case KindInt, KindDecimal:
		return []byte(v.NumberText()), nil
	case KindJSON:
		return []byte(v.s), nil
	case KindString:
		return json.Marshal(v.s)
	case KindDate, KindDateTime:
		return json.Marshal(v.Text())
	case KindRef:
		return json.Marshal(RelationString(v.ref))
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// Equal reports whether two Values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindDecimal, KindString, KindJSON:
		return v.s == o.s
	case KindDate, KindDateTime:
		return v.t.Equal(o.t)
	case KindRef:
		return v.ref == o.ref
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "null"
	}
	if v.kind == KindRef {
		return RelationString(v.ref)
	}
	return v.Text()
}
