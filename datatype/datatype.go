// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package datatype defines the closed set of column types a record attribute
// can be stored as, and the rules for widening one type to another.
package datatype

import (
	"fmt"
	"strings"
)

// DataType is the semantic type of a column.
type DataType int

const (
	Null DataType = iota
	EmptyArray
	Boolean
	Date
	DateTime
	String
	Relation
	JSON
	Number
	File
	ArrayOfBoolean
	ArrayOfDate
	ArrayOfDateTime
	ArrayOfString
	ArrayOfRelation
	ArrayOfJSON
	ArrayOfNumber
	ArrayOfFile

	numTypes
)

type info struct {
	name    string
	storage string
	cast    string
	array   bool
	base    DataType
}

var infos = [numTypes]info{
	Null:            {name: "NULL", storage: "text"},
	EmptyArray:      {name: "EMPTY_ARRAY", storage: "text[]", cast: "text[]", array: true, base: Null},
	Boolean:         {name: "BOOLEAN", storage: "boolean"},
	Date:            {name: "DATE", storage: "date"},
	DateTime:        {name: "DATE_TIME", storage: "timestamp with time zone"},
	String:          {name: "STRING", storage: "text"},
	Relation:        {name: "RELATION", storage: "text"},
	JSON:            {name: "JSON", storage: "jsonb", cast: "jsonb"},
	Number:          {name: "NUMBER", storage: "numeric"},
	File:            {name: "FILE", storage: "text"},
	ArrayOfBoolean:  {name: "ARRAY_OF_BOOLEAN", storage: "boolean[]", cast: "boolean[]", array: true, base: Boolean},
	ArrayOfDate:     {name: "ARRAY_OF_DATE", storage: "date[]", cast: "date[]", array: true, base: Date},
	ArrayOfDateTime: {name: "ARRAY_OF_DATE_TIME", storage: "timestamp with time zone[]", cast: "timestamp with time zone[]", array: true, base: DateTime},
	ArrayOfString:   {name: "ARRAY_OF_STRING", storage: "text[]", cast: "text[]", array: true, base: String},
	ArrayOfRelation: {name: "ARRAY_OF_RELATION", storage: "text[]", cast: "text[]", array: true, base: Relation},
	ArrayOfJSON:     {name: "ARRAY_OF_JSON", storage: "jsonb[]", cast: "jsonb[]", array: true, base: JSON},
	ArrayOfNumber:   {name: "ARRAY_OF_NUMBER", storage: "numeric[]", cast: "numeric[]", array: true, base: Number},
	ArrayOfFile:     {name: "ARRAY_OF_FILE", storage: "text[]", cast: "text[]", array: true, base: File},
}

// All returns every DataType in declaration order.
func All() []DataType {
	out := make([]DataType, 0, numTypes)
	for t := Null; t < numTypes; t++ {
		out = append(out, t)
	}
	return out
}

func (t DataType) valid() bool {
	return t >= Null && t < numTypes
}

func (t DataType) String() string {
	if !t.valid() {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return infos[t].name
}

// IsArray reports whether t holds a list of values.
func (t DataType) IsArray() bool {
	return t.valid() && infos[t].array
}

// ElementType returns the scalar type held by an array type. EmptyArray
// reports Null. Scalars return themselves.
func (t DataType) ElementType() DataType {
	if !t.IsArray() {
		return t
	}
	return infos[t].base
}

// IsRelation reports whether t is Relation or ArrayOfRelation.
func (t DataType) IsRelation() bool {
	return t == Relation || t == ArrayOfRelation
}

// StorageType is the relational column type used to persist t.
func (t DataType) StorageType() string {
	return infos[t].storage
}

// Placeholder returns the bind parameter for a value of type t, including the
// cast required to persist it (for example "?::jsonb"). mark is the driver's
// bind marker such as "?" or "$3".
func (t DataType) Placeholder(mark string) string {
	if c := infos[t].cast; c != "" {
		return mark + "::" + c
	}
	return mark
}

// ArrayOf returns the array type whose elements are of type t. Null and
// EmptyArray map to EmptyArray. Arrays of arrays are not representable and are
// stored as ArrayOfJSON.
func ArrayOf(t DataType) DataType {
	switch t {
	case Null, EmptyArray:
		return EmptyArray
	case Boolean:
		return ArrayOfBoolean
	case Date:
		return ArrayOfDate
	case DateTime:
		return ArrayOfDateTime
	case String:
		return ArrayOfString
	case Relation:
		return ArrayOfRelation
	case JSON:
		return ArrayOfJSON
	case Number:
		return ArrayOfNumber
	case File:
		return ArrayOfFile
	}
	return ArrayOfJSON
}

// Parse returns the DataType with the given name, e.g. "ARRAY_OF_NUMBER".
func Parse(name string) (DataType, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for t := Null; t < numTypes; t++ {
		if infos[t].name == n {
			return t, nil
		}
	}
	return Null, fmt.Errorf("unknown data type '%s'", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("invalid data type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
