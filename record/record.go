// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package record holds the in-memory representation shared by every source
// and sink: records, their ordered attributes and the values they carry.
package record

import (
	"regexp"
	"strings"

	"github.com/featurebasedb/recordimport/errors"
)

// ReservedPrefix starts names owned by the store itself.
const ReservedPrefix = "sys_"

const maxNameLength = 63

var recordTypeRE = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// RecordType names a logical table within a collection.
type RecordType string

// ParseRecordType validates name and returns it as a RecordType.
func ParseRecordType(name string) (RecordType, error) {
	if err := validateName(name); err != nil {
		return "", errors.NewErrInvalidRecordType(name, err.Error())
	}
	return RecordType(name), nil
}

// MustParseRecordType is like ParseRecordType but panics on invalid names.
func MustParseRecordType(name string) RecordType {
	t, err := ParseRecordType(name)
	if err != nil {
		panic(err)
	}
	return t
}

func (t RecordType) String() string { return string(t) }

// ValidateAttributeName rejects names in the reserved namespace. The primary
// key column is allowed to use it.
func ValidateAttributeName(name, primaryKey string) error {
	if name == "" {
		return errors.NewErrInvalidAttribute(name, "name is empty")
	}
	if name != primaryKey && strings.HasPrefix(strings.ToLower(name), ReservedPrefix) {
		return errors.NewErrInvalidAttribute(name, "names starting with "+ReservedPrefix+" are reserved")
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return errors.Errorf("name is empty")
	case len(name) > maxNameLength:
		return errors.Errorf("name is longer than %d characters", maxNameLength)
	case !recordTypeRE.MatchString(name):
		return errors.Errorf("only letters, digits, spaces, dashes and underscores are allowed")
	case strings.HasPrefix(strings.ToLower(name), ReservedPrefix):
		return errors.Errorf("names starting with %s are reserved", ReservedPrefix)
	}
	return nil
}

// Record is one row: its id, its type and its attributes.
type Record struct {
	ID         string
	Type       RecordType
	Attributes *Attributes
}

// New returns a Record with no attributes.
func New(id string, t RecordType) *Record {
	return &Record{ID: id, Type: t, Attributes: NewAttributes()}
}

// Set is a convenience for r.Attributes.Set.
func (r *Record) Set(name string, v Value) *Record {
	r.Attributes.Set(name, v)
	return r
}

// IDs returns the ids of recs in order.
func IDs(recs []*Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
