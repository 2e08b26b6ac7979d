// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package handoff

import (
	"strings"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
)

// PrefixStrategy decides how attribute names are namespaced in the
// hand-off document so they cannot collide with the consumer's own fields.
type PrefixStrategy string

const (
	// PrefixTDR prefixes only names the consumer reserves: name, entityType
	// and <type>_id.
	PrefixTDR PrefixStrategy = "tdr"
	// PrefixPFB prefixes every name and renames "name" to <type>_name.
	PrefixPFB  PrefixStrategy = "pfb"
	PrefixNone PrefixStrategy = "none"
)

// ParsePrefixStrategy validates s. The empty string means PrefixNone.
func ParsePrefixStrategy(s string) (PrefixStrategy, error) {
	switch p := PrefixStrategy(strings.ToLower(s)); p {
	case PrefixTDR, PrefixPFB, PrefixNone:
		return p, nil
	case "":
		return PrefixNone, nil
	}
	return "", errors.Errorf("unknown prefix strategy '%s', expected tdr, pfb or none", s)
}

// Prefix returns the name attribute name has for records of type t. Names
// that already carry a namespace are returned unchanged.
func (p PrefixStrategy) Prefix(name string, t record.RecordType) string {
	if strings.Contains(name, ":") {
		return name
	}
	switch p {
	case PrefixTDR:
		if name == "name" || name == "entityType" || name == string(t)+"_id" {
			return "tdr:" + name
		}
	case PrefixPFB:
		if name == "name" {
			return "pfb:" + string(t) + "_name"
		}
		return "pfb:" + name
	}
	return name
}
