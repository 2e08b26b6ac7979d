// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package pfb

import (
	"encoding/json"
	"strings"

	"github.com/featurebasedb/recordimport/errors"
)

type fieldInfo struct {
	name       string
	union      bool
	itemsUnion bool
	logical    string
	scale      int
}

// entitySchema describes the members of the "object" union, keyed by
// their short record name. Fields keep their declared order.
type entitySchema map[string][]fieldInfo

func parseEntitySchema(schema string) (entitySchema, error) {
	var top map[string]interface{}
	if err := json.Unmarshal([]byte(schema), &top); err != nil {
		return nil, errors.NewErrParse("PFB schema", err)
	}
	fields, _ := top["fields"].([]interface{})
	es := make(entitySchema)
	for _, f := range fields {
		field, _ := f.(map[string]interface{})
		if field["name"] != objectField {
			continue
		}
		members, ok := field["type"].([]interface{})
		if !ok {
			members = []interface{}{field["type"]}
		}
		for _, m := range members {
			rec, ok := m.(map[string]interface{})
			if !ok || rec["type"] != "record" {
				continue
			}
			name, _ := rec["name"].(string)
			es[shortName(name)] = describeFields(rec)
		}
	}
	if len(es) == 0 {
		return nil, errors.NewErrParse("PFB schema", errors.Errorf("no record types in the %q union", objectField))
	}
	return es, nil
}

func describeFields(rec map[string]interface{}) []fieldInfo {
	fields, _ := rec["fields"].([]interface{})
	infos := make([]fieldInfo, 0, len(fields))
	for _, f := range fields {
		field, _ := f.(map[string]interface{})
		name, _ := field["name"].(string)
		fi := describe(field["type"])
		fi.name = name
		infos = append(infos, fi)
	}
	return infos
}

func describe(t interface{}) fieldInfo {
	var fi fieldInfo
	switch t := t.(type) {
	case []interface{}:
		fi.union = true
		for _, m := range t {
			if m == "null" {
				continue
			}
			inner := describe(m)
			fi.logical, fi.scale, fi.itemsUnion = inner.logical, inner.scale, inner.itemsUnion
			break
		}
	case map[string]interface{}:
		fi.logical, _ = t["logicalType"].(string)
		if scale, ok := t["scale"].(float64); ok {
			fi.scale = int(scale)
		}
		if t["type"] == "array" {
			_, fi.itemsUnion = t["items"].([]interface{})
		}
	}
	return fi
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
