// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package handoff

import (
	"github.com/featurebasedb/recordimport/record"
)

// Operation names understood by the consumer.
const (
	OpAddUpdateAttribute                 = "AddUpdateAttribute"
	OpAddListMember                      = "AddListMember"
	OpRemoveAttribute                    = "RemoveAttribute"
	OpCreateAttributeValueList           = "CreateAttributeValueList"
	OpCreateAttributeEntityReferenceList = "CreateAttributeEntityReferenceList"
)

// Entity is the document written for one record.
type Entity struct {
	Name       string      `json:"name"`
	EntityType string      `json:"entityType"`
	Operations []Operation `json:"operations"`
}

// Operation is one attribute update. Which fields are set depends on Op.
type Operation struct {
	Op                 string      `json:"op"`
	AttributeName      string      `json:"attributeName,omitempty"`
	AttributeListName  string      `json:"attributeListName,omitempty"`
	AddUpdateAttribute interface{} `json:"addUpdateAttribute,omitempty"`
	NewMember          interface{} `json:"newMember,omitempty"`
}

// EntityReference is how a relation value is written.
type EntityReference struct {
	EntityType string `json:"entityType"`
	EntityName string `json:"entityName"`
}

// toEntity converts r, naming attributes with prefix. Null attributes are
// left out.
func toEntity(r *record.Record, prefix PrefixStrategy) Entity {
	e := Entity{Name: r.ID, EntityType: string(r.Type), Operations: []Operation{}}
	r.Attributes.Range(func(name string, v record.Value) bool {
		if v.IsNull() {
			return true
		}
		e.Operations = append(e.Operations, operations(prefix.Prefix(name, r.Type), v)...)
		return true
	})
	return e
}

// operations replaces a list attribute wholesale: the old value is removed,
// an empty list is declared and each element appended.
func operations(name string, v record.Value) []Operation {
	if !v.IsArray() {
		return []Operation{{Op: OpAddUpdateAttribute, AttributeName: name, AddUpdateAttribute: value(v)}}
	}
	create := Operation{Op: OpCreateAttributeValueList, AttributeName: name}
	elems := v.Elems()
	if len(elems) > 0 && elems[0].Kind() == record.KindRef {
		create = Operation{Op: OpCreateAttributeEntityReferenceList, AttributeListName: name}
	}
	ops := make([]Operation, 0, len(elems)+2)
	ops = append(ops, Operation{Op: OpRemoveAttribute, AttributeName: name}, create)
	for _, e := range elems {
		ops = append(ops, Operation{Op: OpAddListMember, AttributeListName: name, NewMember: value(e)})
	}
	return ops
}

func value(v record.Value) interface{} {
	if v.Kind() == record.KindRef {
		ref := v.AsRef()
		return EntityReference{EntityType: string(ref.Type), EntityName: ref.ID}
	}
	return v
}
