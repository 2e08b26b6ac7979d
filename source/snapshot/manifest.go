// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package snapshot

import (
	"encoding/json"
	"io"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
)

// DefaultPrimaryKey is used for tables that do not declare exactly one
// primary key column.
const DefaultPrimaryKey = "datarepo_row_id"

// Manifest is the export description of a data snapshot.
type Manifest struct {
	Snapshot struct {
		ID            string         `json:"id"`
		Name          string         `json:"name"`
		Tables        []TableModel   `json:"tables"`
		Relationships []Relationship `json:"relationships"`
	} `json:"snapshot"`
	Format struct {
		Parquet struct {
			Location struct {
				Tables []TableLocation `json:"tables"`
			} `json:"location"`
		} `json:"parquet"`
	} `json:"format"`
}

type TableModel struct {
	Name       string   `json:"name"`
	PrimaryKey []string `json:"primaryKey"`
}

type Relationship struct {
	Name string             `json:"name"`
	From RelationshipColumn `json:"from"`
	To   RelationshipColumn `json:"to"`
}

type RelationshipColumn struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

type TableLocation struct {
	Name  string   `json:"name"`
	Paths []string `json:"paths"`
}

// Table is everything needed to import one exported table.
type Table struct {
	Type       record.RecordType
	PrimaryKey string
	Paths      []string
	Relations  []record.Relation
}

// ParseManifest decodes a manifest document.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.NewErrParse("snapshot manifest", err)
	}
	return &m, nil
}

// PrimaryKeys maps each table of the snapshot model to its id column.
func (m *Manifest) PrimaryKeys() map[string]string {
	pks := make(map[string]string, len(m.Snapshot.Tables))
	for _, t := range m.Snapshot.Tables {
		pk := DefaultPrimaryKey
		if len(t.PrimaryKey) == 1 {
			pk = t.PrimaryKey[0]
		}
		pks[t.Name] = pk
	}
	return pks
}

// Tables returns the exported tables in manifest order. A relationship is
// kept only when it points at the primary key of its target table.
func (m *Manifest) Tables() ([]Table, error) {
	pks := m.PrimaryKeys()
	locs := m.Format.Parquet.Location.Tables
	tables := make([]Table, 0, len(locs))
	for _, loc := range locs {
		pk, ok := pks[loc.Name]
		if !ok {
			return nil, errors.NewErrParse("snapshot manifest",
				errors.Errorf("table %s with data files is unknown to the snapshot model", loc.Name))
		}
		typ, err := record.ParseRecordType(loc.Name)
		if err != nil {
			return nil, err
		}
		var rels []record.Relation
		for _, r := range m.Snapshot.Relationships {
			if r.From.Table != loc.Name {
				continue
			}
			if target, ok := pks[r.To.Table]; !ok || target != r.To.Column {
				continue
			}
			to, err := record.ParseRecordType(r.To.Table)
			if err != nil {
				return nil, err
			}
			rels = append(rels, record.Relation{Column: r.From.Column, Target: to})
		}
		tables = append(tables, Table{
			Type:       typ,
			PrimaryKey: pk,
			Paths:      append([]string(nil), loc.Paths...),
			Relations:  rels,
		})
	}
	return tables, nil
}
