// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package tsv reads tab separated files whose header row names the
// attributes and whose primary key column supplies each record's id.
package tsv

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/infer"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/source"
)

// Source holds a validated TSV file. The whole file is checked before the
// first page is returned, so a file with a bad row imports nothing.
type Source struct {
	rc         io.Closer
	typ        record.RecordType
	op         source.Op
	header     []string
	keyColumn  int
	rows       [][]string
	next       int
	primaryKey string
}

var _ source.Source = (*Source)(nil)

// NewSource reads and validates rc. primaryKey names the id column; when
// empty the leftmost column is used.
func NewSource(rc io.ReadCloser, typ record.RecordType, op source.Op, primaryKey string) (*Source, error) {
	s := &Source{rc: rc, typ: typ, op: op}
	if err := s.load(rc, primaryKey); err != nil {
		rc.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) load(r io.Reader, primaryKey string) error {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return errors.NewErrParse("TSV", errors.Errorf("file is empty"))
	} else if err != nil {
		return errors.NewErrParse("TSV header", err)
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		if h == "" {
			return errors.NewErrInvalidAttribute(h, "header column is blank")
		}
		if seen[h] {
			return errors.NewErrInvalidAttribute(h, "duplicate header column")
		}
		seen[h] = true
	}
	s.header = header
	s.keyColumn = 0
	if primaryKey != "" {
		s.keyColumn = -1
		for i, h := range header {
			if h == primaryKey {
				s.keyColumn = i
			}
		}
		if s.keyColumn < 0 {
			return errors.NewErrInvalidAttribute(primaryKey, "primary key column is not in the header")
		}
	}
	s.primaryKey = header[s.keyColumn]
	for i, h := range header {
		if i == s.keyColumn {
			continue
		}
		if err := record.ValidateAttributeName(h, s.primaryKey); err != nil {
			return err
		}
	}

	keys := make(map[string]bool)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.NewErrParse("TSV row", err)
		}
		key := strings.TrimSpace(row[s.keyColumn])
		if key == "" {
			line, _ := reader.FieldPos(0)
			return errors.NewErrInvalidAttribute(s.primaryKey, errors.Errorf("blank primary key on line %d", line).Error())
		}
		if keys[key] {
			return errors.NewErrDuplicatePrimaryKey(s.primaryKey, key)
		}
		keys[key] = true
		s.rows = append(s.rows, row)
	}
	return nil
}

// PrimaryKey returns the name of the id column.
func (s *Source) PrimaryKey() string { return s.primaryKey }

func (s *Source) ReadPage(n int) ([]*record.Record, source.Op, error) {
	var page []*record.Record
	for ; s.next < len(s.rows) && len(page) < n; s.next++ {
		row := s.rows[s.next]
		rec := record.New(strings.TrimSpace(row[s.keyColumn]), s.typ)
		for i, name := range s.header {
			if i == s.keyColumn {
				continue
			}
			rec.Set(name, infer.ParseText(row[i]))
		}
		page = append(page, rec)
	}
	return page, s.op, nil
}

func (s *Source) Close() error {
	s.rows = nil
	return s.rc.Close()
}
