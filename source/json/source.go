// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package json reads a JSON array of record operations:
//
//	[{"recordType": "sample", "recordId": "s1", "operation": "upsert",
//	  "attributes": {"depth": 30}}]
//
// The array is streamed; only one page of records is held at a time.
package json

import (
	"encoding/json"
	"io"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/source"
)

type operation struct {
	RecordType string                     `json:"recordType"`
	RecordID   string                     `json:"recordId"`
	Operation  string                     `json:"operation"`
	Attributes map[string]json.RawMessage `json:"attributes"`
}

// Source pages through the operations of a JSON document. A page holds
// records of a single operation: when the operation changes the page ends
// early and the record is kept for the next page.
type Source struct {
	rc      io.ReadCloser
	dec     *json.Decoder
	started bool
	done    bool

	pending   *record.Record
	pendingOp source.Op
}

var _ source.Source = (*Source)(nil)

// NewSource reads operations from rc, which is closed by Close.
func NewSource(rc io.ReadCloser) *Source {
	dec := json.NewDecoder(rc)
	dec.UseNumber()
	return &Source{rc: rc, dec: dec}
}

func (s *Source) ReadPage(n int) ([]*record.Record, source.Op, error) {
	if err := s.start(); err != nil {
		return nil, source.Upsert, err
	}
	var (
		page []*record.Record
		op   source.Op
	)
	if s.pending != nil {
		page = append(page, s.pending)
		op = s.pendingOp
		s.pending = nil
	}
	for len(page) < n && !s.done {
		rec, recOp, err := s.next()
		if err != nil {
			return nil, op, err
		}
		if rec == nil {
			break
		}
		if len(page) > 0 && recOp != op {
			s.pending, s.pendingOp = rec, recOp
			break
		}
		op = recOp
		page = append(page, rec)
	}
	return page, op, nil
}

func (s *Source) start() error {
	if s.started {
		return nil
	}
	s.started = true
	tok, err := s.dec.Token()
	if err == io.EOF {
		s.done = true
		return nil
	}
	if err != nil {
		return errors.NewErrParse("JSON operations", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return errors.NewErrParse("JSON operations", errors.Errorf("expected an array, got %v", tok))
	}
	return nil
}

func (s *Source) next() (*record.Record, source.Op, error) {
	if !s.dec.More() {
		s.done = true
		if _, err := s.dec.Token(); err != nil {
			return nil, source.Upsert, errors.NewErrParse("JSON operations", err)
		}
		return nil, source.Upsert, nil
	}
	var raw json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		return nil, source.Upsert, errors.NewErrParse("JSON operations", err)
	}
	return convert(raw)
}

func convert(raw json.RawMessage) (*record.Record, source.Op, error) {
	var o operation
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, source.Upsert, errors.NewErrParse("JSON operation", err)
	}
	op, err := source.ParseOp(o.Operation)
	if err != nil {
		return nil, op, errors.NewErrParse("JSON operation", err)
	}
	if o.RecordID == "" {
		return nil, op, errors.NewErrParse("JSON operation", errors.Errorf("recordId is missing"))
	}
	typ, err := record.ParseRecordType(o.RecordType)
	if err != nil {
		return nil, op, err
	}
	rec := record.New(o.RecordID, typ)
	if o.Attributes == nil {
		return rec, op, nil
	}
	names, err := objectKeys(raw, "attributes")
	if err != nil {
		return nil, op, err
	}
	for _, name := range names {
		var x interface{}
		dec := json.NewDecoder(bytesReader(o.Attributes[name]))
		dec.UseNumber()
		if err := dec.Decode(&x); err != nil {
			return nil, op, errors.NewErrParse("attribute "+name, err)
		}
		v, err := record.FromJSON(x)
		if err != nil {
			return nil, op, errors.NewErrParse("attribute "+name, err)
		}
		rec.Set(name, v)
	}
	return rec, op, nil
}

func (s *Source) Close() error {
	return s.rc.Close()
}
