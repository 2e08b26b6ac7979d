// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package source defines the paged record readers feeding an import and the
// decorators shared by all of them.
package source

import (
	"fmt"
	"strings"

	"github.com/featurebasedb/recordimport/record"
)

// Op tags what a page of records asks the sink to do.
type Op int

const (
	Upsert Op = iota
	Delete
)

func (o Op) String() string {
	switch o {
	case Upsert:
		return "upsert"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp parses "upsert" or "delete", ignoring case.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(s) {
	case "upsert":
		return Upsert, nil
	case "delete":
		return Delete, nil
	}
	return Upsert, fmt.Errorf("unknown operation '%s'", s)
}

// Mode selects which part of a two-pass format's rows a source materializes.
type Mode int

const (
	// BaseAttributes emits every attribute except relations.
	BaseAttributes Mode = iota
	// Relations emits only relation attributes.
	Relations
)

func (m Mode) String() string {
	if m == Relations {
		return "relations"
	}
	return "base-attributes"
}

// Source reads records a page at a time. A Source is read once: reading the
// same data again requires opening a new Source on the original stream.
type Source interface {
	// ReadPage returns up to n records and the operation they share. A page
	// shorter than n, or empty, means the source is exhausted or the
	// operation is about to change.
	ReadPage(n int) ([]*record.Record, Op, error)

	// Close releases the underlying stream.
	Close() error
}

// SliceSource serves records held in memory. Useful for tests and for
// replaying a small decoded file.
type SliceSource struct {
	recs   []*record.Record
	op     Op
	pos    int
	Closed bool
}

// NewSliceSource returns a Source serving recs with operation op.
func NewSliceSource(op Op, recs ...*record.Record) *SliceSource {
	return &SliceSource{recs: recs, op: op}
}

func (s *SliceSource) ReadPage(n int) ([]*record.Record, Op, error) {
	if n <= 0 {
		return nil, s.op, fmt.Errorf("invalid page size %d", n)
	}
	end := s.pos + n
	if end > len(s.recs) {
		end = len(s.recs)
	}
	page := s.recs[s.pos:end]
	s.pos = end
	return page, s.op, nil
}

func (s *SliceSource) Close() error {
	s.Closed = true
	return nil
}
