// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package importer

import (
	"strings"
	"time"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/record"
)

// Format is the kind of file a job imports.
type Format string

const (
	FormatPFB      Format = "pfb"
	FormatSnapshot Format = "snapshot"
	FormatJSON     Format = "json"
	FormatTSV      Format = "tsv"
)

// ParseFormat validates s, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPFB, FormatSnapshot, FormatJSON, FormatTSV:
		return f, nil
	}
	return "", errors.Errorf("unknown format '%s', expected pfb, snapshot, json or tsv", s)
}

// Job describes one import.
type Job struct {
	// ID is assigned by Run when empty.
	ID           string
	SourceURL    string
	Format       Format
	CollectionID string
	UserEmail    string
	// Token is sent as a bearer credential when fetching over http(s).
	Token string

	// PrimaryKey names the key column of json and tsv imports. For tsv
	// the leftmost column is used when it is empty.
	PrimaryKey string
	// RecordType is the type of every row of a tsv import.
	RecordType record.RecordType
}

func (j Job) validate() error {
	if j.SourceURL == "" {
		return errors.Errorf("source URL is required")
	}
	if j.CollectionID == "" {
		return errors.Errorf("collection is required")
	}
	if _, err := ParseFormat(string(j.Format)); err != nil {
		return err
	}
	if j.Format == FormatTSV {
		if _, err := record.ParseRecordType(string(j.RecordType)); err != nil {
			return errors.Wrap(err, "tsv imports need a record type")
		}
	}
	return nil
}

// State is where a job is in its life.
type State string

const (
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

// Status is the stored record of a job.
type Status struct {
	JobID        string         `json:"jobId"`
	CollectionID string         `json:"collectionId"`
	Format       Format         `json:"format"`
	SourceURL    string         `json:"sourceUrl"`
	State        State          `json:"state"`
	Counts       map[string]int `json:"counts,omitempty"`
	// Passes lists the passes that completed, in order. A failed job keeps
	// whatever these passes wrote.
	Passes      []string  `json:"passes,omitempty"`
	SnapshotIDs []string  `json:"snapshotIds,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished,omitempty"`
}

// Result returns the per-type upsert counts of the job.
func (s Status) Result() record.BatchWriteResult {
	return record.ResultFromCounts(s.Counts)
}
