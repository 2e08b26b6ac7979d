// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package handoff is a sink that does not store records itself. It writes
// every upserted record as a list of attribute operations into one JSON
// document, publishes the document as a blob once the job has succeeded and
// notifies the downstream consumer that it is ready.
package handoff

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/featurebasedb/recordimport/blob"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/notify"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/schema"
	"github.com/featurebasedb/recordimport/sink"
)

// Job identifies the import a Sink writes for.
type Job struct {
	ID           string
	CollectionID string
	UserEmail    string
}

// BlobName is the name of the document published for job id.
func BlobName(jobID string) string { return jobID + ".upsert.json" }

// Sink stages operations in a temporary file.
type Sink struct {
	job      Job
	prefix   PrefixStrategy
	store    blob.Store
	notifier notify.Notifier
	log      logger.Logger
	tempDir  string

	file    *os.File
	w       *bufio.Writer
	n       int
	success bool
	closed  bool
}

var _ sink.Sink = (*Sink)(nil)

type Option func(*Sink)

func OptLogger(l logger.Logger) Option {
	return func(s *Sink) { s.log = l }
}

func OptPrefix(p PrefixStrategy) Option {
	return func(s *Sink) { s.prefix = p }
}

// OptTempDir sets where the document is staged. The default is the
// system temporary directory.
func OptTempDir(dir string) Option {
	return func(s *Sink) { s.tempDir = dir }
}

// New returns a Sink publishing to store and announcing through n.
func New(job Job, store blob.Store, n notify.Notifier, opts ...Option) (*Sink, error) {
	if job.ID == "" {
		return nil, errors.Errorf("job id is required")
	}
	s := &Sink{
		job:      job,
		prefix:   PrefixNone,
		store:    store,
		notifier: n,
		log:      logger.NopLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	f, err := os.CreateTemp(s.tempDir, "handoff-"+job.ID+"-*.json")
	if err != nil {
		return nil, errors.Wrap(err, "creating staging file")
	}
	s.file = f
	s.w = bufio.NewWriter(f)
	if _, err := s.w.WriteString("["); err != nil {
		s.discard()
		return nil, errors.Wrap(err, "writing staging file")
	}
	return s, nil
}

// CreateOrModifyRecordType returns observed unchanged. The consumer
// derives its schema from the operations themselves.
func (s *Sink) CreateOrModifyRecordType(_ context.Context, _ record.RecordType, observed schema.Schema, _ []*record.Record, _ string) (schema.Schema, error) {
	return observed, nil
}

// UpsertBatch appends one entity per record to the staged document.
func (s *Sink) UpsertBatch(_ context.Context, t record.RecordType, _ schema.Schema, recs []*record.Record, _ string) error {
	if s.closed {
		return errors.Errorf("hand-off sink for job %s is closed", s.job.ID)
	}
	for _, r := range recs {
		b, err := json.Marshal(toEntity(r, s.prefix))
		if err != nil {
			return errors.NewErrBatchWrite(string(t), []string{r.ID}, err)
		}
		if s.n > 0 {
			if _, err := s.w.WriteString(","); err != nil {
				return errors.Wrap(err, "writing staging file")
			}
		}
		if _, err := s.w.WriteString("\n"); err != nil {
			return errors.Wrap(err, "writing staging file")
		}
		if _, err := s.w.Write(b); err != nil {
			return errors.Wrap(err, "writing staging file")
		}
		s.n++
	}
	return nil
}

// DeleteBatch always fails: the consumer only understands attribute
// operations.
func (s *Sink) DeleteBatch(context.Context, record.RecordType, []*record.Record) error {
	return errors.NewErrUnsupportedOperation("delete", "the hand-off sink")
}

func (s *Sink) MarkSuccess() { s.success = true }

// Close publishes the document and sends the notification if MarkSuccess
// was called. The staged file is removed either way.
func (s *Sink) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.discard()
	if !s.success {
		s.log.Infof("job %s did not succeed, discarding %d staged entities", s.job.ID, s.n)
		return nil
	}

	if _, err := s.w.WriteString("\n]\n"); err != nil {
		return errors.Wrap(err, "writing staging file")
	}
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, "flushing staging file")
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewinding staging file")
	}
	locator, err := s.store.Put(ctx, BlobName(s.job.ID), s.file)
	if err != nil {
		return errors.Wrapf(err, "publishing upsert file for job %s", s.job.ID)
	}

	s.log.Infof("publishing notification for job %s (%d entities in %s)", s.job.ID, s.n, locator)
	err = s.notifier.Notify(ctx, notify.Message{
		WorkspaceID: s.job.CollectionID,
		UserEmail:   s.job.UserEmail,
		JobID:       s.job.ID,
		UpsertFile:  locator,
		IsUpsert:    "true",
	})
	return errors.Wrapf(err, "notifying for job %s", s.job.ID)
}

func (s *Sink) discard() {
	name := s.file.Name()
	if err := s.file.Close(); err != nil {
		s.log.Warnf("closing staging file %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		s.log.Warnf("removing staging file %s: %v", name, err)
	}
}
