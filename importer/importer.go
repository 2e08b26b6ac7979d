// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package importer runs import jobs: it opens the job's sink, runs the
// passes the job's format needs and records the outcome.
package importer

import (
	"context"
	"io"
	"time"

	"github.com/featurebasedb/recordimport/batch"
	jobcontext "github.com/featurebasedb/recordimport/context"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/sink"
	"github.com/featurebasedb/recordimport/source"
	"github.com/featurebasedb/recordimport/tracing"
	"github.com/google/uuid"
)

// Fetcher opens job inputs by location.
type Fetcher interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	ReadAll(ctx context.Context, location string) ([]byte, error)
}

// Importer runs jobs one at a time per call to Run. Separate calls may
// run concurrently for different collections.
type Importer struct {
	fetcher  Fetcher
	sinks    SinkFactory
	jobs     *JobStore
	log      logger.Logger
	pageSize int
	prefetch int
	now      func() time.Time
}

type Option func(*Importer)

func OptLogger(l logger.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// OptJobStore records job statuses in s.
func OptJobStore(s *JobStore) Option {
	return func(im *Importer) { im.jobs = s }
}

func OptPageSize(n int) Option {
	return func(im *Importer) { im.pageSize = n }
}

// OptPrefetch sets how many files of a snapshot table are fetched at once.
func OptPrefetch(n int) Option {
	return func(im *Importer) { im.prefetch = n }
}

func optClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

func New(f Fetcher, sinks SinkFactory, opts ...Option) *Importer {
	im := &Importer{
		fetcher:  f,
		sinks:    sinks,
		log:      logger.NopLogger,
		pageSize: batch.DefaultPageSize,
		prefetch: 4,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.prefetch < 1 {
		im.prefetch = 1
	}
	return im
}

// run is the state of one job.
type run struct {
	im     *Importer
	job    Job
	sink   sink.Sink
	status *Status
	log    logger.Logger
}

// Run imports job and returns its final status. The returned error is the
// reason the job failed; the status records it as well.
func (im *Importer) Run(ctx context.Context, job Job) (_ Status, err error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	ctx = jobcontext.WithJobID(ctx, job.ID)
	ctx = jobcontext.WithCollectionID(ctx, job.CollectionID)
	ctx = jobcontext.WithUserEmail(ctx, job.UserEmail)
	ctx = jobcontext.WithToken(ctx, job.Token)

	span, ctx := tracing.StartSpanFromContext(ctx, "importer.Run")
	span.LogKV("job", job.ID, "format", string(job.Format))
	defer func() { tracing.FinishSpan(span, err) }()

	status := Status{
		JobID:        job.ID,
		CollectionID: job.CollectionID,
		Format:       job.Format,
		SourceURL:    job.SourceURL,
		State:        StateRunning,
		Started:      im.now().UTC(),
	}
	r := &run{im: im, job: job, status: &status, log: im.log.WithPrefix("job " + job.ID + ": ")}
	if err := job.validate(); err != nil {
		return r.finish(err), err
	}
	r.save()
	r.log.Infof("importing %s from %s into %s", job.Format, job.SourceURL, job.CollectionID)

	snk, err := im.sinks.NewSink(ctx, job)
	if err != nil {
		err = errors.Wrap(err, "creating sink")
		return r.finish(err), err
	}
	r.sink = snk

	err = r.plan(ctx)
	if err == nil {
		snk.MarkSuccess()
	}
	if cerr := snk.Close(ctx); cerr != nil {
		if err == nil {
			err = errors.Wrap(cerr, "closing sink")
		} else {
			r.log.Errorf("closing sink after failure: %v", cerr)
		}
	}
	return r.finish(err), err
}

func (r *run) plan(ctx context.Context) error {
	switch r.job.Format {
	case FormatPFB:
		return r.pfb(ctx)
	case FormatSnapshot:
		return r.snapshot(ctx)
	case FormatJSON:
		return r.json(ctx)
	case FormatTSV:
		return r.tsv(ctx)
	}
	return errors.Errorf("unknown format '%s'", r.job.Format)
}

// passDone records a completed pass. Only base passes add to the counts:
// relation passes update rows the base pass created.
func (r *run) passDone(name string, res record.BatchWriteResult, counted bool, took time.Duration) {
	HistogramPassDuration.WithLabelValues(string(r.job.Format), name).Observe(took.Seconds())
	if counted {
		r.status.Counts = r.status.Result().Merge(res).Counts()
	}
	r.status.Passes = append(r.status.Passes, name)
	r.log.Infof("%s finished in %v: %v", name, took.Round(time.Millisecond), res.Counts())
	r.save()
}

func (r *run) finish(err error) Status {
	r.status.Finished = r.im.now().UTC()
	outcome := OutcomeSucceeded
	if err != nil {
		r.status.State = StateFailed
		r.status.Reason = errors.MarshalJSON(err)
		outcome = OutcomeFailed
		if errors.IsValidation(err) {
			outcome = OutcomeRejected
		}
		r.log.Errorf("failed after passes %v: %v", r.status.Passes, err)
	} else {
		r.status.State = StateSucceeded
		r.log.Infof("succeeded: %v", r.status.Counts)
	}
	CounterJobs.WithLabelValues(string(r.job.Format), string(outcome)).Inc()
	r.save()
	return *r.status
}

func (r *run) save() {
	if r.im.jobs == nil {
		return
	}
	if err := r.im.jobs.Put(*r.status); err != nil {
		r.log.Warnf("recording status: %v", err)
	}
}

// write runs one pass of src through the job's sink. src is closed on
// return.
func (r *run) write(ctx context.Context, name string, counted bool, src source.Source, opts ...batch.Option) (err error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "importer.pass")
	span.LogKV("pass", name)
	defer func() { tracing.FinishSpan(span, err) }()

	r.log.Infof("starting %s", name)
	start := time.Now()
	format := string(r.job.Format)
	opts = append([]batch.Option{
		batch.OptPageSize(r.im.pageSize),
		batch.OptPass(name),
		batch.OptLogger(r.log),
		batch.OptPageHook(func(p batch.PageStats) {
			switch {
			case !counted:
			case p.Op == source.Upsert:
				CounterRecordsUpserted.WithLabelValues(format).Add(float64(p.Records))
			default:
				CounterRecordsDeleted.WithLabelValues(format).Add(float64(p.Records))
			}
		}),
	}, opts...)
	res, err := batch.Write(ctx, src, r.sink, opts...)
	if err != nil {
		if counted {
			r.status.Counts = r.status.Result().Merge(res).Counts()
		}
		return err
	}
	r.passDone(name, res, counted, time.Since(start))
	return nil
}
