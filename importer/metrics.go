// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package importer

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricRecordsUpserted = "records_upserted_total"
	MetricRecordsDeleted  = "records_deleted_total"
	MetricSchemaChanges   = "schema_changes_total"
	MetricJobs            = "jobs_total"
	MetricPassDuration    = "pass_duration_seconds"
)

var CounterRecordsUpserted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "recordimport",
		Name:      MetricRecordsUpserted,
		Help:      "Records written by upsert, by import format.",
	},
	[]string{"format"},
)

var CounterRecordsDeleted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "recordimport",
		Name:      MetricRecordsDeleted,
		Help:      "Records removed by delete operations, by import format.",
	},
	[]string{"format"},
)

var CounterSchemaChanges = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "recordimport",
		Name:      MetricSchemaChanges,
		Help:      "Record types created or altered.",
	},
)

// Outcome is the outcome label of CounterJobs. A job is rejected when its
// input failed validation and failed when the sink or a fetch did.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

var CounterJobs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "recordimport",
		Name:      MetricJobs,
		Help:      "Finished jobs by format and outcome.",
	},
	[]string{"format", "outcome"},
)

var HistogramPassDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "recordimport",
		Name:      MetricPassDuration,
		Help:      "Time taken by each pass of a job.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	},
	[]string{"format", "pass"},
)

func init() {
	prometheus.MustRegister(CounterRecordsUpserted)
	prometheus.MustRegister(CounterRecordsDeleted)
	prometheus.MustRegister(CounterSchemaChanges)
	prometheus.MustRegister(CounterJobs)
	prometheus.MustRegister(HistogramPassDuration)
}
