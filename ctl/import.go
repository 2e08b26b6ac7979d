// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/featurebasedb/recordimport/blob"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/importer"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/notify"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/sink"
	"github.com/featurebasedb/recordimport/sink/handoff"
	"github.com/featurebasedb/recordimport/sink/store"
	fbot "github.com/featurebasedb/recordimport/tracing/opentracing"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type HandoffConfig struct {
	// Location is a directory or s3://bucket/prefix.
	Location string `toml:"location"`
	// PrefixStrategy is chosen from the format when empty.
	PrefixStrategy string `toml:"prefix-strategy"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type S3Config struct {
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
}

type StatusConfig struct {
	// Path of the bolt file job statuses are kept in. Statuses are not
	// kept when it is empty.
	Path string `toml:"path"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// ImportCommand runs one import job.
type ImportCommand struct { // nolint: maligned
	SourceURL  string `toml:"source-url"`
	Format     string `toml:"format"`
	Collection string `toml:"collection"`
	UserEmail  string `toml:"user-email"`
	Token      string `toml:"token"`
	PageSize   int    `toml:"page-size"`
	PrimaryKey string `toml:"primary-key"`
	RecordType string `toml:"record-type"`
	Sink       string `toml:"sink"`

	Store   StoreConfig   `toml:"store"`
	Handoff HandoffConfig `toml:"handoff"`
	Kafka   KafkaConfig   `toml:"kafka"`
	S3      S3Config      `toml:"s3"`
	Status  StatusConfig  `toml:"status"`
	Metrics MetricsConfig `toml:"metrics"`

	// LogLevel is one of error, warn, info or debug. Verbose is a shorthand
	// for debug.
	LogLevel string `toml:"log-level"`
	Verbose  bool   `toml:"verbose"`
	// Tracing sends job spans to the tracer registered with opentracing.
	Tracing bool `toml:"tracing"`

	// Standard input/output
	*CmdIO `toml:"-"`

	fetcher importer.Fetcher
}

// NewImportCommand returns a new instance of ImportCommand.
func NewImportCommand(stdin io.Reader, stdout, stderr io.Writer) *ImportCommand {
	return &ImportCommand{
		CmdIO:    NewCmdIO(stdin, stdout, stderr),
		Format:   string(importer.FormatPFB),
		PageSize: 500,
		LogLevel: "info",
		Sink:     string(sink.KindStore),
		Store:    StoreConfig{Driver: store.Postgres},
		Kafka:    KafkaConfig{Topic: "import-complete"},
	}
}

func (cmd *ImportCommand) newLogger() (logger.Logger, error) {
	if cmd.Verbose {
		return logger.NewVerboseLogger(cmd.Stderr), nil
	}
	level, err := logger.ParseLevel(cmd.LogLevel)
	if err != nil {
		return nil, err
	}
	return logger.NewLogger(cmd.Stderr, level), nil
}

// Run executes the import and prints its final status as JSON.
func (cmd *ImportCommand) Run(ctx context.Context) error {
	log, err := cmd.newLogger()
	if err != nil {
		return err
	}

	if cmd.Tracing {
		fbot.Install(log)
	}

	format, err := importer.ParseFormat(cmd.Format)
	if err != nil {
		return err
	}
	kind, err := sink.ParseKind(cmd.Sink)
	if err != nil {
		return err
	}

	var s3 s3iface.S3API
	if cmd.S3.Region != "" || cmd.S3.Endpoint != "" {
		if s3, err = blob.NewS3Client(cmd.S3.Region, cmd.S3.Endpoint); err != nil {
			return err
		}
	}

	factory := &importer.Factory{Kind: kind, Logger: log}
	switch kind {
	case sink.KindStore:
		if cmd.Store.DSN == "" {
			return errors.Errorf("store.dsn is required for the %s sink", kind)
		}
		factory.Driver, factory.DSN = cmd.Store.Driver, cmd.Store.DSN
	case sink.KindHandoff:
		if factory.Blobs, err = blob.NewStore(cmd.Handoff.Location, s3); err != nil {
			return errors.Wrap(err, "handoff.location")
		}
		if cmd.Handoff.PrefixStrategy != "" {
			if factory.Prefix, err = handoff.ParsePrefixStrategy(cmd.Handoff.PrefixStrategy); err != nil {
				return err
			}
		}
		if len(cmd.Kafka.Brokers) == 0 {
			log.Warnf("no kafka brokers configured, notifications are only logged")
			factory.Notifier = notify.NewRecorder(log)
		} else {
			k := notify.NewKafka(cmd.Kafka.Brokers, cmd.Kafka.Topic, notify.OptKafkaLogger(log))
			defer k.Close()
			factory.Notifier = k
		}
	}

	opts := []importer.Option{importer.OptLogger(log), importer.OptPageSize(cmd.PageSize)}
	if cmd.Status.Path != "" {
		jobs, err := importer.OpenJobStore(cmd.Status.Path)
		if err != nil {
			return err
		}
		defer jobs.Close()
		opts = append(opts, importer.OptJobStore(jobs))
	}

	if cmd.Metrics.Addr != "" {
		stop, err := serveMetrics(cmd.Metrics.Addr, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	fetcher := cmd.fetcher
	if fetcher == nil {
		fopts := []blob.FetcherOption{blob.OptFetcherLogger(log)}
		if s3 != nil {
			fopts = append(fopts, blob.OptFetcherS3(s3))
		}
		fetcher = blob.NewFetcher(fopts...)
	}

	status, runErr := importer.New(fetcher, factory, opts...).Run(ctx, importer.Job{
		SourceURL:    cmd.SourceURL,
		Format:       format,
		CollectionID: cmd.Collection,
		UserEmail:    cmd.UserEmail,
		Token:        cmd.Token,
		PrimaryKey:   cmd.PrimaryKey,
		RecordType:   record.RecordType(cmd.RecordType),
	})
	enc := json.NewEncoder(cmd.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		return errors.Wrap(err, "writing status")
	}
	return runErr
}

// serveMetrics exposes the default prometheus registry on addr until stop is
// called.
func serveMetrics(addr string, log logger.Logger) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listening for metrics")
	}
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	srv := &http.Server{Handler: router}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server stopped unexpectedly: %v", err)
		}
	}()
	log.Infof("serving metrics on http://%s/metrics", ln.Addr())
	return func() { srv.Close() }, nil
}
