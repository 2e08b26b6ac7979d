// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"io"

	"github.com/featurebasedb/recordimport/ctl"
	"github.com/spf13/cobra"
)

// newImportCommand runs one import job to completion.
func newImportCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	im := ctl.NewImportCommand(stdin, stdout, stderr)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from a data export.",
		Long: `Import reads every record of the source, infers attribute types,
creates or widens the record types of the collection and writes the
records in pages.

Formats:

	pfb       an Avro object container file of PFB entities
	snapshot  a snapshot manifest listing parquet files per table
	json      an array of {recordType, recordId, operation, attributes}
	tsv       tab separated rows of one record type

PFB and snapshot imports write base attributes first and relations in
a second pass. The final job status is printed as JSON.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return im.Run(cmd.Context())
		},
	}

	flags := importCmd.Flags()
	flags.StringVarP(&im.SourceURL, "source-url", "s", "", "Location of the file to import: a path, http(s):// or s3:// URL.")
	flags.StringVarP(&im.Format, "format", "f", im.Format, "Format of the source: pfb, snapshot, json or tsv.")
	flags.StringVar(&im.Collection, "collection", "", "Collection to import into.")
	flags.StringVar(&im.UserEmail, "user-email", "", "Email of the user the import runs for.")
	flags.StringVar(&im.Token, "token", "", "Bearer token sent when fetching over http(s).")
	flags.IntVar(&im.PageSize, "page-size", im.PageSize, "Records read per page.")
	flags.StringVar(&im.PrimaryKey, "primary-key", "", "Primary key column of json and tsv imports.")
	flags.StringVar(&im.RecordType, "record-type", "", "Record type of every row of a tsv import.")
	flags.StringVar(&im.Sink, "sink", im.Sink, "Where records are written: store or handoff.")
	flags.StringVar(&im.Store.Driver, "store.driver", im.Store.Driver, "Database driver: postgres, mysql or sqlite.")
	flags.StringVar(&im.Store.DSN, "store.dsn", "", "Database connection string.")
	flags.StringVar(&im.Handoff.Location, "handoff.location", "", "Directory or s3://bucket/prefix hand-off documents are written to.")
	flags.StringVar(&im.Handoff.PrefixStrategy, "handoff.prefix-strategy", "", "Attribute prefixes of hand-off documents: tdr, pfb or none. Chosen from the format when empty.")
	flags.StringSliceVar(&im.Kafka.Brokers, "kafka.brokers", nil, "Kafka brokers hand-off notifications are sent to.")
	flags.StringVar(&im.Kafka.Topic, "kafka.topic", im.Kafka.Topic, "Kafka topic of hand-off notifications.")
	flags.StringVar(&im.S3.Region, "s3.region", "", "AWS region of s3:// locations.")
	flags.StringVar(&im.S3.Endpoint, "s3.endpoint", "", "S3 compatible endpoint to use instead of AWS.")
	flags.StringVar(&im.Status.Path, "status.path", "", "File job statuses are recorded in.")
	flags.StringVar(&im.Metrics.Addr, "metrics.addr", "", "Address to serve prometheus metrics on while importing.")
	flags.StringVar(&im.LogLevel, "log-level", "info", "Least severe messages logged: error, warn, info or debug.")
	flags.BoolVarP(&im.Verbose, "verbose", "v", false, "Enable debug logging.")
	flags.BoolVar(&im.Tracing, "tracing", false, "Send spans to the registered opentracing tracer.")

	return importCmd
}
