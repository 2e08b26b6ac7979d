// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"io"

	"github.com/featurebasedb/recordimport/ctl"
	"github.com/spf13/cobra"
)

func newStatusCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	st := ctl.NewStatusCommand(stdin, stdout, stderr)
	statusCmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show recorded import jobs.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				st.JobID = args[0]
			}
			return st.Run(cmd.Context())
		},
	}
	statusCmd.Flags().StringVar(&st.Path, "status.path", "", "File job statuses are recorded in.")
	return statusCmd
}
