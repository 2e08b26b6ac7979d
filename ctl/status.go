// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/importer"
	"github.com/jedib0t/go-pretty/table"
)

// StatusCommand prints the jobs recorded in a job status file.
type StatusCommand struct {
	Path string

	// JobID selects a single job. All jobs are listed when it is empty.
	JobID string

	*CmdIO
}

func NewStatusCommand(stdin io.Reader, stdout, stderr io.Writer) *StatusCommand {
	return &StatusCommand{CmdIO: NewCmdIO(stdin, stdout, stderr)}
}

func (cmd *StatusCommand) Run(_ context.Context) error {
	if cmd.Path == "" {
		return errors.Errorf("status.path is required")
	}
	jobs, err := importer.OpenJobStore(cmd.Path)
	if err != nil {
		return err
	}
	defer jobs.Close()

	var statuses []importer.Status
	if cmd.JobID != "" {
		st, err := jobs.Get(cmd.JobID)
		if err != nil {
			return err
		}
		statuses = append(statuses, st)
	} else if statuses, err = jobs.List(); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.Stdout)
	t.AppendHeader(table.Row{"job", "state", "format", "collection", "started", "took", "records", "reason"})
	for _, st := range statuses {
		took := ""
		if !st.Finished.IsZero() {
			took = st.Finished.Sub(st.Started).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			st.JobID, st.State, st.Format, st.CollectionID,
			st.Started.Format(time.RFC3339), took, counts(st.Counts), reason(st.Reason),
		})
	}
	t.Render()
	return nil
}

// counts renders per-type counts as "a=1,b=2".
func counts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for t, n := range m {
		parts = append(parts, fmt.Sprintf("%s=%d", t, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// reason renders a stored failure reason as its message.
func reason(stored string) string {
	if stored == "" {
		return ""
	}
	return errors.UnmarshalJSON(strings.NewReader(stored)).Error()
}
