// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/featurebasedb/recordimport/importer"
	"github.com/featurebasedb/recordimport/sink/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operations = `[
  {"recordType": "sample", "recordId": "s1", "operation": "upsert", "attributes": {"depth": 3}},
  {"recordType": "sample", "recordId": "s2", "operation": "upsert", "attributes": {"depth": 4.5}},
  {"recordType": "sample", "recordId": "s1", "operation": "delete"}
]`

func newImport(t *testing.T, dir string) (*ImportCommand, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	src := filepath.Join(dir, "ops.json")
	require.NoError(t, os.WriteFile(src, []byte(operations), 0o644))
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cm := NewImportCommand(nil, stdout, stderr)
	cm.SourceURL = src
	cm.Format = "json"
	cm.Collection = "ws"
	cm.Store = StoreConfig{Driver: store.SQLite, DSN: "file:" + filepath.Join(dir, "records.db") + "?_pragma=foreign_keys(1)"}
	cm.Status.Path = filepath.Join(dir, "jobs.db")
	return cm, stdout, stderr
}

func TestImportCommand_Run(t *testing.T) {
	dir := t.TempDir()
	cm, stdout, _ := newImport(t, dir)
	require.NoError(t, cm.Run(context.Background()))

	var st importer.Status
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &st))
	assert.Equal(t, importer.StateSucceeded, st.State)
	assert.Equal(t, map[string]int{"sample": 2}, st.Counts)

	out := &bytes.Buffer{}
	status := NewStatusCommand(nil, out, nil)
	status.Path = cm.Status.Path
	require.NoError(t, status.Run(context.Background()))
	var row string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, st.JobID) {
			row = line
		}
	}
	assert.Contains(t, out.String(), "JOB")
	assert.Contains(t, row, "SUCCEEDED")
	assert.Contains(t, row, "sample=2")

	s, err := store.Open(store.SQLite, cm.Store.DSN, "ws")
	require.NoError(t, err)
	defer s.Close(context.Background())
	n, err := s.Count(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	cm, stdout, _ := newImport(t, dir)
	cm.SourceURL = filepath.Join(dir, "missing.json")
	require.Error(t, cm.Run(context.Background()))

	var st importer.Status
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &st))
	assert.Equal(t, importer.StateFailed, st.State)
	assert.Contains(t, st.Reason, "NotFound")

	status := NewStatusCommand(nil, &bytes.Buffer{}, nil)
	status.Path = cm.Status.Path
	status.JobID = "nope"
	assert.Error(t, status.Run(context.Background()))
}

func TestImportCommand_Validation(t *testing.T) {
	for name, mutate := range map[string]func(*ImportCommand){
		"format":  func(c *ImportCommand) { c.Format = "xml" },
		"sink":    func(c *ImportCommand) { c.Sink = "printer" },
		"dsn":     func(c *ImportCommand) { c.Store.DSN = "" },
		"handoff": func(c *ImportCommand) { c.Sink = "handoff" },
		"prefix": func(c *ImportCommand) {
			c.Sink = "handoff"
			c.Handoff = HandoffConfig{Location: t.TempDir(), PrefixStrategy: "xyz"}
		},
	} {
		t.Run(name, func(t *testing.T) {
			cm, stdout, _ := newImport(t, t.TempDir())
			mutate(cm)
			assert.Error(t, cm.Run(context.Background()))
			assert.Empty(t, stdout.String(), "no job is started")
		})
	}
}

func TestImportCommand_HandoffWithoutKafka(t *testing.T) {
	dir := t.TempDir()
	cm, _, stderr := newImport(t, dir)
	cm.Sink = "handoff"
	cm.Handoff.Location = filepath.Join(dir, "out")
	// the delete operation is not supported by hand-off
	require.Error(t, cm.Run(context.Background()))
	assert.Contains(t, stderr.String(), "notifications are only logged")
}
