// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/featurebasedb/recordimport/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewLogger(&buf, logger.LevelWarn)
	l.Infof("dropped %d", 1)
	l.Warnf("kept %d", 2)
	l.WithPrefix("pfb: ").Errorf("failed")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "WARN:  kept 2")
	assert.Contains(t, out, "ERROR: pfb: failed")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestParseLevel(t *testing.T) {
	lvl, err := logger.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, logger.LevelDebug, lvl)

	lvl, err = logger.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, logger.LevelInfo, lvl)

	_, err = logger.ParseLevel("loud")
	assert.Error(t, err)
}

func TestBufferLogger(t *testing.T) {
	b := logger.NewBufferLogger()
	b.WithPrefix("x").Warnf("skipping empty file %s", "part-0.parquet")
	b.Debugf("not recorded")
	assert.Equal(t, "WARN:  skipping empty file part-0.parquet\n", b.String())
}
