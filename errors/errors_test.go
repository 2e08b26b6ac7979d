// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package errors_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Run("Is", func(t *testing.T) {
		uncoded := errors.New(errors.ErrUncoded, "uncoded error")
		dup := errors.NewErrDuplicatePrimaryKey("sample_id", "s1")
		unsupported := errors.NewErrUnsupportedOperation("delete", "hand-off sink")
		dupCustom := errors.New(errors.ErrDuplicatePrimaryKey, "custom message")

		tests := []struct {
			err    error
			target errors.Code
			exp    bool
		}{
			{
				err:    uncoded,
				target: errors.ErrUncoded,
				exp:    true,
			},
			{
				err:    uncoded,
				target: errors.ErrDuplicatePrimaryKey,
				exp:    false,
			},
			{
				err:    dup,
				target: errors.ErrDuplicatePrimaryKey,
				exp:    true,
			},
			{
				err:    dup,
				target: errors.ErrUnsupportedOperation,
				exp:    false,
			},
			{
				err:    errors.Wrap(unsupported, "with message"),
				target: errors.ErrUnsupportedOperation,
				exp:    true,
			},
			{
				err:    dupCustom,
				target: errors.ErrDuplicatePrimaryKey,
				exp:    true,
			},
		}

		for i, test := range tests {
			t.Run(fmt.Sprintf("test-%d", i), func(t *testing.T) {
				got := errors.Is(test.err, test.target)
				assert.Equal(t, test.exp, got)
			})
		}
	})

	t.Run("IsValidation", func(t *testing.T) {
		assert.True(t, errors.IsValidation(errors.Wrap(errors.NewErrTypeConflict("c", "NUMBER", "ARRAY_OF_NUMBER", nil), "pass 1")))
		assert.True(t, errors.IsValidation(errors.NewErrUnknownRelationTarget("c", "donor")))
		assert.False(t, errors.IsValidation(errors.NewErrBatchWrite("sample", nil, fmt.Errorf("connection reset"))))
		assert.False(t, errors.IsValidation(fmt.Errorf("plain")))
	})

	t.Run("SampleBound", func(t *testing.T) {
		ids := make([]string, 250)
		for i := range ids {
			ids[i] = fmt.Sprintf("r%d", i)
		}
		err := errors.NewErrBatchWrite("sample", ids, nil)
		assert.Contains(t, err.Error(), "250 offending rows")
		assert.Contains(t, err.Error(), "r99")
		assert.NotContains(t, err.Error(), "r100,")
		assert.Len(t, errors.Sample(ids), errors.MaxSampleSize)
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		err := errors.Wrap(errors.NewErrNotFound("manifest.json"), "fetching manifest")
		out := errors.MarshalJSON(err)
		assert.Contains(t, out, `"code":"NotFound"`)
		assert.Contains(t, out, "fetching manifest")

		back := errors.UnmarshalJSON(strings.NewReader(out))
		require.Error(t, back)
		assert.True(t, errors.Is(back, errors.ErrNotFound))

		plain := errors.MarshalJSON(fmt.Errorf("boom"))
		assert.Contains(t, plain, `"message":"boom"`)
	})
}
