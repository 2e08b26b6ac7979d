// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// BatchWriteResult counts upserted rows per record type. It is immutable:
// With and Merge return new results.
type BatchWriteResult struct {
	counts map[RecordType]int
}

// NewBatchWriteResult returns an empty result.
func NewBatchWriteResult() BatchWriteResult {
	return BatchWriteResult{}
}

// With returns a copy of r with n added to t's count. t is present in the
// result even when n is zero.
func (r BatchWriteResult) With(t RecordType, n int) BatchWriteResult {
	if n < 0 {
		panic(fmt.Sprintf("negative row count %d for %s", n, t))
	}
	out := r.clone()
	out.counts[t] += n
	return out
}

// Merge sums the counts of r and o per record type. Merge is associative and
// commutative.
func (r BatchWriteResult) Merge(o BatchWriteResult) BatchWriteResult {
	out := r.clone()
	for t, n := range o.counts {
		out.counts[t] += n
	}
	return out
}

func (r BatchWriteResult) clone() BatchWriteResult {
	out := BatchWriteResult{counts: make(map[RecordType]int, len(r.counts)+1)}
	for t, n := range r.counts {
		out.counts[t] = n
	}
	return out
}

// Count returns the number of rows written for t.
func (r BatchWriteResult) Count(t RecordType) int {
	return r.counts[t]
}

// Types returns the record types present in the result, sorted.
func (r BatchWriteResult) Types() []RecordType {
	out := make([]RecordType, 0, len(r.counts))
	for t := range r.counts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Total returns the sum of all counts.
func (r BatchWriteResult) Total() int {
	total := 0
	for _, n := range r.counts {
		total += n
	}
	return total
}

// Counts returns a copy of the counts keyed by record type name.
func (r BatchWriteResult) Counts() map[string]int {
	out := make(map[string]int, len(r.counts))
	for t, n := range r.counts {
		out[string(t)] = n
	}
	return out
}

// Equal reports whether r and o hold the same counts.
func (r BatchWriteResult) Equal(o BatchWriteResult) bool {
	if len(r.counts) != len(o.counts) {
		return false
	}
	for t, n := range r.counts {
		if m, ok := o.counts[t]; !ok || m != n {
			return false
		}
	}
	return true
}

func (r BatchWriteResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Counts())
}

// ResultFromCounts builds a result from counts keyed by type name.
func ResultFromCounts(counts map[string]int) BatchWriteResult {
	out := NewBatchWriteResult()
	for t, n := range counts {
		out = out.With(RecordType(t), n)
	}
	return out
}
