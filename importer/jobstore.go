// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package importer

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/featurebasedb/recordimport/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketJobs = []byte("jobs")

// JobStore keeps job statuses in a bolt file.
type JobStore struct {
	db *bolt.DB
}

// OpenJobStore opens or creates the bolt file at path.
func OpenJobStore(path string) (*JobStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening job store %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketJobs)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating jobs bucket")
	}
	return &JobStore{db: db}, nil
}

func (s *JobStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	defer func() { s.db = nil }()
	return s.db.Close()
}

// Put stores st, replacing any earlier status of the same job.
func (s *JobStore) Put(st Status) error {
	b, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "marshaling job status")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJobs).Put([]byte(st.JobID), b)
	})
}

// Get returns the status of job id.
func (s *JobStore) Get(id string) (Status, error) {
	var st Status
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs).Get([]byte(id))
		if b == nil {
			return errors.NewErrNotFound("job " + id)
		}
		return json.Unmarshal(b, &st)
	})
	return st, err
}

// List returns every stored status, oldest first.
func (s *JobStore) List() ([]Status, error) {
	var out []Status
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJobs).ForEach(func(_, v []byte) error {
			var st Status
			if err := json.Unmarshal(v, &st); err != nil {
				return err
			}
			out = append(out, st)
			return nil
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out, errors.Wrap(err, "listing jobs")
}
