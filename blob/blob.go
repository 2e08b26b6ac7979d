// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package blob opens import inputs by location (local path, file://, http(s)://
// or s3://) and stores output blobs in a directory or an s3 bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	jobcontext "github.com/featurebasedb/recordimport/context"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/tracing"
	"github.com/hashicorp/go-retryablehttp"
)

// Fetcher opens input streams by location.
type Fetcher struct {
	s3     s3iface.S3API
	http   *retryablehttp.Client
	logger logger.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// OptFetcherS3 sets the client used for s3:// locations.
func OptFetcherS3(c s3iface.S3API) FetcherOption {
	return func(f *Fetcher) { f.s3 = c }
}

func OptFetcherLogger(l logger.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// OptFetcherRetries sets the number of retries and the minimum wait between
// attempts for http(s) locations.
func OptFetcherRetries(max int, minWait time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.http.RetryMax = max
		f.http.RetryWaitMin = minWait
		if f.http.RetryWaitMax < minWait {
			f.http.RetryWaitMax = minWait
		}
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = 4
	f := &Fetcher{http: c, logger: logger.NopLogger}
	for _, opt := range opts {
		opt(f)
	}
	c.Logger = debugLogger{f.logger}
	return f
}

// debugLogger sends the http client's retry chatter to the debug level.
type debugLogger struct{ l logger.Logger }

func (d debugLogger) Printf(format string, v ...interface{}) { d.l.Debugf(format, v...) }

// Open returns a stream for location. A missing file or object is reported
// with code errors.ErrNotFound.
func (f *Fetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		return f.openS3(ctx, location)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return f.openHTTP(ctx, location)
	case strings.HasPrefix(location, "file://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing file URL %v", location)
		}
		return openFile(u.Path)
	}
	return openFile(location)
}

// ReadAll reads the whole of location into memory.
func (f *Fetcher) ReadAll(ctx context.Context, location string) ([]byte, error) {
	rc, err := f.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", location)
	}
	return b, nil
}

func openFile(name string) (io.ReadCloser, error) {
	fh, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewErrNotFound(name)
		}
		return nil, errors.Wrapf(err, "opening file %v", name)
	}
	return fh, nil
}

func (f *Fetcher) openHTTP(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %v", location)
	}
	if token, ok := jobcontext.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	tracing.GlobalTracer.InjectHTTPHeaders(req.Request)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "getting via http")
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, errors.NewErrNotFound(location)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, errors.Errorf("got status %d getting %v", resp.StatusCode, location)
	}
	return resp.Body, nil
}

func (f *Fetcher) openS3(ctx context.Context, location string) (io.ReadCloser, error) {
	if f.s3 == nil {
		return nil, errors.New(errors.ErrUncoded, "missing s3 client")
	}
	bucket, key, err := splitS3(location)
	if err != nil {
		return nil, err
	}
	result, err := f.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey:
				return nil, errors.NewErrNotFound(location)
			}
		}
		return nil, errors.Wrapf(err, "fetching S3 object %v", location)
	}
	return result.Body, nil
}

func splitS3(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", errors.Wrapf(err, "parsing S3 URL %v", location)
	}
	if u.Host == "" || len(u.Path) < 2 {
		return "", "", errors.Errorf("S3 URL %v needs a bucket and a key", location)
	}
	return u.Host, u.Path[1:], nil
}

// Resolve interprets ref relative to base, the location of the document
// ref was found in. Absolute locations are returned unchanged.
func Resolve(base, ref string) string {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "/") {
		return ref
	}
	if strings.Contains(base, "://") {
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		u.Path = path.Join(path.Dir(u.Path), ref)
		u.RawQuery = ""
		return u.String()
	}
	return path.Join(path.Dir(base), ref)
}

// NewS3Client returns an s3 client for region, optionally talking to a
// non-AWS endpoint with path-style addressing.
func NewS3Client(region, endpoint string) (s3iface.S3API, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating aws session")
	}
	return s3.New(sess), nil
}

// Store writes named blobs and returns a locator for each.
type Store interface {
	Put(ctx context.Context, name string, body io.ReadSeeker) (string, error)
}

// NewStore returns a Store for location, either "s3://bucket/prefix" or a
// local directory.
func NewStore(location string, client s3iface.S3API) (Store, error) {
	if strings.HasPrefix(location, "s3://") {
		if client == nil {
			return nil, errors.New(errors.ErrUncoded, "missing s3 client")
		}
		u, err := url.Parse(location)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing S3 URL %v", location)
		}
		return &S3Store{Client: client, Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}, nil
	}
	if location == "" {
		return nil, errors.New(errors.ErrUncoded, "blob location is empty")
	}
	return &DirStore{Dir: location}, nil
}

// DirStore keeps blobs as files in a directory.
type DirStore struct {
	Dir string
}

func (d *DirStore) Put(ctx context.Context, name string, body io.ReadSeeker) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %v", d.Dir)
	}
	p := path.Join(d.Dir, name)
	fh, err := os.Create(p)
	if err != nil {
		return "", errors.Wrapf(err, "creating %v", p)
	}
	if _, err := io.Copy(fh, body); err != nil {
		fh.Close()
		return "", errors.Wrapf(err, "writing %v", p)
	}
	if err := fh.Close(); err != nil {
		return "", errors.Wrapf(err, "closing %v", p)
	}
	return p, nil
}

// S3Store keeps blobs as objects under a bucket prefix.
type S3Store struct {
	Client s3iface.S3API
	Bucket string
	Prefix string
}

func (s *S3Store) Put(ctx context.Context, name string, body io.ReadSeeker) (string, error) {
	key := name
	if s.Prefix != "" {
		key = s.Prefix + "/" + name
	}
	_, err := s.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", errors.Wrapf(err, "putting S3 object %v", key)
	}
	return fmt.Sprintf("%s/%s", s.Bucket, key), nil
}
