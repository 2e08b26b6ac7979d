// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package notify tells a downstream ingester that an upsert file is ready.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/logger"
	segmentio "github.com/segmentio/kafka-go"
)

// Message announces a published upsert file. All values are strings on
// the wire, including IsUpsert.
type Message struct {
	WorkspaceID string `json:"workspaceId"`
	UserEmail   string `json:"userEmail"`
	JobID       string `json:"jobId"`
	UpsertFile  string `json:"upsertFile"`
	IsUpsert    string `json:"isUpsert"`
}

// Notifier delivers Messages.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// messageWriter is the part of *segmentio.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...segmentio.Message) error
	Close() error
}

// Kafka publishes each Message as JSON on a topic, keyed by job id.
type Kafka struct {
	w           messageWriter
	log         logger.Logger
	interval    time.Duration
	maxInterval time.Duration
}

// KafkaOption configures a Kafka notifier.
type KafkaOption func(*Kafka)

func OptKafkaLogger(l logger.Logger) KafkaOption {
	return func(k *Kafka) { k.log = l }
}

// OptKafkaBackoff sets the first and the largest wait between retries of
// temporary write errors.
func OptKafkaBackoff(interval, maxInterval time.Duration) KafkaOption {
	return func(k *Kafka) { k.interval, k.maxInterval = interval, maxInterval }
}

func optKafkaWriter(w messageWriter) KafkaOption {
	return func(k *Kafka) { k.w = w }
}

// NewKafka returns a notifier writing to topic on the given brokers.
func NewKafka(brokers []string, topic string, opts ...KafkaOption) *Kafka {
	k := &Kafka{
		log:         logger.NopLogger,
		interval:    100 * time.Millisecond,
		maxInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.w == nil {
		k.w = &segmentio.Writer{
			Addr:         segmentio.TCP(brokers...),
			Topic:        topic,
			Balancer:     &segmentio.Hash{},
			RequiredAcks: segmentio.RequireAll,
		}
	}
	return k
}

func (k *Kafka) Notify(ctx context.Context, m Message) error {
	value, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	msg := segmentio.Message{Key: []byte(m.JobID), Value: value}
	return writeWithBackoff(ctx, k.w, k.log.Warnf, k.interval, k.maxInterval, msg)
}

func (k *Kafka) Close() error {
	return k.w.Close()
}

func writeWithBackoff(ctx context.Context, writer messageWriter, log func(string, ...interface{}), interval, maxInterval time.Duration, messages ...segmentio.Message) error {
	var berr error
	tries := 0
retry:
	for {
		tries++
		err := writer.WriteMessages(ctx, messages...)
		switch err := err.(type) {
		case nil:
			return nil

		case segmentio.Error:
			berr = err
			if !err.Temporary() {
				break retry
			}

		case segmentio.WriteErrors:
			var remaining []segmentio.Message
			for i, m := range messages {
				switch err := err[i].(type) {
				case nil:
					continue

				case segmentio.Error:
					if err.Temporary() {
						remaining = append(remaining, m)
						continue
					}
				}

				return errors.Wrap(err, "failed to deliver notification")
			}

			messages = remaining
			berr = err

		default:
			if berr == nil || err != context.DeadlineExceeded {
				berr = err
			}
			break retry
		}

		log("temporary notification write error: %v", err)

		interval *= 2
		if interval > maxInterval {
			interval = maxInterval
		}
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			break retry
		}
	}

	return errors.Wrapf(berr, "failed to deliver notification after %d tries", tries)
}

// Recorder keeps every Message it is given. It is used when no broker is
// configured and in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	log      logger.Logger
}

func NewRecorder(log logger.Logger) *Recorder {
	if log == nil {
		log = logger.NopLogger
	}
	return &Recorder{log: log}
}

func (r *Recorder) Notify(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	r.log.Infof("upsert file %s ready for job %s", m.UpsertFile, m.JobID)
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
