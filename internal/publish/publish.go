// Package publish hands merged phase records to the message broker and keeps
// per-folder outcome bookkeeping.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"sindanrelay/internal/phase"
)

// Publisher is the broker capability the pipeline depends on. The real
// implementation is MQTT; tests use a Recorder.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Topic returns the phase topic {base}/{host}/phase{n}.
func Topic(base, host string, n int) string {
	return fmt.Sprintf("%s/%s/phase%d", base, host, n)
}

// Hostname returns the machine's network name, used in topics and archive
// names. Falls back to a fixed placeholder when the OS call fails.
func Hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown-host"
	}
	return host
}

// Outcome is the result of publishing one phase of one run folder.
type Outcome struct {
	Phase int
	Topic string
	Err   error
}

// Published reports whether the broker accepted the publish call.
func (o Outcome) Published() bool { return o.Err == nil }

// Reports publishes each merged report under its phase topic and returns one
// outcome per report, in input order. A failed publish is recorded, not
// retried; retry happens by re-running the pipeline against the still-unsent
// folder.
func Reports(ctx context.Context, pub Publisher, base, host string, reports []*phase.Report) []Outcome {
	outcomes := make([]Outcome, 0, len(reports))
	for _, rep := range reports {
		topic := Topic(base, host, rep.Phase)
		payload, err := json.Marshal(rep)
		if err == nil {
			err = pub.Publish(ctx, topic, payload)
		}
		outcomes = append(outcomes, Outcome{Phase: rep.Phase, Topic: topic, Err: err})
	}
	return outcomes
}

// AllPublished reports whether every phase outcome succeeded. Only then is
// the folder eligible for archival.
func AllPublished(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Published() {
			return false
		}
	}
	return true
}
