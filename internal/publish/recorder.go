package publish

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is an in-memory Publisher for tests and dry runs. It records every
// publish and can be told to fail specific topics.
type Recorder struct {
	mu        sync.Mutex
	messages  []RecordedMessage
	failTopic map[string]bool
}

// RecordedMessage is one accepted publish call.
type RecordedMessage struct {
	Topic   string
	Payload []byte
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{failTopic: make(map[string]bool)}
}

// FailTopic makes subsequent publishes to topic return an error.
func (r *Recorder) FailTopic(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failTopic[topic] = true
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, topic string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTopic[topic] {
		return fmt.Errorf("publish %s: broker rejected", topic)
	}
	r.messages = append(r.messages, RecordedMessage{Topic: topic, Payload: payload})
	return nil
}

// Messages returns a copy of the accepted publishes in order.
func (r *Recorder) Messages() []RecordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedMessage, len(r.messages))
	copy(out, r.messages)
	return out
}
