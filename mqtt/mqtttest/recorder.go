// Package mqtttest provides an in-memory mqtt.Writer and mqtt.Subscriber for tests.
package mqtttest

import (
	"context"
	"slices"
	"sync"

	"github.com/nlowe/rfmbridge/mqtt"
)

// Message is a single publish captured by a Recorder.
type Message struct {
	Topic   string
	Options mqtt.WriteOptions
	Payload []byte
}

// Recorder implements mqtt.Writer and mqtt.Subscriber by keeping everything in memory. Messages written to a Recorder
// are delivered to matching subscriptions as well, so Home Assistant traffic can be simulated with Deliver.
type Recorder struct {
	mu sync.Mutex

	// Err, when set, is returned by every WriteTopic call. The message is still recorded.
	Err error

	messages      []Message
	subscriptions map[string]mqtt.Handler
}

var (
	_ mqtt.Writer     = &Recorder{}
	_ mqtt.Subscriber = &Recorder{}
)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{subscriptions: map[string]mqtt.Handler{}}
}

func (r *Recorder) WriteTopic(_ context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, Message{Topic: topic, Options: options, Payload: slices.Clone(value)})
	return r.Err
}

func (r *Recorder) Subscribe(_ context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range subscriptions {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	for _, s := range subscriptions {
		r.subscriptions[s.Topic] = handler
	}

	return nil
}

func (r *Recorder) Unsubscribe(_ context.Context, topics ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range topics {
		delete(r.subscriptions, t)
	}

	return nil
}

// Deliver routes a message to every handler whose subscription filter matches topic, as a broker would.
func (r *Recorder) Deliver(topic string, payload []byte) {
	r.mu.Lock()
	var handlers []mqtt.Handler
	for filter, h := range r.subscriptions {
		if mqtt.MatchTopic(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h.ServeMQTT(r, topic, payload)
	}
}

// Subscribed reports whether a subscription exists for the exact topic filter.
func (r *Recorder) Subscribed(filter string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.subscriptions[filter]
	return ok
}

// Messages returns a copy of every message written so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.messages)
}

// Topic returns every message written to topic, in order.
func (r *Recorder) Topic(topic string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Message
	for _, m := range r.messages {
		if m.Topic == topic {
			result = append(result, m)
		}
	}

	return result
}

// Last returns the payload most recently written to topic and whether one exists.
func (r *Recorder) Last(topic string) ([]byte, bool) {
	msgs := r.Topic(topic)
	if len(msgs) == 0 {
		return nil, false
	}

	return msgs[len(msgs)-1].Payload, true
}

// Reset forgets all recorded messages but keeps subscriptions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = nil
}
