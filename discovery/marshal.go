package discovery

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"maps"
	"math"
	"net/url"
	"slices"
	"time"

	"github.com/nlowe/rfmbridge/mqtt"
)

var (
	// ErrValueRequired is the error returned by marshal functions for values that hold the type's associated Zero value
	// when marshaling the discovery payload.
	ErrValueRequired = errors.New("value is required")
	// ErrTopicRequired is the error returned by MarshalRequiredTopic and MarshalRequiredValueTopic when the provided
	// topic is empty (usually because the required value is nil).
	ErrTopicRequired = errors.New("topic is required")

	// Marshalers renders standard library types the way discovery payloads expect them.
	Marshalers = json.JoinMarshalers(
		json.MarshalToFunc[*url.URL](func(e *jsontext.Encoder, u *url.URL) error {
			return e.WriteToken(jsontext.String(u.String()))
		}),
		// Durations are whole seconds, rounded up so a short positive expiry never becomes 0 (never expire).
		json.MarshalToFunc[time.Duration](func(e *jsontext.Encoder, t time.Duration) error {
			return e.WriteToken(jsontext.Int(int64(math.Ceil(t.Seconds()))))
		}),
	)
)

// MarshalRequiredTopic encodes the topic for the discovery payload being built. It returns ErrTopicRequired if the
// topic is the empty string.
func MarshalRequiredTopic(name string, e *jsontext.Encoder, k string, topic string) error {
	if topic == "" {
		return fmt.Errorf("%s: %w", name, ErrTopicRequired)
	}

	return MaybeMarshalTopic(e, k, topic)
}

// MarshalRequiredValueTopic encodes the topic for the provided mqtt.Value. It returns ErrTopicRequired if the value is
// nil or has no configured topic.
func MarshalRequiredValueTopic[T any](name string, e *jsontext.Encoder, k string, v *mqtt.Value[T], prefix string) error {
	return MarshalRequiredTopic(name, e, k, v.FullyQualifiedTopic(prefix))
}

// MaybeMarshalTopic encodes the topic for the discovery payload being built if the topic string is not empty.
func MaybeMarshalTopic(e *jsontext.Encoder, k string, topic string) error {
	if topic == "" {
		return nil
	}

	return errors.Join(
		e.WriteToken(jsontext.String(k)),
		e.WriteToken(jsontext.String(topic)),
	)
}

// MaybeMarshalValueTopic encodes the topic for the provided mqtt.Value if the topic string is not empty.
func MaybeMarshalValueTopic[T any](e *jsontext.Encoder, k string, v *mqtt.Value[T], prefix string) error {
	return MaybeMarshalTopic(e, k, v.FullyQualifiedTopic(prefix))
}

// MarshalStd marshals the specified value using json.MarshalEncode with Marshalers. If the provided value is nil, it
// returns ErrValueRequired.
func MarshalStd[T any](name string, e *jsontext.Encoder, k string, v *T) error {
	if v == nil {
		return fmt.Errorf("%s: %w", name, ErrValueRequired)
	}

	return MaybeMarshalStd(e, k, v)
}

// MaybeMarshalStd marshals the provided value using json.MarshalEncode with Marshalers if it is not nil.
func MaybeMarshalStd[T any](e *jsontext.Encoder, k string, v *T) error {
	if v == nil {
		return nil
	}

	return errors.Join(
		e.WriteToken(jsontext.String(k)),
		json.MarshalEncode(e, v, json.WithMarshalers(Marshalers)),
	)
}

// MarshalStdComparable marshals the provided value using Marshalers. If it is equal to the type's zero value, it
// returns ErrValueRequired.
func MarshalStdComparable[T comparable](name string, e *jsontext.Encoder, k string, v T) error {
	var defaultT T
	if v == defaultT {
		return fmt.Errorf("%s: %w", name, ErrValueRequired)
	}

	return MaybeMarshalStd(e, k, &v)
}

// MaybeMarshalStdComparable marshals the provided value using Marshalers if it is not equal to the type's zero value.
func MaybeMarshalStdComparable[T comparable](e *jsontext.Encoder, k string, v T) error {
	var defaultT T
	if v == defaultT {
		return nil
	}

	return MaybeMarshalStd(e, k, &v)
}

// MaybeInlineMarshalStd marshals the provided map of values inline (without emitting jsontext.BeginObject and
// jsontext.EndObject tokens) using map keys for string tokens and json.MarshalEncode with Marshalers to marshal the
// values. Keys are emitted in sorted order so retained payloads are stable between runs.
func MaybeInlineMarshalStd[T any, TMap ~map[string]T](e *jsontext.Encoder, v TMap) error {
	if len(v) == 0 {
		return nil
	}

	var err error
	for _, vk := range slices.Sorted(maps.Keys(v)) {
		err = errors.Join(
			err,
			e.WriteToken(jsontext.String(vk)),
			json.MarshalEncode(e, v[vk], json.WithMarshalers(Marshalers)),
		)
	}

	return err
}
