package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidFilter is returned by Subscription.Validate for malformed topic filters.
var ErrInvalidFilter = errors.New("invalid topic filter")

// Subscription is a topic filter plus the options to subscribe with. It implements fmt.Stringer and slog.LogValuer.
type Subscription struct {
	Topic   string
	Options ReadOptions
}

func (s Subscription) String() string {
	return s.Topic
}

func (s Subscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("topic", s.Topic),
		slog.Any("options", s.Options),
	)
}

// Validate checks the filter against the MQTT wildcard rules: it must not be empty, '+' must occupy a whole level and
// '#' must be the whole last level.
func (s Subscription) Validate() error {
	if s.Topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilter)
	}

	levels := strings.Split(s.Topic, TopicSeparator)
	for i, level := range levels {
		switch {
		case level == MultiLevelWildcard && i != len(levels)-1:
			return fmt.Errorf("%w: %q: %s must be the last level", ErrInvalidFilter, s.Topic, MultiLevelWildcard)
		case level != MultiLevelWildcard && strings.Contains(level, MultiLevelWildcard),
			level != SingleLevelWildcard && strings.Contains(level, SingleLevelWildcard):
			return fmt.Errorf("%w: %q: wildcards must occupy a whole level", ErrInvalidFilter, s.Topic)
		}
	}

	return nil
}

// Handler is the MQTT equivalent to http.Handler. The bridge implements it for node frames and RemoteValue implements it
// for the Home Assistant status topic.
//
// Handlers do not return errors. The transport delivers the next message only after the handler returns, so handlers
// must not block for long. Writes go through the provided writer. The message slice must not be retained.
type Handler interface {
	ServeMQTT(w Writer, topic string, message []byte)
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(Writer, string, []byte)

func (f HandlerFunc) ServeMQTT(w Writer, topic string, message []byte) {
	f(w, topic, message)
}

// Subscriber manages MQTT Subscriptions.
type Subscriber interface {
	// Subscribe routes messages matching any of subscriptions to handler. Implementations reject subscriptions that
	// fail Subscription.Validate.
	Subscribe(ctx context.Context, handler Handler, subscriptions ...Subscription) error

	// Unsubscribe removes any subscriptions configured for the specified topic filters.
	Unsubscribe(ctx context.Context, topics ...string) error
}
