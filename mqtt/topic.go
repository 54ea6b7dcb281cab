package mqtt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTopic is returned by ValidateTopic for topics that cannot be published to.
var ErrInvalidTopic = errors.New("invalid topic")

const (
	TopicSeparator = "/"

	// SingleLevelWildcard matches exactly one topic level in a subscription filter.
	SingleLevelWildcard = "+"
	// MultiLevelWildcard matches any number of trailing topic levels in a subscription filter.
	MultiLevelWildcard = "#"
)

// TrimTopic trims TopicSeparator from the start and end of the specified topic.
func TrimTopic(topic string) string {
	return strings.Trim(topic, TopicSeparator)
}

// JoinTopic joins non-empty component parts with TopicSeparator, trimming each part as it is appended.
func JoinTopic(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = TrimTopic(part)
		if part == "" {
			continue
		}

		kept = append(kept, part)
	}

	return strings.Join(kept, TopicSeparator)
}

// SplitTopic splits a trimmed topic into its levels. The empty topic has no levels.
func SplitTopic(topic string) []string {
	topic = TrimTopic(topic)
	if topic == "" {
		return nil
	}

	return strings.Split(topic, TopicSeparator)
}

// CutTopicPrefix removes prefix from topic if topic is prefix itself or lives underneath it, returning the remaining
// levels. Matching happens on whole levels, so "a/bc" is not underneath "a/b".
func CutTopicPrefix(topic, prefix string) ([]string, bool) {
	levels, prefixLevels := SplitTopic(topic), SplitTopic(prefix)
	if len(levels) < len(prefixLevels) {
		return nil, false
	}

	for i, p := range prefixLevels {
		if levels[i] != p {
			return nil, false
		}
	}

	return levels[len(prefixLevels):], true
}

// MatchTopic reports whether topic matches the subscription filter, honouring SingleLevelWildcard and
// MultiLevelWildcard.
func MatchTopic(filter, topic string) bool {
	filterLevels, levels := SplitTopic(filter), SplitTopic(topic)

	for i, f := range filterLevels {
		if f == MultiLevelWildcard {
			return true
		}

		if i >= len(levels) {
			return false
		}

		if f != SingleLevelWildcard && f != levels[i] {
			return false
		}
	}

	return len(filterLevels) == len(levels)
}

// ValidateTopic checks that topic (or a prefix of one) can be published to. Wildcards are only valid in subscription
// filters.
func ValidateTopic(topic string) error {
	if strings.ContainsAny(topic, SingleLevelWildcard+MultiLevelWildcard) {
		return fmt.Errorf("%w: %q: wildcards are not allowed", ErrInvalidTopic, topic)
	}

	return nil
}
