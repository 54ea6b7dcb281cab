package hass

import (
	"errors"
	"fmt"

	"github.com/nlowe/rfmbridge/mqtt"
)

// ErrUnknownAvailability is returned when parsing a payload that is neither Available nor Unavailable.
var ErrUnknownAvailability = errors.New("unknown availability")

// Availability is published on the bridge availability topic and received on the Home Assistant status topic.
type Availability string

const (
	Available   Availability = "online"
	Unavailable Availability = "offline"
)

var (
	AvailabilityMarshaler mqtt.ValueMarshaler[Availability] = func(v Availability) ([]byte, error) {
		return mqtt.StringMarshaler(string(v))
	}

	// AvailabilityUnmarshaler rejects anything other than "online" or "offline" so a malformed birth message does not
	// trigger a re-announce.
	AvailabilityUnmarshaler mqtt.ValueUnmarshaler[Availability] = func(payload []byte) (Availability, error) {
		v, err := mqtt.StringUnmarshaler(payload)
		if err != nil {
			return "", err
		}

		switch a := Availability(v); a {
		case Available, Unavailable:
			return a, nil
		default:
			return "", fmt.Errorf("%w: %q", ErrUnknownAvailability, v)
		}
	}
)
