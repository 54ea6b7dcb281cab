package hass

import (
	"github.com/nlowe/rfmbridge/mqtt"
)

// PowerState represents generic on/off state for binary sensors. For a door sensor PowerStateOn means open.
type PowerState string

var (
	PowerStateMarshaler mqtt.ValueMarshaler[PowerState] = func(v PowerState) ([]byte, error) {
		return mqtt.StringMarshaler(string(v))
	}
)

const (
	PowerStateOn  PowerState = "ON"
	PowerStateOff PowerState = "OFF"
)

// PowerStateOf maps a boolean to PowerStateOn or PowerStateOff.
func PowerStateOf(on bool) PowerState {
	if on {
		return PowerStateOn
	}

	return PowerStateOff
}
