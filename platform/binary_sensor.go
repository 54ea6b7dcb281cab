package platform

import (
	"encoding/json/jsontext"
	"errors"
	"time"

	"github.com/nlowe/rfmbridge/discovery"
	"github.com/nlowe/rfmbridge/hass"
	"github.com/nlowe/rfmbridge/mqtt"
)

// BinarySensor is a Sensor that uses hass.PowerState for its state type (i.e. hass.PowerStateOn or hass.PowerStateOff).
// Units, precision and state class do not apply to binary sensors and are never emitted.
//
// See https://www.home-assistant.io/integrations/binary_sensor.mqtt/ for complete documentation.
type BinarySensor[TAttributes any] struct {
	Sensor[hass.PowerState, TAttributes]

	// For sensors that only send on state updates (like PIRs), this variable sets a delay after which the sensor's state
	// will be updated back to off by Home Assistant.
	OffDelay time.Duration
}

func (s *BinarySensor[TAttributes]) PlatformName() string {
	return "binary_sensor"
}

// NewBinarySensor constructs a BinarySensor for the provided state and (optional) attributes.
func NewBinarySensor[TAttributes any](state *mqtt.Value[hass.PowerState], attrs *mqtt.Value[TAttributes]) *BinarySensor[TAttributes] {
	return &BinarySensor[TAttributes]{
		Sensor: Sensor[hass.PowerState, TAttributes]{
			State:      state,
			Attributes: attrs,
		},
	}
}

func (s *BinarySensor[TAttributes]) MarshalDiscoveryTo(e *jsontext.Encoder, prefix string) error {
	return errors.Join(
		discovery.MaybeMarshalStdComparable(e, discovery.FieldExpireMeasurementsAfter, s.ExpireMeasurementsAfter),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldForceUpdate, s.ForceUpdate),
		discovery.MaybeMarshalValueTopic(e, discovery.FieldAttributesTopic, s.Attributes, prefix),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldDeviceClass, s.DeviceClass),
		discovery.MarshalRequiredValueTopic("state", e, discovery.FieldStateTopic, s.State, prefix),
		discovery.MarshalStdComparable("payload_on", e, discovery.FieldPayloadOn, hass.PowerStateOn),
		discovery.MarshalStdComparable("payload_off", e, discovery.FieldPayloadOff, hass.PowerStateOff),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldOffDelay, s.OffDelay),
	)
}
