package platform

import (
	"encoding/json/jsontext"
	"errors"
	"time"

	"github.com/nlowe/rfmbridge/discovery"
	"github.com/nlowe/rfmbridge/hass"
	"github.com/nlowe/rfmbridge/mqtt"
)

// Sensor implements the sensor.mqtt integration for Home Assistant. The state of this sensor has a type of TValue, and
// attributes for state have a type of TAttributes.
//
// See the Home Assistant documentation for more details: https://www.home-assistant.io/integrations/sensor.mqtt/.
type Sensor[TValue, TAttributes any] struct {
	// If set, the sensor's state becomes unavailable when it is not updated for this long. By default, the sensor's
	// state never expires. Nodes that report on a fixed interval can use this to surface dead batteries.
	ExpireMeasurementsAfter time.Duration

	// Instruct Home Assistant to calculate update events even if the value hasn't changed. Useful if you want to have
	// meaningful value graphs in history.
	ForceUpdate bool

	// Attributes exposes state attributes for this sensor. For standard marshaling, use mqtt.JsonValueMarshaler for the
	// mqtt.ValueMarshaler for this value. Several sensors may share one attributes value.
	Attributes *mqtt.Value[TAttributes]

	// The number of decimals which should be used in the sensor's state after rounding. Nil leaves the choice to Home
	// Assistant; zero is a valid precision.
	SuggestedDisplayPrecision *int

	// The hass.StateClass of the sensor.
	StateClass hass.StateClass

	// The hass.DeviceClass of the sensor.
	DeviceClass hass.DeviceClass

	// The current value of the sensor
	State *mqtt.Value[TValue] `rfm:"required"`

	// Defines the units used by this sensor
	UnitOfMeasurement string
}

func (s *Sensor[TValue, TAttributes]) PlatformName() string {
	return "sensor"
}

func (s *Sensor[TValue, TAttributes]) MarshalDiscoveryTo(e *jsontext.Encoder, prefix string) error {
	return errors.Join(
		discovery.MaybeMarshalStdComparable(e, discovery.FieldExpireMeasurementsAfter, s.ExpireMeasurementsAfter),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldForceUpdate, s.ForceUpdate),
		discovery.MaybeMarshalValueTopic(e, discovery.FieldAttributesTopic, s.Attributes, prefix),
		discovery.MaybeMarshalStd(e, discovery.FieldSuggestedDisplayPrecision, s.SuggestedDisplayPrecision),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldStateClass, s.StateClass),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldDeviceClass, s.DeviceClass),
		discovery.MarshalRequiredValueTopic("state", e, discovery.FieldStateTopic, s.State, prefix),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldUnitOfMeasurement, s.UnitOfMeasurement),
	)
}

// Precision is a helper for populating Sensor.SuggestedDisplayPrecision.
func Precision(decimals int) *int {
	return &decimals
}
