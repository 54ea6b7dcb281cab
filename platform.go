package rfmbridge

import (
	"encoding/json/jsontext"
)

// Platform is a Home Assistant MQTT entity platform. Package platform provides the sensor and binary_sensor platforms
// used for node quantities.
type Platform interface {
	// MarshalDiscoveryTo writes the platform specific discovery fields into the component object currently open on e.
	// Topics are qualified with prefix.
	MarshalDiscoveryTo(e *jsontext.Encoder, prefix string) error

	// PlatformName is the `p` field of the component, e.g. "sensor".
	PlatformName() string
}
