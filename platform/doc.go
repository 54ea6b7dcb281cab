// Package platform contains the Home Assistant MQTT platforms rfmbridge publishes node entities with. See the Home
// Assistant docs for the full list of platforms: https://www.home-assistant.io/integrations/mqtt.
//
// Each platform implementation satisfies the rfmbridge.Platform interface. The PlatformName method returns the Home
// Assistant platform name (e.g. Sensor's PlatformName method returns the string "sensor").
//
// Not all fields for a given platform are required by Home Assistant. Required fields are tagged with
// `rfm:"required"` and checked when marshaling for discovery.
package platform
