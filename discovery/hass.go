package discovery

import (
	"github.com/nlowe/rfmbridge/hass"
	"github.com/nlowe/rfmbridge/mqtt"
)

const (
	// DefaultPrefix is the MQTT Topic Prefix that Home Assistant looks for discovery payloads under
	DefaultPrefix = "homeassistant"
	// StatusTopic is the MQTT Topic that Home Assistant publishes hass.Availability state to for itself.
	StatusTopic = "status"
)

// HomeAssistantAvailability constructs a mqtt.RemoteValue that monitors Home Assistant's availability topic. Watch this
// value to be notified when Home Assistant restarts and needs discovery payloads again.
//
// See https://www.home-assistant.io/integrations/mqtt/#birth-and-last-will-messages.
func HomeAssistantAvailability(discoveryPrefix string) *mqtt.RemoteValue[hass.Availability] {
	return mqtt.NewRemoteValue(mqtt.JoinTopic(discoveryPrefix, StatusTopic), hass.AvailabilityUnmarshaler)
}

// DeviceConfigTopic returns the topic a device discovery payload for the device with the given id is published to.
func DeviceConfigTopic(discoveryPrefix, id string) string {
	return mqtt.JoinTopic(discoveryPrefix, "device", IDSanitizer.Replace(id), "config")
}
