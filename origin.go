package rfmbridge

import "net/url"

// Origin provides information about the software providing devices over MQTT to Home Assistant. See the documentation
// for Device.Origin for details.
type Origin struct {
	// The name of the application that is the origin of the discovered MQTT item.
	Name string `json:"name"`
	// Software version of the application that supplies the discovered MQTT item.
	SoftwareVersion string `json:"sw,omitempty"`
	// Support URL of the application that supplies the discovered MQTT item.
	SupportURL *url.URL `json:"url,omitempty"`
}

// Version is reported to Home Assistant as the origin software version. It is overridden at build time with
// -ldflags "-X github.com/nlowe/rfmbridge.Version=...".
var Version = "dev"

var (
	supportURL, _ = url.Parse("https://github.com/nlowe/rfmbridge")

	// DefaultOrigin is used by Device.Configure for devices that do not set an Origin.
	DefaultOrigin = Origin{
		Name:            "rfmbridge",
		SoftwareVersion: Version,
		SupportURL:      supportURL,
	}
)
