package rfmbridge

import (
	"encoding/json/jsontext"
	"errors"

	"github.com/nlowe/rfmbridge/discovery"
	"github.com/nlowe/rfmbridge/hass"
	"github.com/nlowe/rfmbridge/mqtt"
)

// Component is one entry of the `cmps` map in a device discovery payload: a node quantity or a gateway diagnostic. It
// implements json.MarshalerTo. Fields tagged `rfm:"required"` fail marshaling when unset.
type Component[TPlatform Platform] struct {
	Platform TPlatform
	// TopicPrefix is prepended to every topic the component publishes on, usually Options.StatePrefix.
	TopicPrefix string

	// Name is the entity name. Empty marshals as null so Home Assistant uses the device name alone.
	Name string

	// See https://developers.home-assistant.io/docs/core/entity/#generic-properties
	EntityCategory hass.EntityCategory
	Icon           string

	// Availability is shared by every component of the bridge.
	Availability *mqtt.Value[hass.Availability] `rfm:"required"`

	// DefaultEntityID is only used the first time Home Assistant sees UniqueID, e.g. `sensor.rfm_node_12_vcc`.
	DefaultEntityID string
	// UniqueID is the entity key, `<gateway id>_<node id>_<quantity>` for node entities.
	UniqueID string `rfm:"required"`

	// WriteOptions are the options states are published with.
	WriteOptions mqtt.WriteOptions
}

func (c *Component[TPlatform]) MarshalJSONTo(e *jsontext.Encoder) error {
	nameToken := jsontext.Null
	if c.Name != "" {
		nameToken = jsontext.String(c.Name)
	}

	return errors.Join(
		e.WriteToken(jsontext.BeginObject),

		discovery.MarshalStdComparable("platform", e, discovery.FieldPlatform, c.Platform.PlatformName()),
		e.WriteToken(jsontext.String(discovery.FieldName)),
		e.WriteToken(nameToken),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldEntityCategory, c.EntityCategory),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldIcon, c.Icon),
		discovery.MarshalRequiredValueTopic("availability", e, discovery.FieldAvailabilityTopic, c.Availability, c.TopicPrefix),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldDefaultEntityID, c.DefaultEntityID),
		discovery.MarshalStdComparable("unique_id", e, discovery.FieldUniqueID, c.UniqueID),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldQoS, c.WriteOptions.QoS),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldRetain, c.WriteOptions.Retain),

		c.Platform.MarshalDiscoveryTo(e, c.TopicPrefix),

		e.WriteToken(jsontext.EndObject),
	)
}
