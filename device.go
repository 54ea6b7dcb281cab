package rfmbridge

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nlowe/rfmbridge/discovery"
	"github.com/nlowe/rfmbridge/mqtt"
)

const (
	// Manufacturer is reported for gateways and nodes.
	Manufacturer = "RFM"

	// ConnectionMAC is the DeviceConnection kind Home Assistant uses for network MAC addresses.
	ConnectionMAC = "mac"
)

var (
	// ErrInvalidDevice is the error returned by Device.Configure and Device.Valid if it is not properly configured.
	ErrInvalidDevice = errors.New("device must have at least one identifying value in 'identifiers' and/or 'connections'")
	// ErrNoComponents is the error returned by Device.Configure when no components are provided. Home Assistant
	// ignores device discovery payloads without components.
	ErrNoComponents = errors.New("device must have at least one component")
)

// DeviceConnection maps this Device to the outside world. For example:
//
//	DeviceConnection{
//	    Kind: ConnectionMAC,
//	    Value: "02:5b:26:a8:dc:12",
//	}
//
// It implements fmt.Stringer and slog.LogValuer
type DeviceConnection struct {
	Kind  string
	Value string
}

func (d DeviceConnection) String() string {
	return fmt.Sprintf("[%q,%q]", d.Kind, d.Value)
}

func (d DeviceConnection) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", d.Kind),
		slog.String("value", d.Value),
	)
}

func (d DeviceConnection) MarshalJSONTo(e *jsontext.Encoder) error {
	return errors.Join(
		e.WriteToken(jsontext.BeginArray),
		e.WriteToken(jsontext.String(d.Kind)),
		e.WriteToken(jsontext.String(d.Value)),
		e.WriteToken(jsontext.EndArray),
	)
}

// Device represents an MQTT-based HomeAssistant device: a gateway or one of the nodes behind it. In the Home Assistant
// MQTT Integration, a Device is a collection of "Components" (entities). This relationship is only constructed when
// marshaling the discovery payload to the MQTT Broker.
//
// See https://www.home-assistant.io/integrations/mqtt/#device-discovery-payload
type Device struct {
	// The ID to use for discovery. If empty, an ID is calculated from Identifiers and Name.
	DiscoveryID string `json:"-"`

	// The name of the device.
	Name string `json:"name,omitempty"`

	// The manufacturer of the device.
	Manufacturer string `json:"mf,omitempty"`

	// The model of the device.
	Model string `json:"mdl,omitempty"`

	// A list of connections of the device to the outside world. For example, `[]DeviceConnection{{Kind: "mac", Value: "02:5b:26:a8:dc:12"]}}`
	Connections []DeviceConnection `json:"cns,omitempty"`

	// A list of IDs that uniquely identify the device.
	Identifiers []string `json:"ids,omitempty"`

	// Suggest an area if the device isn't in one yet
	SuggestedArea string `json:"sa,omitempty"`

	// Home Assistant requires origin information be specified when using Device-based Discovery. If omitted,
	// DefaultOrigin will be used when serializing the discovery payload instead.
	Origin *Origin `json:"-"`

	// Identifier of a device that routes messages between this device and Home Assistant. Nodes set this to the
	// identifier of their gateway so Home Assistant can show the topology.
	ViaDevice string `json:"via_device,omitempty"`
}

// ID calculates an identifier for this device. If the Device.DiscoveryID is specified, that value will be used.
// Otherwise, all Device.Identifiers followed by Device.Name are sanitized and joined with discovery.IDSep.
func (d *Device) ID() string {
	if d.DiscoveryID != "" {
		return d.DiscoveryID
	}

	parts := make([]string, 0, len(d.Identifiers)+1)
	for _, ident := range d.Identifiers {
		parts = append(parts, discovery.IDSanitizer.Replace(ident))
	}

	if d.Name != "" {
		parts = append(parts, discovery.IDSanitizer.Replace(d.Name))
	}

	return strings.Join(parts, discovery.IDSep)
}

// Valid checks if this Device is configured appropriately. Home Assistant requires at least one value be configured for
// Device.Identifiers, or at least one value be configured for Device.Connections.
func (d *Device) Valid() error {
	if len(d.Identifiers) == 0 && len(d.Connections) == 0 {
		return ErrInvalidDevice
	}

	return nil
}

// Configure publishes the retained device discovery payload for this device and the provided components, keyed by the
// component's object id.
//
// The device must pass validation performed by Device.Valid.
func (d *Device) Configure(ctx context.Context, w mqtt.Writer, discoveryPrefix string, components map[string]json.MarshalerTo) error {
	if err := d.Valid(); err != nil {
		return err
	}

	if len(components) == 0 {
		return ErrNoComponents
	}

	var buf bytes.Buffer
	e := jsontext.NewEncoder(
		&buf,
		jsontext.CanonicalizeRawInts(true),
		jsontext.CanonicalizeRawFloats(true),
	)

	err := errors.Join(
		e.WriteToken(jsontext.BeginObject),

		discovery.MarshalStd("device", e, discovery.FieldDevice, d),
		discovery.MarshalStd("origin", e, discovery.FieldOrigin, cmp.Or(d.Origin, &DefaultOrigin)),

		e.WriteToken(jsontext.String(discovery.FieldComponents)),
		e.WriteToken(jsontext.BeginObject),

		discovery.MaybeInlineMarshalStd(e, components),

		e.WriteToken(jsontext.EndObject),
		e.WriteToken(jsontext.EndObject),
	)

	if err != nil {
		return fmt.Errorf("configure %s: marshal discovery config: %w", d.ID(), err)
	}

	return w.WriteTopic(ctx, discovery.DeviceConfigTopic(discoveryPrefix, d.ID()), mqtt.WriteOptions{Retain: true}, buf.Bytes())
}
