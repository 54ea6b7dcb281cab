package rfmbridge

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strconv"

	"github.com/nlowe/rfmbridge/hass"
	"github.com/nlowe/rfmbridge/mqtt"
	"github.com/nlowe/rfmbridge/payload"
	"github.com/nlowe/rfmbridge/platform"
)

// description is how Home Assistant should present a quantity.
type description struct {
	Name             string
	Category         hass.EntityCategory
	Unit             string
	DeviceClass      hass.DeviceClass
	StateClass       hass.StateClass
	DisplayPrecision int
	// ForceUpdate is set for meters, whose reading often repeats between frames.
	ForceUpdate bool
}

var descriptions = map[payload.Quantity]description{
	payload.QuantityRSSI: {
		Name: "RSSI", Category: hass.EntityCategoryDiagnostic,
		Unit: "dBm", DeviceClass: hass.DeviceClassSignalStrength, StateClass: hass.StateClassMeasurement,
	},
	payload.QuantityVoltage: {
		Name: "Vcc", Category: hass.EntityCategoryDiagnostic,
		Unit: "V", DeviceClass: hass.DeviceClassVoltage, StateClass: hass.StateClassMeasurement, DisplayPrecision: 2,
	},
	payload.QuantityTemperature: {
		Name: "Temperature", Unit: "°C", DeviceClass: hass.DeviceClassTemperature, StateClass: hass.StateClassMeasurement,
		DisplayPrecision: 1,
	},
	payload.QuantityHumidity: {
		Name: "Humidity", Unit: "%", DeviceClass: hass.DeviceClassHumidity, StateClass: hass.StateClassMeasurement,
	},
	payload.QuantityPressure: {
		Name: "Pressure", Unit: "mmHg", DeviceClass: hass.DeviceClassPressure, StateClass: hass.StateClassMeasurement,
	},
	payload.QuantityGasConsumption: {
		Name: "Gas consumption", Unit: "m³", DeviceClass: hass.DeviceClassGas, StateClass: hass.StateClassTotalIncreasing,
		DisplayPrecision: 2, ForceUpdate: true,
	},
	payload.QuantityWaterConsumption: {
		Name: "Water consumption", Unit: "m³", DeviceClass: hass.DeviceClassWater,
		StateClass: hass.StateClassTotalIncreasing, DisplayPrecision: 2, ForceUpdate: true,
	},
	payload.QuantityDoor: {
		Name: "Door", DeviceClass: hass.DeviceClassDoor,
	},
}

// entity is a single Home Assistant entity for one quantity of one node.
type entity struct {
	key      string
	field    payload.Field
	entityID string

	component json.MarshalerTo
	// update publishes a decoded value to the state topic.
	update func(ctx context.Context, w mqtt.Writer, v payload.Value) error
	// republish publishes the last state again. It is a no-op if no state was published yet.
	republish func(ctx context.Context, w mqtt.Writer) error
}

// EntityKey returns the unique key of the entity for quantity q of node nodeID behind gateway g.
func EntityKey(g Gateway, nodeID uint16, q payload.Quantity) string {
	return fmt.Sprintf("%s_%d_%s", g.ID(), nodeID, q)
}

// DefaultEntityID returns the entity id Home Assistant assigns when the entity is first discovered.
func DefaultEntityID(nodeID uint16, f payload.Field) string {
	domain := "sensor"
	if f.Kind == payload.KindBinary {
		domain = "binary_sensor"
	}

	return fmt.Sprintf("%s.rfm_node_%d_%s", domain, nodeID, f.Quantity)
}

func stateTopic(g Gateway, nodeID uint16, q payload.Quantity) string {
	return mqtt.JoinTopic(g.ID(), strconv.Itoa(int(nodeID)), string(q))
}

func newEntity(n *node, f payload.Field, opts Options) *entity {
	d := descriptions[f.Quantity]
	e := &entity{
		key:      EntityKey(n.Gateway, n.ID, f.Quantity),
		field:    f,
		entityID: DefaultEntityID(n.ID, f),
	}

	topic := stateTopic(n.Gateway, n.ID, f.Quantity)
	writeOptions := mqtt.WriteOptions{QoS: opts.QoS, Retain: true}

	if f.Kind == payload.KindBinary {
		state := mqtt.NewValueWithOptions(topic, hass.PowerStateMarshaler, writeOptions)

		p := platform.NewBinarySensor(state, n.attributes)
		p.DeviceClass = d.DeviceClass
		p.ExpireMeasurementsAfter = opts.ExpireAfter

		e.component = e.wrap(p, d, n, opts)
		e.update = func(ctx context.Context, w mqtt.Writer, v payload.Value) error {
			return mqtt.Error(state.Write(ctx, w, opts.StatePrefix, hass.PowerStateOf(v.On())))
		}
		e.republish = func(ctx context.Context, w mqtt.Writer) error {
			return ignoreNeverWritten(mqtt.Error(state.Republish(ctx, w, opts.StatePrefix)))
		}

		return e
	}

	state := mqtt.NewValueWithOptions(topic, mqtt.StringMarshaler, writeOptions)

	p := &platform.Sensor[string, nodeAttributes]{
		ExpireMeasurementsAfter:   opts.ExpireAfter,
		ForceUpdate:               d.ForceUpdate,
		Attributes:                n.attributes,
		SuggestedDisplayPrecision: platform.Precision(d.DisplayPrecision),
		StateClass:                d.StateClass,
		DeviceClass:               d.DeviceClass,
		State:                     state,
		UnitOfMeasurement:         d.Unit,
	}

	e.component = e.wrap(p, d, n, opts)
	e.update = func(ctx context.Context, w mqtt.Writer, v payload.Value) error {
		return mqtt.Error(state.Write(ctx, w, opts.StatePrefix, v.Text))
	}
	e.republish = func(ctx context.Context, w mqtt.Writer) error {
		return ignoreNeverWritten(mqtt.Error(state.Republish(ctx, w, opts.StatePrefix)))
	}

	return e
}

func (e *entity) wrap(p Platform, d description, n *node, opts Options) json.MarshalerTo {
	return &Component[Platform]{
		Platform:        p,
		TopicPrefix:     opts.StatePrefix,
		Name:            d.Name,
		EntityCategory:  d.Category,
		Availability:    n.availability,
		DefaultEntityID: e.entityID,
		UniqueID:        e.key,
		WriteOptions:    mqtt.WriteOptions{QoS: opts.QoS, Retain: true},
	}
}

func ignoreNeverWritten(err error) error {
	if errors.Is(err, mqtt.ErrNeverWritten) {
		return nil
	}

	return err
}
