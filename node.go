package rfmbridge

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nlowe/rfmbridge/hass"
	"github.com/nlowe/rfmbridge/mqtt"
	"github.com/nlowe/rfmbridge/payload"
)

// Node is a sensor node reporting through a Gateway. It implements slog.LogValuer.
type Node struct {
	Gateway Gateway
	ID      uint16
	// Type is fixed when the node is first observed.
	Type payload.NodeType

	FirstSeen time.Time
	LastSeen  time.Time
}

// Key returns the identifier of the node device, `<gateway id>_<node id>`.
func (n Node) Key() string {
	return n.Gateway.ID() + "_" + strconv.Itoa(int(n.ID))
}

// Name returns the node device name, for example "Weather Node #12".
func (n Node) Name() string {
	return fmt.Sprintf("%s #%d", n.Type.Name(), n.ID)
}

func (n Node) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("gateway", n.Gateway.MAC),
		slog.Int("id", int(n.ID)),
		slog.Int("type", int(n.Type)),
	)
}

// nodeAttributes is published as the json attributes of every entity of a node.
type nodeAttributes struct {
	Gateway  string           `json:"gateway"`
	NodeID   uint16           `json:"node_id"`
	NodeType payload.NodeType `json:"node_type"`
	LastSeen time.Time        `json:"last_seen"`
}

type node struct {
	Node

	availability *mqtt.Value[hass.Availability]
	attributes   *mqtt.Value[nodeAttributes]

	// entities is in field table order.
	entities []*entity

	// configured is set once the discovery payload was published successfully.
	configured bool
}

func newNode(n Node, availability *mqtt.Value[hass.Availability], opts Options) *node {
	result := &node{
		Node:         n,
		availability: availability,
		attributes: mqtt.NewValueWithOptions(
			mqtt.JoinTopic(n.Gateway.ID(), strconv.Itoa(int(n.ID)), "attributes"),
			mqtt.JsonValueMarshaler[nodeAttributes](),
			mqtt.WriteOptions{QoS: opts.QoS, Retain: true},
		),
	}

	for _, f := range n.Type.Fields() {
		result.entities = append(result.entities, newEntity(result, f, opts))
	}

	return result
}

func (n *node) device() *Device {
	return &Device{
		DiscoveryID:  n.Key(),
		Name:         n.Name(),
		Manufacturer: Manufacturer,
		Model:        n.Type.Name(),
		Identifiers:  []string{n.Key()},
		ViaDevice:    n.Gateway.ID(),
	}
}

func (n *node) components() map[string]json.MarshalerTo {
	result := make(map[string]json.MarshalerTo, len(n.entities))
	for _, e := range n.entities {
		result[e.key] = e.component
	}

	return result
}

func (n *node) configure(ctx context.Context, w mqtt.Writer, opts Options) error {
	err := n.device().Configure(ctx, w, opts.DiscoveryPrefix, n.components())
	n.configured = err == nil
	return err
}

func (n *node) writeAttributes(ctx context.Context, w mqtt.Writer, opts Options) error {
	return mqtt.Error(n.attributes.Write(ctx, w, opts.StatePrefix, nodeAttributes{
		Gateway:  n.Gateway.MAC,
		NodeID:   n.ID,
		NodeType: n.Type,
		LastSeen: n.LastSeen,
	}))
}

// update publishes every value of r that has an entity on this node.
func (n *node) update(ctx context.Context, w mqtt.Writer, r payload.Reading, opts Options, updated func(payload.Quantity)) error {
	var err error
	for _, e := range n.entities {
		for _, v := range r.Values {
			if v.Quantity != e.field.Quantity {
				continue
			}

			if writeErr := e.update(ctx, w, v); writeErr != nil {
				err = errors.Join(err, fmt.Errorf("update %s: %w", e.key, writeErr))
				continue
			}

			updated(v.Quantity)
		}
	}

	return errors.Join(err, n.writeAttributes(ctx, w, opts))
}

func (n *node) republish(ctx context.Context, w mqtt.Writer, opts Options) error {
	var err error
	for _, e := range n.entities {
		err = errors.Join(err, e.republish(ctx, w))
	}

	if !n.LastSeen.IsZero() {
		err = errors.Join(err, n.writeAttributes(ctx, w, opts))
	}

	return err
}
