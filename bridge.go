package rfmbridge

import (
	"cmp"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nlowe/rfmbridge/discovery"
	"github.com/nlowe/rfmbridge/hass"
	"github.com/nlowe/rfmbridge/log"
	"github.com/nlowe/rfmbridge/metrics"
	"github.com/nlowe/rfmbridge/mqtt"
	"github.com/nlowe/rfmbridge/payload"
	"github.com/nlowe/rfmbridge/platform"
	"github.com/nlowe/rfmbridge/store"
)

const (
	// DefaultNodeTopicPrefix is the topic prefix gateways publish node frames under.
	DefaultNodeTopicPrefix = "rfm"
	// DefaultStatePrefix is the topic prefix entity states, attributes and availability are published under.
	DefaultStatePrefix = "rfmbridge"

	// AvailabilityTopic is the topic (under the state prefix) availability is published to.
	AvailabilityTopic = "availability"
)

var (
	// ErrUnknownGateway is the error returned by Bridge.Handle for frames from a gateway that was not configured.
	ErrUnknownGateway = errors.New("unknown gateway")
	// ErrNodeTypeChanged is the error returned by Bridge.Handle when a known node reports a different node type than
	// the one it was registered with.
	ErrNodeTypeChanged = errors.New("node type changed")
	// ErrNoGateways is the error returned by NewBridge when no gateways are provided.
	ErrNoGateways = errors.New("at least one gateway is required")
)

// NodeStore persists nodes between restarts. *store.Store implements NodeStore.
type NodeStore interface {
	SaveNode(ctx context.Context, n store.Node) error
	Nodes(ctx context.Context) ([]store.Node, error)
}

// Options configures a Bridge. The zero value uses the default prefixes, QoS 0 and no store.
type Options struct {
	// NodeTopicPrefix is the prefix gateways publish frames under, as `<prefix>/<gateway mac>/...`.
	NodeTopicPrefix string
	// StatePrefix is the prefix states, attributes and availability are published under.
	StatePrefix string
	// DiscoveryPrefix is the Home Assistant discovery prefix.
	DiscoveryPrefix string

	// QoS is used for every publish and advertised to Home Assistant for states.
	QoS mqtt.QualityOfService

	// ExpireAfter, if set, makes Home Assistant mark node entities unavailable when they are not updated for this long.
	ExpireAfter time.Duration

	// Store, if set, persists nodes so Restore can announce them after a restart.
	Store NodeStore

	// Now is used to timestamp nodes. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	o.NodeTopicPrefix = mqtt.TrimTopic(cmp.Or(o.NodeTopicPrefix, DefaultNodeTopicPrefix))
	o.StatePrefix = mqtt.TrimTopic(cmp.Or(o.StatePrefix, DefaultStatePrefix))
	o.DiscoveryPrefix = mqtt.TrimTopic(cmp.Or(o.DiscoveryPrefix, discovery.DefaultPrefix))

	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

type nodeKey struct {
	gateway string
	id      uint16
}

type gateway struct {
	Gateway

	nodes     *mqtt.Value[uint]
	component json.MarshalerTo

	// configured is set once the gateway discovery payload was published successfully.
	configured bool
}

func (gw *gateway) configure(ctx context.Context, w mqtt.Writer, opts Options) error {
	err := gw.device().Configure(ctx, w, opts.DiscoveryPrefix, map[string]json.MarshalerTo{"nodes": gw.component})
	gw.configured = err == nil
	return err
}

// Bridge turns node frames received from RFM gateways into Home Assistant entities. Nodes are registered on their
// first frame and only updated afterwards. Bridge implements mqtt.Handler; frames are handled one at a time.
type Bridge struct {
	opts Options

	mu           sync.Mutex
	gateways     map[string]*gateway
	nodes        map[nodeKey]*node
	availability *mqtt.Value[hass.Availability]

	log *slog.Logger
}

var _ mqtt.Handler = &Bridge{}

// NewBridge validates gateways and constructs a Bridge. Gateway MACs are normalized with ParseMAC; an invalid MAC
// returns ErrInvalidMAC and two gateways with the same MAC return ErrDuplicateGateway. Nothing is published until
// Announce or Handle is called.
func NewBridge(opts Options, gateways ...Gateway) (*Bridge, error) {
	if len(gateways) == 0 {
		return nil, ErrNoGateways
	}

	opts = opts.withDefaults()

	b := &Bridge{
		opts:     opts,
		gateways: make(map[string]*gateway, len(gateways)),
		nodes:    map[nodeKey]*node{},
		availability: mqtt.NewValueWithOptions(
			AvailabilityTopic, hass.AvailabilityMarshaler, mqtt.WriteOptions{QoS: opts.QoS, Retain: true},
		),

		log: log.ForComponent("bridge"),
	}

	for _, g := range gateways {
		mac, err := ParseMAC(g.MAC)
		if err != nil {
			return nil, fmt.Errorf("gateway %q: %w", g.Name, err)
		}

		if _, ok := b.gateways[mac]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGateway, mac)
		}

		g.MAC = mac
		g.Name = cmp.Or(g.Name, DefaultGatewayName)
		b.gateways[mac] = b.newGateway(g)
	}

	return b, nil
}

func (b *Bridge) newGateway(g Gateway) *gateway {
	nodes := mqtt.NewValueWithOptions(
		mqtt.JoinTopic(g.ID(), "nodes"), mqtt.UintMarshaler, mqtt.WriteOptions{QoS: b.opts.QoS, Retain: true},
	)

	return &gateway{
		Gateway: g,
		nodes:   nodes,
		component: &Component[*platform.Sensor[uint, struct{}]]{
			Platform: &platform.Sensor[uint, struct{}]{
				StateClass: hass.StateClassMeasurement,
				State:      nodes,
			},
			TopicPrefix:    b.opts.StatePrefix,
			Name:           "Nodes",
			EntityCategory: hass.EntityCategoryDiagnostic,
			Icon:           "mdi:access-point-network",
			Availability:   b.availability,
			UniqueID:       g.ID() + "_nodes",
			WriteOptions:   mqtt.WriteOptions{QoS: b.opts.QoS, Retain: true},
		},
	}
}

// Gateways returns the configured gateways ordered by MAC.
func (b *Bridge) Gateways() []Gateway {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]Gateway, 0, len(b.gateways))
	for _, g := range b.gateways {
		result = append(result, g.Gateway)
	}

	slices.SortFunc(result, func(x, y Gateway) int { return strings.Compare(x.MAC, y.MAC) })
	return result
}

// Nodes returns a snapshot of every known node ordered by gateway MAC and node id.
func (b *Bridge) Nodes() []Node {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		result = append(result, n.Node)
	}

	slices.SortFunc(result, compareNodes)
	return result
}

func compareNodes(x, y Node) int {
	return cmp.Or(strings.Compare(x.Gateway.MAC, y.Gateway.MAC), cmp.Compare(x.ID, y.ID))
}

// Subscribe subscribes h to every frame published under the node topic prefix.
func (b *Bridge) Subscribe(ctx context.Context, s mqtt.Subscriber) error {
	return s.Subscribe(ctx, b, mqtt.Subscription{
		Topic:   mqtt.JoinTopic(b.opts.NodeTopicPrefix, mqtt.SingleLevelWildcard, mqtt.MultiLevelWildcard),
		Options: mqtt.ReadOptions{QoS: b.opts.QoS},
	})
}

// ServeMQTT implements mqtt.Handler by calling Handle and logging the outcome.
func (b *Bridge) ServeMQTT(w mqtt.Writer, topic string, message []byte) {
	err := b.Handle(context.Background(), w, topic, message)

	l := b.log.With(slog.String("topic", topic))
	var decodeErr *payload.DecodeError

	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownGateway):
		l.With(log.Error(err)).Debug("Dropping frame from unknown gateway")
	case errors.As(err, &decodeErr):
		l.With(log.Error(err), slog.Int("size", len(message))).Warn("Dropping malformed frame")
	case errors.Is(err, ErrNodeTypeChanged):
		l.With(log.Error(err)).Warn("Dropping frame with a different node type than the registered node")
	default:
		l.With(log.Error(err)).Error("Failed to handle frame")
	}
}

// Handle decodes a frame received on topic and registers or updates the node it came from. New nodes get one entity
// per quantity and have their discovery payload published before their states, along with the refreshed gateway node
// count and, if it was never published, the gateway discovery payload. Frames for known nodes only update states once
// their discovery was published.
func (b *Bridge) Handle(ctx context.Context, w mqtt.Writer, topic string, message []byte) error {
	start := time.Now()
	defer func() { metrics.HandleDuration.Observe(time.Since(start).Seconds()) }()

	b.mu.Lock()
	defer b.mu.Unlock()

	gw, err := b.gatewayFor(topic)
	if err != nil {
		metrics.MessagesDropped.WithLabelValues(metrics.ReasonUnknownGateway).Inc()
		return err
	}

	metrics.MessagesReceived.WithLabelValues(gw.ID()).Inc()

	r, err := payload.Decode(message)
	if err != nil {
		metrics.MessagesDropped.WithLabelValues(metrics.ReasonDecode).Inc()
		return fmt.Errorf("gateway %s: %w", gw.MAC, err)
	}

	l := b.log.With(slog.Any("gateway", gw.Gateway), slog.Int("node", int(r.NodeID)), slog.Int("type", int(r.NodeType)))

	if !r.NodeType.Known() {
		metrics.MessagesDropped.WithLabelValues(metrics.ReasonUnknownNodeType).Inc()
		l.Debug("Ignoring frame from unknown node type")
		return nil
	}

	now := b.opts.Now()
	n, ok := b.nodes[nodeKey{gateway: gw.MAC, id: r.NodeID}]
	if ok && n.Type != r.NodeType {
		metrics.MessagesDropped.WithLabelValues(metrics.ReasonNodeTypeChanged).Inc()
		return fmt.Errorf("%w: node %d on %s registered as %s, got %s", ErrNodeTypeChanged, r.NodeID, gw.MAC, n.Type, r.NodeType)
	}

	var errs []error
	if !ok {
		l.Info("Registering node")
		n = b.register(Node{Gateway: gw.Gateway, ID: r.NodeID, Type: r.NodeType, FirstSeen: now})
	} else {
		l.Debug("Updating node")
	}

	// Discovery is retried on every frame until it was published once, so a failed publish does not leave states
	// without entities.
	if !n.configured {
		errs = append(errs, n.configure(ctx, w, b.opts))
	}

	if !ok {
		errs = append(errs, b.writeNodeCount(ctx, w, gw))
	}

	if !gw.configured {
		errs = append(errs, gw.configure(ctx, w, b.opts))
	}

	n.LastSeen = now
	errs = append(errs, n.update(ctx, w, r, b.opts, func(q payload.Quantity) {
		metrics.StateUpdates.WithLabelValues(string(q)).Inc()
	}))

	if b.opts.Store != nil {
		errs = append(errs, b.opts.Store.SaveNode(ctx, store.Node{
			Gateway:   gw.MAC,
			NodeID:    n.ID,
			NodeType:  uint8(n.Type),
			FirstSeen: n.FirstSeen,
			LastSeen:  n.LastSeen,
		}))
	}

	return errors.Join(errs...)
}

// gatewayFor finds the configured gateway for a frame topic of the form `<node prefix>/<gateway mac>/...`. The MAC
// level may use '_', ':' or '-' separators.
func (b *Bridge) gatewayFor(topic string) (*gateway, error) {
	levels, ok := mqtt.CutTopicPrefix(topic, b.opts.NodeTopicPrefix)
	if !ok || len(levels) == 0 {
		return nil, fmt.Errorf("%w: topic %q", ErrUnknownGateway, topic)
	}

	mac, err := ParseMAC(strings.ReplaceAll(levels[0], discovery.IDSep, ":"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownGateway, err)
	}

	gw, ok := b.gateways[mac]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, mac)
	}

	return gw, nil
}

// register must be called with b.mu held.
func (b *Bridge) register(n Node) *node {
	result := newNode(n, b.availability, b.opts)
	b.nodes[nodeKey{gateway: n.Gateway.MAC, id: n.ID}] = result

	metrics.NodesRegistered.WithLabelValues(n.Gateway.ID()).Inc()
	return result
}

// nodeCount must be called with b.mu held.
func (b *Bridge) nodeCount(gw *gateway) uint {
	var count uint
	for k := range b.nodes {
		if k.gateway == gw.MAC {
			count++
		}
	}

	return count
}

func (b *Bridge) writeNodeCount(ctx context.Context, w mqtt.Writer, gw *gateway) error {
	return mqtt.Error(gw.nodes.Write(ctx, w, b.opts.StatePrefix, b.nodeCount(gw)))
}

// Restore registers nodes persisted by the configured Store. Nodes of gateways that are no longer configured or with
// an unknown node type are skipped. Restore does not publish anything, call Announce afterwards.
func (b *Bridge) Restore(ctx context.Context) error {
	if b.opts.Store == nil {
		return nil
	}

	persisted, err := b.opts.Store.Nodes(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range persisted {
		gw, ok := b.gateways[p.Gateway]
		nodeType := payload.NodeType(p.NodeType)
		l := b.log.With(slog.String("gateway", p.Gateway), slog.Int("node", int(p.NodeID)), slog.Int("type", int(nodeType)))

		if !ok || !nodeType.Known() {
			l.Debug("Skipping persisted node")
			continue
		}

		if _, exists := b.nodes[nodeKey{gateway: gw.MAC, id: p.NodeID}]; exists {
			continue
		}

		l.Debug("Restoring node")
		b.register(Node{Gateway: gw.Gateway, ID: p.NodeID, Type: nodeType, FirstSeen: p.FirstSeen, LastSeen: p.LastSeen})
	}

	return nil
}

// Announce publishes availability, the discovery payload of every gateway and known node, and the last known state of
// every entity. Call it after connecting and whenever Home Assistant comes back online.
func (b *Bridge) Announce(ctx context.Context, w mqtt.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.log.With(slog.Int("gateways", len(b.gateways)), slog.Int("nodes", len(b.nodes))).Info("Announcing devices")

	errs := []error{mqtt.Error(b.availability.Write(ctx, w, b.opts.StatePrefix, hass.Available))}

	for _, gw := range b.gateways {
		errs = append(errs,
			gw.configure(ctx, w, b.opts),
			b.writeNodeCount(ctx, w, gw),
		)
	}

	nodes := make([]*node, 0, len(b.nodes))
	for _, n := range b.nodes {
		nodes = append(nodes, n)
	}

	slices.SortFunc(nodes, func(x, y *node) int { return compareNodes(x.Node, y.Node) })
	for _, n := range nodes {
		errs = append(errs,
			n.configure(ctx, w, b.opts),
			n.republish(ctx, w, b.opts),
		)
	}

	return errors.Join(errs...)
}

// Shutdown marks every entity unavailable. It is the same message the broker publishes for the last will when the
// connection is lost.
func (b *Bridge) Shutdown(ctx context.Context, w mqtt.Writer) error {
	b.log.Info("Marking entities unavailable")
	return mqtt.Error(b.availability.Write(ctx, w, b.opts.StatePrefix, hass.Unavailable))
}

// AvailabilityTopic returns the fully qualified availability topic, for use as the last will topic.
func (b *Bridge) AvailabilityTopic() string {
	return b.availability.FullyQualifiedTopic(b.opts.StatePrefix)
}
