package rfmbridge

import (
	"context"
	"encoding/json/v2"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/rfmbridge/mqtt"
	"github.com/nlowe/rfmbridge/mqtt/mqtttest"
	"github.com/nlowe/rfmbridge/payload"
	"github.com/nlowe/rfmbridge/store"
)

const (
	testGatewayMAC   = "AA:BB:CC:DD:EE:FF"
	testGatewayTopic = "rfm/aa_bb_cc_dd_ee_ff/node"

	weatherConfigTopic = "homeassistant/device/aa_bb_cc_dd_ee_ff_12/config"
	gatewayConfigTopic = "homeassistant/device/aa_bb_cc_dd_ee_ff/config"
)

var testNow = time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)

// weatherFrame is node 12, type 2, RSSI -70, 21.50 °C, 1.00 V.
var weatherFrame = []byte{0x0C, 0x00, 0xBA, 0xFF, 0x02, 0x66, 0x08, 0xE8, 0x03}

func doorFrame(open bool) []byte {
	var state byte
	if open {
		state = 0x01
	}

	return []byte{0x03, 0x00, 0xBA, 0xFF, 0x15, state, 0xEA, 0x0B}
}

func newTestBridge(t *testing.T, opts Options) *Bridge {
	t.Helper()

	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}

	g, err := NewGateway(testGatewayMAC, "Kitchen Gateway")
	require.NoError(t, err)

	b, err := NewBridge(opts, g)
	require.NoError(t, err)

	return b
}

func last(t *testing.T, rec *mqtttest.Recorder, topic string) string {
	t.Helper()

	v, ok := rec.Last(topic)
	require.True(t, ok, "nothing published to %s", topic)
	return string(v)
}

func discoveryPayload(t *testing.T, rec *mqtttest.Recorder, topic string) map[string]any {
	t.Helper()

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(last(t, rec, topic)), &result))
	return result
}

func TestNewBridge(t *testing.T) {
	t.Run("No Gateways", func(t *testing.T) {
		_, err := NewBridge(Options{})
		require.ErrorIs(t, err, ErrNoGateways)
	})

	t.Run("Invalid MAC", func(t *testing.T) {
		_, err := NewBridge(Options{}, Gateway{MAC: "GG:BB:CC:DD:EE:FF"})
		require.ErrorIs(t, err, ErrInvalidMAC)
	})

	t.Run("Duplicate MAC", func(t *testing.T) {
		_, err := NewBridge(Options{}, Gateway{MAC: "AA:BB:CC:DD:EE:FF"}, Gateway{MAC: "aabbccddeeff"})
		require.ErrorIs(t, err, ErrDuplicateGateway)
	})

	t.Run("Normalizes Gateways", func(t *testing.T) {
		b, err := NewBridge(Options{}, Gateway{MAC: "00-11-22-33-44-55"}, Gateway{MAC: "AA:BB:CC:DD:EE:FF", Name: "Attic"})
		require.NoError(t, err)

		assert.Equal(t, []Gateway{
			{MAC: "00:11:22:33:44:55", Name: DefaultGatewayName},
			{MAC: "aa:bb:cc:dd:ee:ff", Name: "Attic"},
		}, b.Gateways())
		assert.Empty(t, b.Nodes())
	})
}

func TestBridgeRegistersNewNode(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()

	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))

	require.Equal(t, []Node{{
		Gateway:   Gateway{MAC: "aa:bb:cc:dd:ee:ff", Name: "Kitchen Gateway"},
		ID:        12,
		Type:      payload.NodeTypeTemperature,
		FirstSeen: testNow,
		LastSeen:  testNow,
	}}, b.Nodes())

	t.Run("States", func(t *testing.T) {
		assert.Equal(t, "-70", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/rssi"))
		assert.Equal(t, "1.00", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/vcc"))
		assert.Equal(t, "21.50", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature"))
		assert.Equal(t, "1", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/nodes"))

		for _, m := range rec.Messages() {
			assert.True(t, m.Options.Retain, "%s should be retained", m.Topic)
		}
	})

	t.Run("Attributes", func(t *testing.T) {
		assert.JSONEq(t,
			`{"gateway":"aa:bb:cc:dd:ee:ff","node_id":12,"node_type":2,"last_seen":"2026-10-16T08:30:00Z"}`,
			last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/attributes"),
		)
	})

	t.Run("Discovery", func(t *testing.T) {
		config := discoveryPayload(t, rec, weatherConfigTopic)

		assert.Equal(t, map[string]any{
			"name":       "Weather Node #12",
			"mf":         "RFM",
			"mdl":        "Weather Node",
			"ids":        []any{"aa_bb_cc_dd_ee_ff_12"},
			"via_device": "aa_bb_cc_dd_ee_ff",
		}, config["dev"])

		components, ok := config["cmps"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, components, 3)

		assert.Equal(t, map[string]any{
			"p":            "sensor",
			"name":         "Vcc",
			"ent_cat":      "diagnostic",
			"avty_t":       "rfmbridge/availability",
			"def_ent_id":   "sensor.rfm_node_12_vcc",
			"uniq_id":      "aa_bb_cc_dd_ee_ff_12_vcc",
			"ret":          true,
			"json_attr_t":  "rfmbridge/aa_bb_cc_dd_ee_ff/12/attributes",
			"sug_dsp_prc":  float64(2),
			"stat_cla":     "measurement",
			"dev_cla":      "voltage",
			"stat_t":       "rfmbridge/aa_bb_cc_dd_ee_ff/12/vcc",
			"unit_of_meas": "V",
		}, components["aa_bb_cc_dd_ee_ff_12_vcc"])

		assert.Contains(t, components, "aa_bb_cc_dd_ee_ff_12_rssi")
		assert.Contains(t, components, "aa_bb_cc_dd_ee_ff_12_temperature")
	})

	t.Run("Discovery Before States", func(t *testing.T) {
		msgs := rec.Messages()
		require.NotEmpty(t, msgs)
		assert.Equal(t, weatherConfigTopic, msgs[0].Topic)
	})
}

func TestBridgeUpdatesExistingNode(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()

	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))

	later := testNow.Add(time.Minute)
	b.opts.Now = func() time.Time { return later }

	// Same node, 22.00 °C
	second := []byte{0x0C, 0x00, 0xBA, 0xFF, 0x02, 0x98, 0x08, 0xE8, 0x03}
	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, second))

	assert.Len(t, rec.Topic(weatherConfigTopic), 1, "discovery must only be published once")
	assert.Len(t, rec.Topic("rfmbridge/aa_bb_cc_dd_ee_ff/nodes"), 1)
	assert.Len(t, rec.Topic("rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature"), 2)
	assert.Equal(t, "22.00", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature"))

	nodes := b.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, testNow, nodes[0].FirstSeen)
	assert.Equal(t, later, nodes[0].LastSeen)
}

func TestBridgeDoor(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()

	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, doorFrame(true)))
	assert.Equal(t, "ON", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/3/door"))
	assert.Equal(t, "3.05", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/3/vcc"))

	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, doorFrame(false)))
	assert.Equal(t, "OFF", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/3/door"))

	config := discoveryPayload(t, rec, "homeassistant/device/aa_bb_cc_dd_ee_ff_3/config")
	components := config["cmps"].(map[string]any)
	door := components["aa_bb_cc_dd_ee_ff_3_door"].(map[string]any)

	assert.Equal(t, "binary_sensor", door["p"])
	assert.Equal(t, "binary_sensor.rfm_node_3_door", door["def_ent_id"])
	assert.Equal(t, "door", door["dev_cla"])
	assert.Equal(t, "ON", door["pl_on"])
	assert.Equal(t, "OFF", door["pl_off"])
	assert.NotContains(t, door, "unit_of_meas")
}

func TestBridgeDrops(t *testing.T) {
	for _, tt := range []struct {
		name  string
		topic string
		frame []byte
		check func(t *testing.T, err error)
	}{
		{
			name:  "Unknown Gateway",
			topic: "rfm/00_11_22_33_44_55/node",
			frame: weatherFrame,
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrUnknownGateway) },
		},
		{
			name:  "Not A MAC",
			topic: "rfm/kitchen/node",
			frame: weatherFrame,
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrUnknownGateway) },
		},
		{
			name:  "Other Prefix",
			topic: "zigbee/aa_bb_cc_dd_ee_ff/node",
			frame: weatherFrame,
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrUnknownGateway) },
		},
		{
			name:  "Short Frame",
			topic: testGatewayTopic,
			frame: weatherFrame[:8],
			check: func(t *testing.T, err error) {
				var de *payload.DecodeError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, payload.QuantityVoltage, de.Quantity)
			},
		},
		{
			name:  "Unknown Node Type",
			topic: testGatewayTopic,
			frame: []byte{0x0C, 0x00, 0xBA, 0xFF, 0x63, 0x01, 0x02},
			check: func(t *testing.T, err error) { require.NoError(t, err) },
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(t, Options{})
			rec := mqtttest.NewRecorder()

			tt.check(t, b.Handle(t.Context(), rec, tt.topic, tt.frame))
			assert.Empty(t, rec.Messages())
			assert.Empty(t, b.Nodes())
		})
	}
}

func TestBridgeAcceptsColonAndHyphenTopics(t *testing.T) {
	for _, topic := range []string{"rfm/aa:bb:cc:dd:ee:ff/node", "rfm/AA-BB-CC-DD-EE-FF", "rfm/aabbccddeeff/x/y"} {
		t.Run(topic, func(t *testing.T) {
			b := newTestBridge(t, Options{})
			require.NoError(t, b.Handle(t.Context(), mqtttest.NewRecorder(), topic, weatherFrame))
			assert.Len(t, b.Nodes(), 1)
		})
	}
}

func TestBridgeNodeTypeChanged(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()

	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))
	rec.Reset()

	// Node 12 now claims to be a humidity node.
	changed := []byte{0x0C, 0x00, 0xBA, 0xFF, 0x03, 0x66, 0x08, 0xD0, 0x11, 0xB8, 0x0B}
	require.ErrorIs(t, b.Handle(t.Context(), rec, testGatewayTopic, changed), ErrNodeTypeChanged)

	assert.Empty(t, rec.Messages())
	assert.Equal(t, payload.NodeTypeTemperature, b.Nodes()[0].Type)
}

func TestBridgePublishErrorsAreReturned(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()
	rec.Err = errors.New("broker unavailable")

	require.ErrorIs(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame), rec.Err)
	require.Len(t, b.Nodes(), 1)

	// The node stays registered and its discovery is published with the next frame.
	rec.Err = nil
	rec.Reset()
	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))
	assert.Len(t, rec.Topic(weatherConfigTopic), 1)
	assert.Len(t, rec.Topic(gatewayConfigTopic), 1)

	rec.Reset()
	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))
	assert.Empty(t, rec.Topic(weatherConfigTopic))
	assert.Empty(t, rec.Topic(gatewayConfigTopic))
}

func TestBridgeRetriesFailedDiscovery(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()
	errTimeout := errors.New("publish timeout")

	failed := false
	w := mqtt.WriterFunc(func(ctx context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
		if topic == weatherConfigTopic && !failed {
			failed = true
			return errTimeout
		}

		return rec.WriteTopic(ctx, topic, options, value)
	})

	require.ErrorIs(t, b.Handle(t.Context(), w, testGatewayTopic, weatherFrame), errTimeout)
	assert.Empty(t, rec.Topic(weatherConfigTopic))
	assert.Len(t, rec.Topic(gatewayConfigTopic), 1)

	for range 3 {
		require.NoError(t, b.Handle(t.Context(), w, testGatewayTopic, weatherFrame))
	}

	assert.Len(t, rec.Topic(weatherConfigTopic), 1, "discovery should be published once after the failure")
	assert.Len(t, rec.Topic(gatewayConfigTopic), 1)
	assert.Len(t, rec.Topic("rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature"), 4)
	assert.Equal(t, "1", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/nodes"))
}

func TestBridgeAnnounceMarksDiscoveryPublished(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()
	rec.Err = errors.New("broker unavailable")

	require.Error(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))

	rec.Err = nil
	require.NoError(t, b.Announce(t.Context(), rec))
	rec.Reset()

	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))
	assert.Empty(t, rec.Topic(weatherConfigTopic))
	assert.Empty(t, rec.Topic(gatewayConfigTopic))
}

func TestBridgeNewNodeConfiguresGateway(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()

	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))
	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, doorFrame(true)))

	config := discoveryPayload(t, rec, gatewayConfigTopic)
	assert.Equal(t, []any{"aa_bb_cc_dd_ee_ff"}, config["dev"].(map[string]any)["ids"])
	assert.Len(t, rec.Topic(gatewayConfigTopic), 1, "gateway discovery should only be published until it succeeds")
	assert.Equal(t, "2", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/nodes"))
}

func TestBridgeSubscribe(t *testing.T) {
	b := newTestBridge(t, Options{NodeTopicPrefix: "home/rfm/"})
	rec := mqtttest.NewRecorder()

	require.NoError(t, b.Subscribe(t.Context(), rec))
	require.True(t, rec.Subscribed("home/rfm/+/#"))

	rec.Deliver("home/rfm/aa_bb_cc_dd_ee_ff/node", weatherFrame)
	assert.Equal(t, "21.50", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature"))

	// Dropped frames are only logged.
	rec.Deliver("home/rfm/00_11_22_33_44_55/node", weatherFrame)
	rec.Deliver("home/rfm/aa_bb_cc_dd_ee_ff/node", []byte{0x01})
	assert.Len(t, b.Nodes(), 1)
}

func TestBridgeAnnounce(t *testing.T) {
	t.Run("No Nodes", func(t *testing.T) {
		b := newTestBridge(t, Options{})
		rec := mqtttest.NewRecorder()

		require.NoError(t, b.Announce(t.Context(), rec))

		assert.Equal(t, "online", last(t, rec, "rfmbridge/availability"))
		assert.Equal(t, "0", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/nodes"))

		config := discoveryPayload(t, rec, gatewayConfigTopic)
		assert.Equal(t, map[string]any{
			"name": "Kitchen Gateway",
			"mf":   "RFM",
			"ids":  []any{"aa_bb_cc_dd_ee_ff"},
			"cns":  []any{[]any{"mac", "aa:bb:cc:dd:ee:ff"}},
		}, config["dev"])

		origin := config["o"].(map[string]any)
		assert.Equal(t, "rfmbridge", origin["name"])

		nodes := config["cmps"].(map[string]any)["nodes"].(map[string]any)
		assert.Equal(t, "diagnostic", nodes["ent_cat"])
		assert.Equal(t, "aa_bb_cc_dd_ee_ff_nodes", nodes["uniq_id"])
		assert.Equal(t, "rfmbridge/aa_bb_cc_dd_ee_ff/nodes", nodes["stat_t"])
	})

	t.Run("Republishes Known Nodes", func(t *testing.T) {
		b := newTestBridge(t, Options{})
		rec := mqtttest.NewRecorder()

		require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))
		rec.Reset()

		require.NoError(t, b.Announce(t.Context(), rec))

		assert.Equal(t, "online", last(t, rec, "rfmbridge/availability"))
		assert.Len(t, rec.Topic(gatewayConfigTopic), 1)
		assert.Len(t, rec.Topic(weatherConfigTopic), 1)
		assert.Equal(t, "1", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/nodes"))
		assert.Equal(t, "21.50", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature"))
		assert.Equal(t, "-70", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/rssi"))
	})
}

func TestBridgeShutdown(t *testing.T) {
	b := newTestBridge(t, Options{StatePrefix: "rfm-state"})
	rec := mqtttest.NewRecorder()

	require.NoError(t, b.Shutdown(t.Context(), rec))

	msgs := rec.Topic("rfm-state/availability")
	require.Len(t, msgs, 1)
	assert.Equal(t, "offline", string(msgs[0].Payload))
	assert.True(t, msgs[0].Options.Retain)
	assert.Equal(t, "rfm-state/availability", b.AvailabilityTopic())
}

func TestBridgeStore(t *testing.T) {
	s, err := store.Open(t.Context(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	b := newTestBridge(t, Options{Store: s})
	require.NoError(t, b.Handle(t.Context(), mqtttest.NewRecorder(), testGatewayTopic, weatherFrame))
	require.NoError(t, b.Handle(t.Context(), mqtttest.NewRecorder(), testGatewayTopic, doorFrame(true)))

	persisted, err := s.Nodes(t.Context())
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, store.Node{Gateway: "aa:bb:cc:dd:ee:ff", NodeID: 3, NodeType: 21, FirstSeen: testNow, LastSeen: testNow}, persisted[0])

	// An unknown gateway and node type in the store are skipped on restore.
	require.NoError(t, s.SaveNode(t.Context(), store.Node{Gateway: "00:11:22:33:44:55", NodeID: 1, NodeType: 1, FirstSeen: testNow, LastSeen: testNow}))
	require.NoError(t, s.SaveNode(t.Context(), store.Node{Gateway: "aa:bb:cc:dd:ee:ff", NodeID: 99, NodeType: 42, FirstSeen: testNow, LastSeen: testNow}))

	restarted := newTestBridge(t, Options{Store: s})
	require.NoError(t, restarted.Restore(t.Context()))

	nodes := restarted.Nodes()
	require.Len(t, nodes, 2)
	assert.EqualValues(t, 3, nodes[0].ID)
	assert.Equal(t, payload.NodeTypeDoor, nodes[0].Type)
	assert.EqualValues(t, 12, nodes[1].ID)

	rec := mqtttest.NewRecorder()
	require.NoError(t, restarted.Announce(t.Context(), rec))

	assert.Len(t, rec.Topic(weatherConfigTopic), 1)
	assert.Len(t, rec.Topic("homeassistant/device/aa_bb_cc_dd_ee_ff_3/config"), 1)
	assert.Equal(t, "2", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/nodes"))

	_, ok := rec.Last("rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature")
	assert.False(t, ok, "restored nodes have no state until their next frame")

	// The next frame is an update, not a new registration.
	rec.Reset()
	require.NoError(t, restarted.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))
	assert.Empty(t, rec.Topic(weatherConfigTopic))
	assert.Equal(t, "21.50", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/12/temperature"))
}

func TestEntityKeys(t *testing.T) {
	g := Gateway{MAC: "aa:bb:cc:dd:ee:ff"}

	assert.Equal(t, "aa_bb_cc_dd_ee_ff_12_vcc", EntityKey(g, 12, payload.QuantityVoltage))

	vcc, _ := payload.FieldFor(payload.NodeTypeGeneric, payload.QuantityVoltage)
	assert.Equal(t, "sensor.rfm_node_12_vcc", DefaultEntityID(12, vcc))

	door, _ := payload.FieldFor(payload.NodeTypeDoor, payload.QuantityDoor)
	assert.Equal(t, "binary_sensor.rfm_node_3_door", DefaultEntityID(3, door))

	for q := range descriptions {
		assert.NotEmpty(t, descriptions[q].Name, "quantity %s", q)
	}
}

func TestBridgeMeterForcesUpdates(t *testing.T) {
	b := newTestBridge(t, Options{})
	rec := mqtttest.NewRecorder()

	// Node 5, gas meter, 1234.56 m³, 1.00 V
	gasFrame := []byte{0x05, 0x00, 0xBA, 0xFF, 0x0B, 0x40, 0xE2, 0x01, 0x00, 0xE8, 0x03}
	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, gasFrame))
	require.NoError(t, b.Handle(t.Context(), rec, testGatewayTopic, weatherFrame))

	assert.Equal(t, "1234.56", last(t, rec, "rfmbridge/aa_bb_cc_dd_ee_ff/5/gas_consumption"))

	gas := discoveryPayload(t, rec, "homeassistant/device/aa_bb_cc_dd_ee_ff_5/config")["cmps"].(map[string]any)
	assert.Equal(t, true, gas["aa_bb_cc_dd_ee_ff_5_gas_consumption"].(map[string]any)["frc_upd"])
	assert.NotContains(t, gas["aa_bb_cc_dd_ee_ff_5_vcc"], "frc_upd")

	weather := discoveryPayload(t, rec, weatherConfigTopic)["cmps"].(map[string]any)
	assert.NotContains(t, weather["aa_bb_cc_dd_ee_ff_12_temperature"], "frc_upd")
}
