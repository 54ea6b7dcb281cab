package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame builds a frame for node 258 (0x0102) with an RSSI of -70 and the given node type and body.
func frame(nodeType NodeType, body ...byte) []byte {
	return append([]byte{0x02, 0x01, 0xBA, 0xFF, byte(nodeType)}, body...)
}

func TestDecode(t *testing.T) {
	for _, tt := range []struct {
		name  string
		frame []byte
		want  map[Quantity]string
	}{
		{
			name:  "Generic",
			frame: frame(NodeTypeGeneric, 0xE4, 0x0C),
			want:  map[Quantity]string{QuantityRSSI: "-70", QuantityVoltage: "3.30"},
		},
		{
			name:  "Temperature",
			frame: frame(NodeTypeTemperature, 0x66, 0x08, 0xE8, 0x03),
			want:  map[Quantity]string{QuantityRSSI: "-70", QuantityTemperature: "21.50", QuantityVoltage: "1.00"},
		},
		{
			name:  "Negative Temperature",
			frame: frame(NodeTypeTemperature, 0xF3, 0xFD, 0xE8, 0x03),
			want:  map[Quantity]string{QuantityRSSI: "-70", QuantityTemperature: "-5.25", QuantityVoltage: "1.00"},
		},
		{
			name:  "Humidity",
			frame: frame(NodeTypeHumidity, 0x66, 0x08, 0xD0, 0x11, 0xB8, 0x0B),
			want: map[Quantity]string{
				QuantityRSSI:        "-70",
				QuantityTemperature: "21.50",
				QuantityHumidity:    "46",
				QuantityVoltage:     "3.00",
			},
		},
		{
			name:  "Pressure",
			frame: frame(NodeTypePressure, 0x66, 0x08, 0xD0, 0x11, 0xE9, 0x02, 0xB8, 0x0B),
			want: map[Quantity]string{
				QuantityRSSI:        "-70",
				QuantityTemperature: "21.50",
				QuantityHumidity:    "46",
				QuantityPressure:    "745",
				QuantityVoltage:     "3.00",
			},
		},
		{
			name:  "Gas Meter",
			frame: frame(NodeTypeGasMeter, 0x40, 0xE2, 0x01, 0x00, 0x54, 0x0B),
			want:  map[Quantity]string{QuantityRSSI: "-70", QuantityGasConsumption: "1234.56", QuantityVoltage: "2.90"},
		},
		{
			name:  "Water Meter",
			frame: frame(NodeTypeWaterMeter, 0xCD, 0x81, 0x01, 0x00, 0x1C, 0x0C),
			want:  map[Quantity]string{QuantityRSSI: "-70", QuantityWaterConsumption: "987.65", QuantityVoltage: "3.10"},
		},
		{
			name:  "Door Open",
			frame: frame(NodeTypeDoor, 0x02, 0xEA, 0x0B),
			want:  map[Quantity]string{QuantityRSSI: "-70", QuantityDoor: "1", QuantityVoltage: "3.05"},
		},
		{
			name:  "Door Closed",
			frame: frame(NodeTypeDoor, 0x00, 0xEA, 0x0B),
			want:  map[Quantity]string{QuantityRSSI: "-70", QuantityDoor: "0", QuantityVoltage: "3.05"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(tt.frame)
			require.NoError(t, err)

			assert.EqualValues(t, 258, r.NodeID)
			assert.Equal(t, NodeType(tt.frame[4]), r.NodeType)
			assert.Equal(t, tt.want, r.Map())
			assert.Len(t, r.Values, len(r.NodeType.Fields()))
		})
	}
}

func TestDecodeVoltageExample(t *testing.T) {
	// Node type 2 with the supply voltage bytes E8 03 (1000 mV).
	r, err := Decode([]byte{0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0xE8, 0x03})
	require.NoError(t, err)

	v, ok := r.Lookup(QuantityVoltage)
	require.True(t, ok)
	assert.Equal(t, "1.00", v)
}

func TestDecodeIsIdempotent(t *testing.T) {
	f := frame(NodeTypePressure, 0x66, 0x08, 0xD0, 0x11, 0xE9, 0x02, 0xB8, 0x0B)

	first, err := Decode(f)
	require.NoError(t, err)

	second, err := Decode(f)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeUnknownNodeType(t *testing.T) {
	r, err := Decode(frame(NodeType(99), 0x01, 0x02))
	require.NoError(t, err)

	assert.EqualValues(t, 99, r.NodeType)
	assert.False(t, r.NodeType.Known())
	assert.Empty(t, r.Values)
	assert.Empty(t, r.Map())

	_, ok := r.Lookup(QuantityVoltage)
	assert.False(t, ok)
}

func TestDecodeAbsentQuantity(t *testing.T) {
	r, err := Decode(frame(NodeTypeGeneric, 0xE4, 0x0C))
	require.NoError(t, err)

	_, ok := r.Lookup(QuantityTemperature)
	assert.False(t, ok, "generic nodes do not report temperature")
}

func TestDecodeShortFrame(t *testing.T) {
	t.Run("Header", func(t *testing.T) {
		_, err := Decode([]byte{0x01, 0x00, 0x00, 0x00})
		require.ErrorIs(t, err, ErrShortFrame)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Empty(t, de.Quantity)
		assert.Equal(t, 4, de.Len)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Decode(nil)
		require.ErrorIs(t, err, ErrShortFrame)
	})

	t.Run("Field", func(t *testing.T) {
		// Temperature fits, the voltage at [7:9] is missing its high byte.
		_, err := Decode(frame(NodeTypeTemperature, 0x66, 0x08, 0xE8))
		require.ErrorIs(t, err, ErrShortFrame)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, QuantityVoltage, de.Quantity)
		assert.Equal(t, 7, de.Offset)
		assert.Equal(t, 2, de.Width)
		assert.Equal(t, 8, de.Len)
		assert.Equal(t, "decode vcc: need bytes [7:9], got 8: frame too short", de.Error())
	})

	t.Run("Header only", func(t *testing.T) {
		_, err := Decode(frame(NodeTypeDoor))
		require.ErrorIs(t, err, ErrShortFrame)
	})
}

func TestHeader(t *testing.T) {
	id, nodeType, err := Header([]byte{0xFF, 0xFF, 0x00, 0x00, 0x0B})
	require.NoError(t, err)
	assert.EqualValues(t, 65535, id)
	assert.Equal(t, NodeTypeGasMeter, nodeType)
}

func TestLittleEndianSigned(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   []byte
		want int64
	}{
		{name: "one byte positive", in: []byte{0x7F}, want: 127},
		{name: "one byte negative", in: []byte{0x80}, want: -128},
		{name: "two bytes", in: []byte{0xE8, 0x03}, want: 1000},
		{name: "two bytes negative", in: []byte{0xBA, 0xFF}, want: -70},
		{name: "four bytes negative", in: []byte{0xFF, 0xFF, 0xFF, 0xFF}, want: -1},
		{name: "four bytes", in: []byte{0x40, 0xE2, 0x01, 0x00}, want: 123456},
		{name: "eight bytes", in: []byte{0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, want: -2},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, littleEndianSigned(tt.in))
		})
	}
}

func TestFieldFormat(t *testing.T) {
	v, _ := FieldFor(NodeTypeGeneric, QuantityVoltage)
	assert.Equal(t, "3.30", v.Format(3300))

	h, _ := FieldFor(NodeTypeHumidity, QuantityHumidity)
	assert.Equal(t, "46", h.Format(4560))

	p, ok := FieldFor(NodeTypePressure, QuantityPressure)
	require.True(t, ok)
	assert.Equal(t, "745", p.Format(745))

	_, ok = FieldFor(NodeTypeGeneric, QuantityPressure)
	assert.False(t, ok)
}

func TestFieldTableBounds(t *testing.T) {
	for nodeType, fields := range fieldTable {
		seen := map[Quantity]bool{}
		for _, f := range fields {
			assert.GreaterOrEqual(t, f.Offset, HeaderLen-3, "node type %d field %s overlaps the node id", nodeType, f.Quantity)
			assert.LessOrEqual(t, f.Width, 8, "node type %d field %s is too wide", nodeType, f.Quantity)
			assert.False(t, seen[f.Quantity], "node type %d reports %s twice", nodeType, f.Quantity)
			seen[f.Quantity] = true
		}
	}
}

func TestNodeTypeName(t *testing.T) {
	for nodeType, want := range map[NodeType]string{
		NodeTypeGeneric:     "Generic Node",
		NodeTypeTemperature: "Weather Node",
		NodeTypeHumidity:    "Weather Node",
		NodeTypePressure:    "Weather Node",
		NodeTypeGasMeter:    "Gas Meter",
		NodeTypeWaterMeter:  "Water Meter",
		NodeTypeDoor:        "Door Sensor",
		NodeType(200):       "Generic Node",
	} {
		assert.Equal(t, want, nodeType.Name(), "node type %d", nodeType)
	}
}
