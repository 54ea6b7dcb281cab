package payload

import "strconv"

// NodeType selects which fields follow the frame header.
type NodeType uint8

const (
	NodeTypeGeneric     NodeType = 1
	NodeTypeTemperature NodeType = 2
	NodeTypeHumidity    NodeType = 3
	NodeTypePressure    NodeType = 4
	NodeTypeGasMeter    NodeType = 11
	NodeTypeWaterMeter  NodeType = 12
	NodeTypeDoor        NodeType = 21
)

// Known reports whether the node type has a field table.
func (t NodeType) Known() bool {
	_, ok := fieldTable[t]
	return ok
}

// Fields returns the fields reported by this node type in frame order, or nil for unknown node types. The returned
// slice must not be modified.
func (t NodeType) Fields() []Field {
	return fieldTable[t]
}

// Name returns the human readable name used for nodes of this type.
func (t NodeType) Name() string {
	switch t {
	case NodeTypeTemperature, NodeTypeHumidity, NodeTypePressure:
		return "Weather Node"
	case NodeTypeGasMeter:
		return "Gas Meter"
	case NodeTypeWaterMeter:
		return "Water Meter"
	case NodeTypeDoor:
		return "Door Sensor"
	default:
		return "Generic Node"
	}
}

func (t NodeType) String() string {
	return strconv.Itoa(int(t))
}

// Quantity is the kind of physical measurement a field carries. Its value is used in entity keys and topics.
type Quantity string

const (
	QuantityRSSI             Quantity = "rssi"
	QuantityVoltage          Quantity = "vcc"
	QuantityTemperature      Quantity = "temperature"
	QuantityHumidity         Quantity = "humidity"
	QuantityPressure         Quantity = "pressure"
	QuantityGasConsumption   Quantity = "gas_consumption"
	QuantityWaterConsumption Quantity = "water_consumption"
	QuantityDoor             Quantity = "door"
)

// Kind separates numeric sensor fields from on/off fields.
type Kind uint8

const (
	KindSensor Kind = iota
	KindBinary
)

// Field locates one quantity inside a frame.
type Field struct {
	Quantity Quantity
	Kind     Kind

	Offset int
	Width  int

	// Divisor scales the raw integer. Zero means the raw integer is reported as-is.
	Divisor float64
	// Precision is the number of decimals rendered when Divisor is set.
	Precision int
}

func rssi() Field {
	return Field{Quantity: QuantityRSSI, Offset: 2, Width: 2}
}

func voltage(offset int) Field {
	return Field{Quantity: QuantityVoltage, Offset: offset, Width: 2, Divisor: 1000, Precision: 2}
}

func temperature() Field {
	return Field{Quantity: QuantityTemperature, Offset: 5, Width: 2, Divisor: 100, Precision: 2}
}

func humidity() Field {
	return Field{Quantity: QuantityHumidity, Offset: 7, Width: 2, Divisor: 100, Precision: 0}
}

func meter(q Quantity) Field {
	return Field{Quantity: q, Offset: 5, Width: 4, Divisor: 100, Precision: 2}
}

var fieldTable = map[NodeType][]Field{
	NodeTypeGeneric: {
		rssi(),
		voltage(5),
	},
	NodeTypeTemperature: {
		rssi(),
		voltage(7),
		temperature(),
	},
	NodeTypeHumidity: {
		rssi(),
		voltage(9),
		temperature(),
		humidity(),
	},
	NodeTypePressure: {
		rssi(),
		voltage(11),
		temperature(),
		humidity(),
		{Quantity: QuantityPressure, Offset: 9, Width: 2},
	},
	NodeTypeGasMeter: {
		rssi(),
		voltage(9),
		meter(QuantityGasConsumption),
	},
	NodeTypeWaterMeter: {
		rssi(),
		voltage(9),
		meter(QuantityWaterConsumption),
	},
	NodeTypeDoor: {
		rssi(),
		{Quantity: QuantityDoor, Kind: KindBinary, Offset: 5, Width: 1},
		voltage(6),
	},
}

// FieldFor returns the field describing quantity q for node type t.
func FieldFor(t NodeType, q Quantity) (Field, bool) {
	for _, f := range fieldTable[t] {
		if f.Quantity == q {
			return f, true
		}
	}

	return Field{}, false
}
