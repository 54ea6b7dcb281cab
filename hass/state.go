package hass

// StateClass tells Home Assistant how to build long term statistics for a sensor.
type StateClass string

const (
	// StateClassMeasurement indicates the state represents a measurement in present time, such as the current
	// temperature or supply voltage of a node.
	StateClassMeasurement StateClass = "measurement"

	// StateClassTotalIncreasing indicates the state represents a monotonically increasing total which periodically
	// restarts counting from 0, e.g. a gas or water meter reading. A decreasing value is interpreted as the start of a
	// new meter cycle or the replacement of the meter.
	StateClassTotalIncreasing StateClass = "total_increasing"
)

// DeviceClass selects how Home Assistant renders an entity and which units it accepts. Sensors and binary sensors use
// different sets of device classes.
type DeviceClass string

// Sensor device classes.
const (
	DeviceClassSignalStrength DeviceClass = "signal_strength"
	DeviceClassVoltage        DeviceClass = "voltage"
	DeviceClassTemperature    DeviceClass = "temperature"
	DeviceClassHumidity       DeviceClass = "humidity"
	DeviceClassPressure       DeviceClass = "pressure"
	DeviceClassGas            DeviceClass = "gas"
	DeviceClassWater          DeviceClass = "water"
)

// Binary sensor device classes.
const (
	DeviceClassDoor DeviceClass = "door"
)

// EntityCategory classifies an entity which is not the primary purpose of its device.
type EntityCategory string

const (
	// EntityCategoryDiagnostic is used for entities exposing information about the device itself rather than what it
	// measures.
	EntityCategoryDiagnostic EntityCategory = "diagnostic"
)
