package discovery

import (
	"strings"

	"github.com/nlowe/rfmbridge/mqtt"
)

// Device and origin level fields.
const (
	FieldDevice     = "dev"
	FieldOrigin     = "o"
	FieldComponents = "cmps"
)

// Fields shared by every component (entity).
const (
	FieldPlatform        = "p"
	FieldName            = "name"
	FieldEntityCategory  = "ent_cat"
	FieldIcon            = "ic"
	FieldDefaultEntityID = "def_ent_id"
	FieldUniqueID        = "uniq_id"
	FieldDeviceClass     = "dev_cla"

	FieldStateTopic        = "stat_t"
	FieldAvailabilityTopic = "avty_t"

	FieldQoS    = "qos"
	FieldRetain = "ret"
)

// Sensor and binary sensor fields.
const (
	FieldExpireMeasurementsAfter   = "exp_aft"
	FieldForceUpdate               = "frc_upd"
	FieldAttributesTopic           = "json_attr_t"
	FieldSuggestedDisplayPrecision = "sug_dsp_prc"
	FieldStateClass                = "stat_cla"
	FieldUnitOfMeasurement         = "unit_of_meas"

	FieldPayloadOn  = "pl_on"
	FieldPayloadOff = "pl_off"
	FieldOffDelay   = "off_dly"
)

const (
	// IDSep is the separator used to separate various parts of a device ID. It is also used as a replacement for tokens
	// that are not allowed in an ID string.
	IDSep = "_"
)

var (
	// IDSanitizer is a strings.Replacer that sanitizes an ID for use in an MQTT Topic or a Home Assistant unique id.
	IDSanitizer = strings.NewReplacer(
		" ", IDSep,
		":", IDSep,
		"-", IDSep,
		".", IDSep,
		"!", IDSep,
		"?", IDSep,
		mqtt.SingleLevelWildcard, IDSep,
		mqtt.MultiLevelWildcard, IDSep,
		mqtt.TopicSeparator, IDSep,
	)
)
