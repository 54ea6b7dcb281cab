// Package rfmbridge exposes RFM sensor nodes to Home Assistant. Gateways relay binary node frames to MQTT; a Bridge
// decodes them with package payload and publishes one Home Assistant device per node (plus one per gateway) using MQTT
// device discovery.
//
// Nodes are registered the first time a frame arrives for them and are never removed. Every entity is keyed by
// `<gateway id>_<node id>_<quantity>`, where the gateway id is its MAC address with ':' replaced by '_'.
//
// See https://www.home-assistant.io/integrations/mqtt/#device-discovery-payload for the discovery format.
package rfmbridge
