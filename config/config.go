// Package config handles rfmbridge configuration loading.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nlowe/rfmbridge"
	"github.com/nlowe/rfmbridge/discovery"
	"github.com/nlowe/rfmbridge/log"
	"github.com/nlowe/rfmbridge/mqtt"
)

// ErrTopicOverlap is returned by Config.Validate when the bridge would subscribe to its own publishes.
var ErrTopicOverlap = errors.New("topic overlaps node topics")

// FileName is the name of the config file looked for in each search directory.
const FileName = "rfmbridge.yaml"

// DefaultSearchPaths returns the config file search order after an explicit -config path:
// ./rfmbridge.yaml, ~/.config/rfmbridge/rfmbridge.yaml, /etc/rfmbridge/rfmbridge.yaml.
func DefaultSearchPaths() []string {
	paths := []string{FileName}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rfmbridge", FileName))
	}

	paths = append(paths, filepath.Join("/etc", "rfmbridge", FileName))
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist. Otherwise, DefaultSearchPaths is searched
// and the first file that exists is returned.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all rfmbridge configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MQTT     MQTTConfig      `yaml:"mqtt"`
	Gateways []GatewayConfig `yaml:"gateways"`
	Store    StoreConfig     `yaml:"store"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// MQTTConfig configures the broker connection and the topics used on it.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. mqtt://localhost:1883 or mqtts://broker:8883.
	Broker   string `yaml:"broker"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`

	NodeTopicPrefix string `yaml:"node_topic_prefix"`
	StatePrefix     string `yaml:"state_prefix"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	QoS int `yaml:"qos"`
	// KeepAlive is in seconds.
	KeepAlive uint16 `yaml:"keepalive"`

	// ExpireAfter makes Home Assistant mark node entities unavailable when they are not updated for this long.
	ExpireAfter time.Duration `yaml:"expire_after"`
}

// GatewayConfig defines one gateway.
type GatewayConfig struct {
	MAC           string `yaml:"mac"`
	Name          string `yaml:"name"`
	SuggestedArea string `yaml:"suggested_area"`
}

// StoreConfig configures node persistence. Persistence is disabled when Path is empty.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus endpoint. It is disabled when Listen is empty.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads configuration from a YAML file, expanding environment variables first. Unset values are filled from
// Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.MQTT.ClientID = cmp.Or(cfg.MQTT.ClientID, newClientID())
	return cfg, nil
}

// Default returns a default configuration. It has no gateways, so it does not pass Validate on its own.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: log.FormatText,
		MQTT: MQTTConfig{
			Broker:          "mqtt://localhost:1883",
			ClientID:        newClientID(),
			NodeTopicPrefix: rfmbridge.DefaultNodeTopicPrefix,
			StatePrefix:     rfmbridge.DefaultStatePrefix,
			DiscoveryPrefix: discovery.DefaultPrefix,
			KeepAlive:       30,
		},
	}
}

func newClientID() string {
	return "rfmbridge-" + uuid.NewString()
}

// BrokerURL parses MQTTConfig.Broker. Only mqtt, tcp, mqtts, ssl, tls, ws and wss schemes are accepted.
func (c *MQTTConfig) BrokerURL() (*url.URL, error) {
	u, err := url.Parse(c.Broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt.broker: %w", err)
	}

	switch u.Scheme {
	case "mqtt", "tcp", "mqtts", "ssl", "tls", "ws", "wss":
	default:
		return nil, fmt.Errorf("mqtt.broker: unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("mqtt.broker: missing host in %q", c.Broker)
	}

	return u, nil
}

// QualityOfService converts MQTTConfig.QoS.
func (c *MQTTConfig) QualityOfService() (mqtt.QualityOfService, error) {
	return mqtt.ParseQualityOfService(c.QoS)
}

// BridgeGateways validates every configured gateway and converts them for rfmbridge.NewBridge. Invalid MACs return
// rfmbridge.ErrInvalidMAC and MACs that are equal after normalization return rfmbridge.ErrDuplicateGateway.
func (c *Config) BridgeGateways() ([]rfmbridge.Gateway, error) {
	if len(c.Gateways) == 0 {
		return nil, fmt.Errorf("gateways: %w", rfmbridge.ErrNoGateways)
	}

	seen := make(map[string]bool, len(c.Gateways))
	result := make([]rfmbridge.Gateway, 0, len(c.Gateways))

	var errs []error
	for i, gc := range c.Gateways {
		g, err := rfmbridge.NewGateway(gc.MAC, gc.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("gateways[%d]: %w", i, err))
			continue
		}

		if seen[g.MAC] {
			errs = append(errs, fmt.Errorf("gateways[%d]: %w: %s", i, rfmbridge.ErrDuplicateGateway, g.MAC))
			continue
		}

		seen[g.MAC] = true
		g.SuggestedArea = gc.SuggestedArea
		result = append(result, g)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return result, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	switch c.LogFormat {
	case "", log.FormatText, log.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log_format: unsupported format %q", c.LogFormat))
	}

	if _, err := c.MQTT.BrokerURL(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.MQTT.QualityOfService(); err != nil {
		errs = append(errs, fmt.Errorf("mqtt.qos: %w", err))
	}

	nodeFilter := mqtt.Subscription{
		Topic: mqtt.JoinTopic(c.MQTT.NodeTopicPrefix, mqtt.SingleLevelWildcard, mqtt.MultiLevelWildcard),
	}
	if err := nodeFilter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mqtt.node_topic_prefix: %w", err))
	}

	for name, prefix := range map[string]string{
		"mqtt.state_prefix":     c.MQTT.StatePrefix,
		"mqtt.discovery_prefix": c.MQTT.DiscoveryPrefix,
	} {
		if err := mqtt.ValidateTopic(prefix); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		// The bridge would receive everything it publishes there as node frames.
		if _, under := mqtt.CutTopicPrefix(prefix, c.MQTT.NodeTopicPrefix); under {
			errs = append(errs, fmt.Errorf("%s: %w: %q is under node_topic_prefix %q", name, ErrTopicOverlap, prefix, c.MQTT.NodeTopicPrefix))
		}
	}

	if c.MQTT.ExpireAfter < 0 {
		errs = append(errs, errors.New("mqtt.expire_after: must not be negative"))
	}

	if _, err := c.BridgeGateways(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// BridgeOptions returns the rfmbridge.Options described by this configuration. The caller sets Options.Store.
func (c *Config) BridgeOptions() (rfmbridge.Options, error) {
	qos, err := c.MQTT.QualityOfService()
	if err != nil {
		return rfmbridge.Options{}, err
	}

	return rfmbridge.Options{
		NodeTopicPrefix: c.MQTT.NodeTopicPrefix,
		StatePrefix:     c.MQTT.StatePrefix,
		DiscoveryPrefix: c.MQTT.DiscoveryPrefix,
		QoS:             qos,
		ExpireAfter:     c.MQTT.ExpireAfter,
	}, nil
}
