package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/nlowe/rfmbridge"
	"github.com/nlowe/rfmbridge/config"
	"github.com/nlowe/rfmbridge/hass"
	rfmlog "github.com/nlowe/rfmbridge/log"
	"github.com/nlowe/rfmbridge/mqtt"
	adapter "github.com/nlowe/rfmbridge/mqtt/adapter/autopaho"
)

// announce publishes availability and discovery for every device, logging failures.
func announce(ctx context.Context, bridge *rfmbridge.Bridge, w mqtt.Writer, reason string) {
	log := rfmlog.ForComponent("main").With(slog.String("reason", reason))

	if err := bridge.Announce(ctx, w); err != nil {
		log.With(rfmlog.Error(err)).Error("Failed to announce devices")
	}
}

func newClientConfig(cfg *config.MQTTConfig, brokerURL *url.URL, bridge *rfmbridge.Bridge) (autopaho.ClientConfig, error) {
	log := rfmlog.ForComponent("mqtt")

	qos, err := cfg.QualityOfService()
	if err != nil {
		return autopaho.ClientConfig{}, err
	}

	availability, err := hass.AvailabilityMarshaler(hass.Unavailable)
	if err != nil {
		return autopaho.ClientConfig{}, err
	}

	mqttConfig := autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  cfg.KeepAlive,

		// Keep the session for a minute so a short broker restart does not drop subscriptions.
		SessionExpiryInterval: 60,

		ConnectUsername: cfg.Username,

		WillMessage: &paho.WillMessage{
			Topic:   bridge.AvailabilityTopic(),
			Payload: availability,
			QoS:     byte(qos),
			Retain:  true,
		},

		OnConnectError: func(err error) {
			log.With(rfmlog.Error(err)).Error("mqtt connection error")
		},

		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			OnClientError: func(err error) {
				log.With(rfmlog.Error(err)).Error("mqtt client error")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				log := log.With(slog.Int("reason", int(d.ReasonCode)))

				if d.Properties != nil {
					log = log.With(
						slog.Group(
							"properties",
							slog.String("reference", d.Properties.ServerReference),
							slog.String("reason", d.Properties.ReasonString),
						),
					)
				}

				log.Warn("Disconnected from server")
			},
		},
	}

	if cfg.Password != "" {
		mqttConfig.ConnectPassword = []byte(cfg.Password)
	}

	switch brokerURL.Scheme {
	case "mqtts", "ssl", "tls":
		mqttConfig.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return mqttConfig, nil
}

// dialMQTT connects to the configured broker. The connection's last will marks every entity unavailable, and every
// reconnect after the first re-announces all devices.
func dialMQTT(ctx context.Context, cfg *config.MQTTConfig, bridge *rfmbridge.Bridge) (*adapter.Client, error) {
	log := rfmlog.ForComponent("mqtt")

	brokerURL, err := cfg.BrokerURL()
	if err != nil {
		return nil, err
	}

	mqttConfig, err := newClientConfig(cfg, brokerURL, bridge)
	if err != nil {
		return nil, err
	}

	// The client is only known once Dial returns; the first OnConnectionUp happens before that and is covered by
	// the startup announce.
	var connected atomic.Pointer[adapter.Client]
	mqttConfig.OnConnectionUp = func(*autopaho.ConnectionManager, *paho.Connack) {
		log.Info("mqtt connected")

		if c := connected.Load(); c != nil {
			go announce(ctx, bridge, c, "reconnected")
		}
	}

	log.With(slog.String("broker", brokerURL.Redacted())).Info("Connecting to mqtt")
	client, err := adapter.Dial(ctx, mqttConfig)
	if err != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", err)
	}

	connected.Store(client)
	log.With(slog.String("broker", brokerURL.Redacted())).Info("Connected to mqtt")

	return client, nil
}
