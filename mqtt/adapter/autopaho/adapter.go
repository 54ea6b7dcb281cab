// Package autopaho adapts an eclipse/paho.golang autopaho connection to the mqtt.Writer and mqtt.Subscriber interfaces
// used by rfmbridge.
package autopaho

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	rfmlog "github.com/nlowe/rfmbridge/log"
	"github.com/nlowe/rfmbridge/mqtt"
)

// Client is a connected autopaho.ConnectionManager. Subscriptions made through Client are remembered and re-sent every
// time the connection comes back up.
type Client struct {
	mu sync.Mutex

	conn *autopaho.ConnectionManager
	r    paho.Router

	subscriptions map[string]paho.SubscribeOptions

	log *slog.Logger
}

var (
	_ mqtt.Writer     = &Client{}
	_ mqtt.Subscriber = &Client{}
)

// Dial starts an autopaho connection with the provided config and waits for it to come up. Any OnConnectionUp callback
// in config is still invoked, after subscriptions have been restored.
func Dial(ctx context.Context, config autopaho.ClientConfig) (*Client, error) {
	c := &Client{
		r: paho.NewStandardRouter(),

		subscriptions: map[string]paho.SubscribeOptions{},

		log: rfmlog.ForComponent("autopaho"),
	}

	originalOnConnUp := config.OnConnectionUp
	config.OnConnectionUp = func(manager *autopaho.ConnectionManager, connack *paho.Connack) {
		c.resubscribe(ctx)

		if originalOnConnUp != nil {
			originalOnConnUp(manager, connack)
		}
	}

	// Hold the lock while the connection starts so the first OnConnectionUp callback (which calls c.resubscribe)
	// blocks until after c.conn is assigned.
	c.mu.Lock()
	c.log.Info("Connecting to mqtt broker")
	conn, err := autopaho.NewConnection(ctx, config)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("mqtt: connect: %w", err)
	}

	c.conn = conn
	c.mu.Unlock()

	c.log.Debug("Waiting for connection to be ready")
	if err = conn.AwaitConnection(ctx); err != nil {
		return nil, fmt.Errorf("mqtt: wait for connection: %w", err)
	}

	c.log.Debug("Connected to mqtt broker")
	conn.AddOnPublishReceived(func(rx autopaho.PublishReceived) (bool, error) {
		c.r.Route(rx.Packet.Packet())
		return true, nil
	})

	return c, nil
}

func (c *Client) resubscribe(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subscriptions) == 0 {
		return
	}

	sub := &paho.Subscribe{
		Subscriptions: make([]paho.SubscribeOptions, 0, len(c.subscriptions)),
	}

	for _, s := range c.subscriptions {
		sub.Subscriptions = append(sub.Subscriptions, s)
	}

	c.log.With(slog.Int("count", len(sub.Subscriptions))).Debug("Reconnected to MQTT. Re-sending subscriptions.")
	if _, err := c.conn.Subscribe(ctx, sub); err != nil {
		c.log.With(rfmlog.Error(err)).Error("Failed to re-subscribe to mqtt topics")
	}
}

func (c *Client) WriteTopic(ctx context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
	c.log.With(slog.String("topic", topic), slog.Any("options", options), slog.Int("size", len(value))).Debug("Publishing payload")

	_, err := c.conn.Publish(ctx, &paho.Publish{
		QoS:     uint8(options.QoS),
		Retain:  options.Retain,
		Topic:   topic,
		Payload: value,
	})

	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

func (c *Client) Subscribe(ctx context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(subscriptions) == 0 {
		return nil
	}

	for _, s := range subscriptions {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	sub := &paho.Subscribe{
		Subscriptions: make([]paho.SubscribeOptions, len(subscriptions)),
	}

	for i, s := range subscriptions {
		opts := paho.SubscribeOptions{
			Topic:             s.Topic,
			QoS:               uint8(s.Options.QoS),
			RetainHandling:    uint8(s.Options.RetainHandling),
			NoLocal:           s.Options.NoLocal,
			RetainAsPublished: s.Options.RetainAsPublished,
		}

		c.subscriptions[s.Topic] = opts
		sub.Subscriptions[i] = opts

		c.r.RegisterHandler(s.Topic, func(publish *paho.Publish) {
			handler.ServeMQTT(c, publish.Topic, publish.Payload)
		})
	}

	c.log.With(slog.Any("subscriptions", subscriptions)).Debug("Subscribing to MQTT Topic(s)")
	if _, err := c.conn.Subscribe(ctx, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

func (c *Client) Unsubscribe(ctx context.Context, topics ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range topics {
		delete(c.subscriptions, t)
		c.r.UnregisterHandler(t)
	}

	c.log.With(slog.Any("topics", topics)).Debug("Unsubscribing from MQTT Topic(s)")
	_, err := c.conn.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: topics,
	})

	return err
}

// Disconnect cleanly closes the connection to the broker.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.conn.Disconnect(ctx)
}
