package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fleetstats/config"
)

// Status payloads published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

const subscribeQoS = 1

// OutboundMessage is the envelope published on the materialized-view
// update topic.
type OutboundMessage struct {
	MessageType string      `json:"mt"`
	Data        interface{} `json:"data"`
}

// Client wraps the MQTT client. Reconnects are handled by the underlying
// client; on every (re)connect the retained online status is republished
// and all subscriptions are re-established.
type Client struct {
	client      mqtt.Client
	statusTopic string

	mu            sync.Mutex
	subscriptions map[string]mqtt.MessageHandler
}

// NewClient builds an MQTT client with a unique per-process identifier and
// an offline will on the status topic.
func NewClient(cfg config.Config) *Client {
	c := &Client{
		statusTopic:   cfg.StatusTopic,
		subscriptions: make(map[string]mqtt.MessageHandler),
	}

	clientID := fmt.Sprintf("fleetstats-%s", uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(clientID).
		SetUsername(cfg.BrokerUsername).
		SetPassword(cfg.BrokerPassword).
		SetConnectTimeout(cfg.BrokerConnectTimeout).
		SetConnectRetry(true).
		SetConnectRetryInterval(cfg.BrokerReconnectPeriod).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(4 * cfg.BrokerReconnectPeriod).
		SetWill(cfg.StatusTopic, StatusOffline, subscribeQoS, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("Broker connection lost, reconnecting")
		})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect establishes the broker connection.
func (c *Client) Connect() error {
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("error connecting to broker: %w", err)
	}
	return nil
}

// Subscribe establishes a durable subscription. The handler receives the
// raw message payload. Subscriptions survive reconnects; messages lost
// between disconnect and resubscribe are recovered by the idempotent
// processing downstream.
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	wrapped := func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	}

	c.mu.Lock()
	c.subscriptions[topic] = wrapped
	c.mu.Unlock()

	token := c.client.Subscribe(topic, subscribeQoS, wrapped)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("error subscribing to %s: %w", topic, err)
	}

	log.Info().Str("topic", topic).Msg("Subscribed to topic")
	return nil
}

// Unsubscribe stops message delivery for the topic.
func (c *Client) Unsubscribe(topic string) error {
	c.mu.Lock()
	delete(c.subscriptions, topic)
	c.mu.Unlock()

	token := c.client.Unsubscribe(topic)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("error unsubscribing from %s: %w", topic, err)
	}
	return nil
}

// Publish sends a typed message on the given topic, fire-and-forget with
// at-least-once transport semantics.
func (c *Client) Publish(topic, messageType string, payload interface{}) error {
	body, err := json.Marshal(OutboundMessage{MessageType: messageType, Data: payload})
	if err != nil {
		return fmt.Errorf("error marshalling outbound message: %w", err)
	}

	token := c.client.Publish(topic, subscribeQoS, false, body)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("error publishing to %s: %w", topic, err)
	}
	return nil
}

// Close publishes the retained offline status and disconnects.
func (c *Client) Close() {
	token := c.client.Publish(c.statusTopic, subscribeQoS, true, StatusOffline)
	token.Wait()
	c.client.Disconnect(250)
	log.Info().Msg("Disconnected from broker")
}

// onConnect runs on every successful connect, including reconnects.
func (c *Client) onConnect(client mqtt.Client) {
	log.Info().Msg("Connected to broker")

	token := client.Publish(c.statusTopic, subscribeQoS, true, StatusOnline)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Error().Err(err).Msg("Failed to publish online status")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, handler := range c.subscriptions {
		token := client.Subscribe(topic, subscribeQoS, handler)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to resubscribe")
		}
	}
}
