package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler receives the raw payload of a delivered message.
type Handler func(payload []byte)

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
}

// ErrPublishTimeout is returned when the broker does not acknowledge a publish in time.
var ErrPublishTimeout = errors.New("publish not acknowledged")

// Client manages the MQTT connection. Subscriptions are replayed from the
// on-connect handler so they survive automatic reconnects.
type Client struct {
	client mqtt.Client
	qos    byte

	mu   sync.Mutex
	subs map[string]Handler
}

// NewClient connects to the broker. Connection failures are fatal to the caller;
// after the first connect paho reconnects on its own.
func NewClient(config ClientConfig) (*Client, error) {
	c := &Client{
		qos:  config.QoS,
		subs: make(map[string]Handler),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetDefaultPublishHandler(messagePubHandler)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	c.client = mqtt.NewClient(opts)

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out after %s", config.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.Println("bus: connected to broker:", config.Broker)
	return c, nil
}

// Subscribe registers h for topic and subscribes immediately when connected.
func (c *Client) Subscribe(topic string, h Handler) error {
	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()

	if !c.client.IsConnected() {
		// onConnect picks it up.
		return nil
	}
	return c.subscribe(c.client, topic, h)
}

func (c *Client) subscribe(client mqtt.Client, topic string, h Handler) error {
	token := client.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	log.Printf("bus: subscribed to topic: %s", topic)
	return nil
}

func (c *Client) onConnect(client mqtt.Client) {
	log.Println("bus: connection established")

	c.mu.Lock()
	subs := make(map[string]Handler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		// Waiting on a token inside the handler would block paho's router.
		go func(topic string, h Handler) {
			if err := c.subscribe(client, topic, h); err != nil {
				log.Printf("bus: %v", err)
			}
		}(topic, h)
	}
}

// Publish JSON-encodes v and publishes it to topic, waiting for the broker
// acknowledgement until ctx is done.
func (c *Client) Publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	token := c.client.Publish(topic, c.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w on %s: %v", ErrPublishTimeout, topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close closes the MQTT client connection
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Println("bus: disconnected")
}

var messagePubHandler mqtt.MessageHandler = func(client mqtt.Client, msg mqtt.Message) {
	log.Printf("bus: unexpected message on topic: %s", msg.Topic())
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("bus: connection lost: %v", err)
}
