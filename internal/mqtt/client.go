// Package mqtt connects the node to the CoreIoT device API: periodic
// telemetry, shared attributes and the LED control RPCs.
package mqtt

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// CoreIoT device API topics
const (
	TopicTelemetry   = "v1/devices/me/telemetry"
	TopicAttributes  = "v1/devices/me/attributes"
	TopicRPCRequest  = "v1/devices/me/rpc/request/+"
	topicRPCResponse = "v1/devices/me/rpc/response/%s"
)

// Broker is the subset of an MQTT session the CoreIoT components need
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	IsConnected() bool
	// OnConnect registers fn to run after every (re)connect
	OnConnect(fn func())
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker      string        // e.g. tcp://app.coreiot.io:1883
	ClientID    string        // Generated when empty
	Token       string        // CoreIoT device access token, sent as the username
	NetworkWait time.Duration // Bound on the initial connect before going background
}

// DefaultClientConfig returns default configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Broker:      "tcp://app.coreiot.io:1883",
		NetworkWait: 30 * time.Second,
	}
}

// NewClientID returns a random client identifier in the node's format
func NewClientID() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ESP32-" + strings.ToUpper(id[:8])
}

// Client manages the MQTT connection
type Client struct {
	client mqtt.Client
	config ClientConfig

	mu        sync.Mutex
	onConnect []func()
}

// NewClient creates the client and returns without waiting for the broker.
// The connection is attempted in the background for up to NetworkWait, then
// retried until ctx is cancelled; publishing fails until it succeeds.
func NewClient(ctx context.Context, config ClientConfig) (*Client, error) {
	if config.Broker == "" {
		return nil, fmt.Errorf("failed to create MQTT client: broker address is empty")
	}
	if config.ClientID == "" {
		config.ClientID = NewClientID()
	}
	if config.NetworkWait <= 0 {
		config.NetworkWait = DefaultClientConfig().NetworkWait
	}

	c := &Client{config: config}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Token)
	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	c.client = mqtt.NewClient(opts)

	go c.run(ctx)
	return c, nil
}

func (c *Client) run(ctx context.Context) {
	if err := c.connect(ctx, c.config.NetworkWait); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("MQTT Client: Broker %s not reachable after %v, retrying in background: %v",
			c.config.Broker, c.config.NetworkWait, err)
		c.reconnectLoop(ctx)
		return
	}

	log.Printf("MQTT Client: Connected to broker %s as %s", c.config.Broker, c.config.ClientID)
}

// connect retries the initial connection with exponential backoff for at most wait
func (c *Client) connect(ctx context.Context, wait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = wait

	return backoff.Retry(func() error {
		token := c.client.Connect()
		if token.Wait() && token.Error() != nil {
			log.Printf("MQTT Client: Connect attempt failed: %v", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

func (c *Client) reconnectLoop(ctx context.Context) {
	for ctx.Err() == nil {
		// MaxElapsedTime 0 never gives up; only ctx stops the retry
		if err := c.connect(ctx, 0); err == nil {
			log.Printf("MQTT Client: Connected to broker %s as %s", c.config.Broker, c.config.ClientID)
			return
		}
	}
}

func (c *Client) handleConnect(mqtt.Client) {
	log.Println("MQTT: Connection established")

	c.mu.Lock()
	handlers := append([]func(){}, c.onConnect...)
	c.mu.Unlock()

	for _, fn := range handlers {
		go fn()
	}
}

// OnConnect registers fn to run after every (re)connect. If the client is
// already connected fn also runs immediately.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()

	if c.IsConnected() {
		go fn()
	}
}

// Publish sends payload at QoS 0 and waits for the write
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("failed to publish to %s: not connected", topic)
	}
	token := c.client.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// Subscribe registers handler for topic at QoS 0
func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	log.Printf("MQTT Client: Subscribed to %s", topic)
	return nil
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close closes the MQTT client connection
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Println("MQTT Client: Disconnected")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT: Connection lost: %v", err)
}
