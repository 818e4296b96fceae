// Package mqtt is the ingestion transport: it owns the broker connection,
// subscribes to the device upload topic, and feeds inbound messages to the
// ingestion service sequentially on the client's network worker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/camthink-ai/AIToolStack/internal/config"
	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

const recentErrorsKept = 10

// MessageHandler receives every inbound upload message. Implementations
// must not panic; processing errors are theirs to absorb.
type MessageHandler interface {
	HandleMessage(topic string, payload []byte)
}

// ConnectionError is one entry in the recent-errors ring.
type ConnectionError struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
}

// ConnectionStatus is a point-in-time view of the broker connection.
type ConnectionStatus struct {
	Connected          bool              `json:"connected"`
	Broker             string            `json:"broker"`
	ConnectionCount    int               `json:"connection_count"`
	DisconnectionCount int               `json:"disconnection_count"`
	LastConnectAt      *time.Time        `json:"last_connect_time,omitempty"`
	LastDisconnectAt   *time.Time        `json:"last_disconnect_time,omitempty"`
	RecentErrors       []ConnectionError `json:"recent_errors"`
}

// Client wraps the paho MQTT client with upload-topic subscription,
// acknowledgement publishing and connection statistics.
type Client struct {
	cfg     config.MQTTConfig
	handler MessageHandler
	client  paho.Client

	mu     sync.Mutex
	status ConnectionStatus
}

func NewClient(cfg config.MQTTConfig, handler MessageHandler) *Client {
	c := &Client{cfg: cfg, handler: handler}
	c.status.Broker = fmt.Sprintf("%s:%d", cfg.Broker, cfg.Port)

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(fmt.Sprintf("annotator_server_%.8s", uuid.New().String())).
		SetCleanSession(true).
		SetKeepAlive(cfg.KeepAlive).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(cfg.MaxReconnectDelay).
		SetOrderMatters(true)

	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		log.Infof("reconnecting to broker at %s", c.status.Broker)
	})

	c.client = paho.NewClient(opts)
	return c
}

// Start connects to the broker. The subscription happens in the connect
// handler so it is re-established after every reconnect.
func (c *Client) Start() error {
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		c.recordError("connect_error", err.Error())
		return fmt.Errorf("connect to broker %s: %w", c.status.Broker, err)
	}
	return nil
}

func (c *Client) Stop() {
	log.Info("stopping MQTT client")
	c.client.Disconnect(250)
	c.mu.Lock()
	c.status.Connected = false
	c.mu.Unlock()
}

func (c *Client) onConnect(client paho.Client) {
	c.mu.Lock()
	c.status.Connected = true
	c.status.ConnectionCount++
	now := time.Now()
	c.status.LastConnectAt = &now
	c.mu.Unlock()

	log.Infof("connected to broker at %s", c.status.Broker)

	token := client.Subscribe(c.cfg.UploadTopic, c.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		c.handler.HandleMessage(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		c.recordError("subscribe_error", err.Error())
		log.Errorf("subscribe to topic %s: %v", c.cfg.UploadTopic, err)
		return
	}
	log.Infof("subscribed to topic: %s", c.cfg.UploadTopic)
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.mu.Lock()
	c.status.Connected = false
	c.status.DisconnectionCount++
	now := time.Now()
	c.status.LastDisconnectAt = &now
	c.mu.Unlock()

	c.recordError("disconnect_error", err.Error())
	log.Warnf("disconnected from broker unexpectedly: %v", err)
}

// PublishAck sends an acknowledgement to the device's response topic.
func (c *Client) PublishAck(deviceID string, ack domain.Ack) error {
	payload, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("marshal ack: %w", err)
	}
	topic := c.cfg.ResponseTopicPrefix + "/" + deviceID
	token := c.client.Publish(topic, c.cfg.QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish ack to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) recordError(errType, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.RecentErrors = append(c.status.RecentErrors, ConnectionError{
		Time:    time.Now(),
		Type:    errType,
		Message: message,
	})
	if len(c.status.RecentErrors) > recentErrorsKept {
		c.status.RecentErrors = c.status.RecentErrors[len(c.status.RecentErrors)-recentErrorsKept:]
	}
}

func (c *Client) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status
	status.RecentErrors = append([]ConnectionError(nil), c.status.RecentErrors...)
	return status
}
