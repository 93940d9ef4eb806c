package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ============================================================================
// MQTT publisher
// ============================================================================
// Publishes the light state (retained) and every executed action (not
// retained) so home automation can follow the remote. Commands published to
// <prefix>/set use the IPC event envelope and are fed into the daemon.
//
// Topics:
//   <prefix>/status  online/offline (retained, also the LWT)
//   <prefix>/state   LightState JSON (retained)
//   <prefix>/action  {"action": ..., "at": ...}
//   <prefix>/set     inbound event envelopes
// ============================================================================

var (
	ErrNotConnected  = errors.New("mqtt: not connected")
	ErrPublishFailed = errors.New("mqtt: publish failed")
	ErrConnectFailed = errors.New("mqtt: connection failed")
)

const (
	mqttConnectTimeout    = 10 * time.Second
	mqttPublishTimeout    = 5 * time.Second
	mqttDisconnectQuiesce = 1000 // milliseconds
	mqttKeepAlive         = 60 * time.Second
)

type mqttTopics struct {
	prefix string
}

func (t mqttTopics) Status() string { return t.prefix + "/status" }
func (t mqttTopics) State() string  { return t.prefix + "/state" }
func (t mqttTopics) Action() string { return t.prefix + "/action" }
func (t mqttTopics) Set() string    { return t.prefix + "/set" }

// MQTTClient wraps paho with the daemon's topics.
type MQTTClient struct {
	client    pahomqtt.Client
	topics    mqttTopics
	qos       byte
	clientID  string
	connected atomic.Bool
	logger    *slog.Logger
}

func statusPayload(status, clientID, reason string) string {
	b, _ := json.Marshal(struct {
		Status    string `json:"status"`
		ClientID  string `json:"client_id"`
		Reason    string `json:"reason,omitempty"`
		Timestamp string `json:"timestamp"`
	}{status, clientID, reason, time.Now().UTC().Format(time.RFC3339)})
	return string(b)
}

// ConnectMQTT connects to the broker, announces online status and
// subscribes to the command topic. Commands are forwarded to events without
// blocking.
func ConnectMQTT(cfg MQTTConfig, events chan<- Event, logger *slog.Logger) (*MQTTClient, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "irbrainz-" + uuid.New().String()
	}

	c := &MQTTClient{
		topics:   mqttTopics{prefix: cfg.TopicPrefix},
		qos:      cfg.QoS,
		clientID: clientID,
		logger:   logger,
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(mqttKeepAlive)
	opts.SetWill(c.topics.Status(), statusPayload("offline", clientID, "unexpected_disconnect"), 1, true)

	opts.SetOnConnectHandler(func(pc pahomqtt.Client) {
		c.connected.Store(true)
		pc.Publish(c.topics.Status(), c.qos, true, statusPayload("online", clientID, ""))
		if events != nil {
			pc.Subscribe(c.topics.Set(), c.qos, c.commandHandler(events))
		}
		logger.Info("mqtt connected", "client_id", clientID)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.connected.Store(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectFailed, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	c.connected.Store(true)

	return c, nil
}

func (c *MQTTClient) commandHandler(events chan<- Event) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		ev, err := UnmarshalEvent(msg.Payload())
		if err != nil {
			c.logger.Warn("mqtt command rejected", "topic", msg.Topic(), "error", err)
			return
		}
		select {
		case events <- ev:
		default:
			c.logger.Warn("mqtt command dropped (event queue full)", "topic", msg.Topic())
		}
	}
}

// IsConnected reports the last known connection state.
func (c *MQTTClient) IsConnected() bool {
	return c.connected.Load() && c.client.IsConnected()
}

// Publish sends payload to topic and waits for the broker acknowledgment.
func (c *MQTTClient) Publish(topic string, payload []byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, mqttPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close announces a graceful offline status and disconnects.
func (c *MQTTClient) Close() {
	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), c.qos, true, statusPayload("offline", c.clientID, "graceful_shutdown"))
		token.WaitTimeout(mqttPublishTimeout)
	}
	c.client.Disconnect(mqttDisconnectQuiesce)
	c.connected.Store(false)
}

// mqttPublisher is the part of MQTTClient the publish loop needs.
type mqttPublisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

type mqttActionPayload struct {
	Action string    `json:"action"`
	Repeat int       `json:"repeat"`
	At     time.Time `json:"at"`
}

// RunMQTTPublisher publishes state broadcasts until ctx is canceled or src
// is closed. Publishing blocks on broker acks, so it runs in its own
// goroutine fed by a buffered channel.
func RunMQTTPublisher(ctx context.Context, pub mqttPublisher, topics mqttTopics, src <-chan StateBroadcast, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-src:
			if !ok {
				return
			}
			ev, ok := b.(BroadcastLightChanged)
			if !ok {
				continue
			}

			state, err := json.Marshal(ev.State)
			if err != nil {
				logger.Warn("mqtt marshal state failed", "error", err)
				continue
			}
			if err := pub.Publish(topics.State(), state, true); err != nil {
				logger.Debug("mqtt state publish failed", "error", err)
			}

			if ev.Action == "" {
				continue
			}
			action, err := json.Marshal(mqttActionPayload{Action: ev.Action, Repeat: ev.Repeat, At: ev.At})
			if err != nil {
				continue
			}
			if err := pub.Publish(topics.Action(), action, false); err != nil {
				logger.Debug("mqtt action publish failed", "error", err)
			}
		}
	}
}
