package publish

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sbkit/sbscan/config"
	"github.com/sbkit/sbscan/logger"
	"github.com/sbkit/sbscan/scanner"
	"github.com/sbkit/sbscan/sensor"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Publisher publishes decoded sensor readings to an MQTT broker.
type Publisher struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	logger logger.Logger
}

// message is the JSON payload published per merged record.
type message struct {
	Addr     string         `json:"addr"`
	RSSI     int8           `json:"rssi"`
	DeviceID *uint16        `json:"device_id,omitempty"`
	Model    string         `json:"model"`
	Reading  sensor.Reading `json:"reading"`
	Time     time.Time      `json:"time"`
}

// Connect builds the paho client from the configuration and establishes the
// initial broker connection.
func Connect(cfg config.MQTTConfig, l logger.Logger) (*Publisher, error) {
	if l == nil {
		l = logger.GetLogger()
	}

	p := &Publisher{cfg: cfg, logger: l}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		p.logger.Info("mqtt connected", "broker", cfg.Broker)
		p.publishStatus("online")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = pahomqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	return p, nil
}

// PublishRecord decodes the record's service fragment and publishes the
// reading. Records whose fragment does not decode are skipped with a debug
// log; that is expected for unknown models.
func (p *Publisher) PublishRecord(rec scanner.DeviceRecord) error {
	reading, err := sensor.Decode(rec.Service())
	if err != nil {
		p.logger.Debug("skipping unpublishable record", "addr", rec.Addr, "reason", err)
		return nil
	}

	msg := message{
		Addr:    rec.Addr.String(),
		RSSI:    rec.RSSI,
		Model:   modelName(reading.Model()),
		Reading: reading,
		Time:    time.Now().UTC(),
	}
	if id, ok := rec.DeviceID(); ok {
		msg.DeviceID = &id
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	return p.publish(readingTopic(p.cfg.TopicPrefix, reading.Model(), rec.Addr), payload, true)
}

// Close flags the bridge offline and disconnects.
func (p *Publisher) Close() {
	if p.client == nil {
		return
	}
	p.publishStatus("offline")
	p.client.Disconnect(uint(publishTimeout.Milliseconds()))
}

func (p *Publisher) publish(topic string, payload []byte, retained bool) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(topic, byte(p.cfg.QoS), retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

func (p *Publisher) publishStatus(status string) {
	if err := p.publish(statusTopic(p.cfg.TopicPrefix), []byte(status), true); err != nil {
		p.logger.Warn("status publish failed", "error", err)
	}
}

// buildClientOptions maps the configuration onto paho client options,
// including the last-will message on the status topic.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetWill(statusTopic(cfg.TopicPrefix), "offline", byte(cfg.QoS), true)

	return opts
}

func statusTopic(prefix string) string {
	return prefix + "/bridge/status"
}

func readingTopic(prefix string, model byte, addr scanner.Addr) string {
	return fmt.Sprintf("%s/%s/%s", prefix, modelName(model), addr)
}

func modelName(model byte) string {
	switch model {
	case sensor.ModelMeter:
		return "meter"
	case sensor.ModelBot:
		return "bot"
	case sensor.ModelMotion:
		return "motion"
	case sensor.ModelContact:
		return "contact"
	default:
		return "unknown"
	}
}
