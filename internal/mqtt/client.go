package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/observability/metrics"
)

// client implements the Client interface on paho.
type client struct {
	config         Config
	internalClient mqtt.Client
	mu             sync.Mutex
	metrics        Metrics
	log            logger.Logger
}

// NewClient creates an MQTT client. A nil metrics disables metrics.
func NewClient(cfg Config, m Metrics, log logger.Logger) Client {
	if m == nil {
		m = noopMetrics{}
	}
	if log == nil {
		log = GetLogger()
	}
	return &client{config: cfg, metrics: m, log: log}
}

// Connect resolves the broker host and connects. paho keeps retrying in the
// background when the first attempt does not complete within the connect
// timeout.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		return c.fail(errors.NewStd("invalid broker URL"), errors.CategoryConfiguration)
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return c.fail(err, errors.CategoryMQTTPublish)
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.metrics.RecordReconnect()
	})

	c.internalClient = mqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		c.log.Warn("MQTT broker not reachable yet, retrying in background",
			logger.String("broker", logger.RedactURL(c.config.Broker)))
		return nil
	}
	if err := token.Error(); err != nil {
		return c.fail(err, errors.CategoryMQTTPublish)
	}
	return nil
}

// Publish sends payload with QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		c.metrics.RecordFailure(metrics.MQTTStageNotConnected)
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)

	timeout := c.config.PublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if !token.WaitTimeout(timeout) {
		c.metrics.RecordFailure(metrics.MQTTStageTimeout)
		return errors.Newf("publish timeout").
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		c.metrics.RecordFailure(metrics.MQTTStagePublish)
		return errors.New(err).Component("mqtt").Category(errors.CategoryMQTTPublish).Context("topic", topic).Build()
	}

	c.metrics.RecordPublished(topic, len(payload), time.Since(start))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient != nil {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.metrics.SetConnected(false)
	}
}

func (c *client) onConnect(mqtt.Client) {
	c.log.Info("Connected to MQTT broker", logger.String("broker", logger.RedactURL(c.config.Broker)))
	c.metrics.SetConnected(true)
}

func (c *client) onConnectionLost(_ mqtt.Client, err error) {
	c.log.Warn("Connection to MQTT broker lost",
		logger.String("broker", logger.RedactURL(c.config.Broker)),
		logger.Error(err))
	c.metrics.SetConnected(false)
	c.metrics.RecordFailure(metrics.MQTTStageConnectionLost)
}

func (c *client) fail(err error, category errors.ErrorCategory) error {
	c.metrics.RecordFailure(metrics.MQTTStageConnect)
	return errors.New(err).
		Component("mqtt").
		Category(category).
		Context("broker", logger.RedactURL(c.config.Broker)).
		Build()
}
