// Package mqtt publishes saved detections to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/logger"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // Base topic, the camera ID is appended
	Retain   bool   // true to retain messages at the broker
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:          "trapwatch",
		Topic:             "trapwatch/detections",
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings applies the settings on top of DefaultConfig.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	if s.ClientID != "" {
		cfg.ClientID = s.ClientID
	}
	cfg.Username = s.Username
	cfg.Password = s.Password
	if s.Topic != "" {
		cfg.Topic = s.Topic
	}
	cfg.Retain = s.Retain
	return cfg
}

// Metrics receives connection and publish observations.
// metrics.MQTTMetrics implements it.
type Metrics interface {
	SetConnected(connected bool)
	RecordReconnect()
	RecordFailure(stage string)
	RecordPublished(topic string, payloadBytes int, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) SetConnected(bool)                          {}
func (noopMetrics) RecordReconnect()                           {}
func (noopMetrics) RecordFailure(string)                       {}
func (noopMetrics) RecordPublished(string, int, time.Duration) {}

// GetLogger returns the mqtt logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
