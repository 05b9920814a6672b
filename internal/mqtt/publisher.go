package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

// Publisher publishes detections to <topic>/<camera>.
type Publisher struct {
	client Client
	topic  string
	log    logger.Logger
}

// NewPublisher wraps a connected or connecting client.
func NewPublisher(c Client, topic string, log logger.Logger) *Publisher {
	if log == nil {
		log = GetLogger()
	}
	return &Publisher{client: c, topic: strings.TrimRight(topic, "/"), log: log}
}

// NewFromSettings connects a paho client. It returns nil when MQTT is
// disabled or no broker is configured.
func NewFromSettings(ctx context.Context, s *conf.MQTTSettings, m Metrics) (*Publisher, error) {
	if !s.Enabled || s.Broker == "" {
		return nil, nil
	}
	cfg := ConfigFromSettings(s)
	log := GetLogger()
	c := NewClient(cfg, m, log)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return NewPublisher(c, cfg.Topic, log), nil
}

// Topic returns the topic used for a camera. MQTT wildcards and separators
// in the camera ID are replaced.
func (p *Publisher) Topic(cameraID string) string {
	return p.topic + "/" + topicReplacer.Replace(cameraID)
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// Publish sends dto. Errors are logged and returned; callers treat them as
// non-fatal. A nil Publisher does nothing.
func (p *Publisher) Publish(ctx context.Context, dto DetectionDTO) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		return errors.New(err).Component("mqtt").Category(errors.CategoryMQTTPublish).Build()
	}

	topic := p.Topic(dto.CameraID)
	if err := p.client.Publish(ctx, topic, payload); err != nil {
		p.log.Warn("Failed to publish detection",
			logger.String("topic", topic),
			logger.String("detection_id", dto.ID),
			logger.Error(err))
		return err
	}
	p.log.Debug("Published detection", logger.String("topic", topic), logger.String("detection_id", dto.ID))
	return nil
}

// Close disconnects the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect()
}
