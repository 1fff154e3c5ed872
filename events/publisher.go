// Package events publishes audit lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"radioaudit-backend/logging"
	"radioaudit-backend/metrics"
)

// AuditEvent is the payload published when an orchestrator run reaches a
// terminal state.
type AuditEvent struct {
	AuditID             string `json:"audit_id"`
	TranscriptID        string `json:"transcript_id"`
	TemplateID          string `json:"template_id"`
	Status              string `json:"status"`
	OverallScore        int    `json:"overall_score"`
	CategoriesAttempted int    `json:"categories_attempted"`
	CategoriesScored    int    `json:"categories_scored"`
	Timestamp           int64  `json:"timestamp"`
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicCompleted string
	TopicFailed    string
	Enabled        bool
}

// FromEnv builds publisher configuration from KAFKA_* variables. The
// publisher stays in log-only mode when KAFKA_BROKERS is unset.
func FromEnv() *Config {
	brokers := os.Getenv("KAFKA_BROKERS")
	cfg := &Config{
		TopicCompleted: envOrDefault("KAFKA_TOPIC_AUDIT_COMPLETED", "audit.completed"),
		TopicFailed:    envOrDefault("KAFKA_TOPIC_AUDIT_FAILED", "audit.failed"),
	}
	if brokers != "" {
		cfg.Brokers = strings.Split(brokers, ",")
		cfg.Enabled = true
	}
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Publisher publishes audit events to separate completed/failed topics.
// When disabled it logs events instead of writing them.
type Publisher struct {
	writerCompleted *kafka.Writer
	writerFailed    *kafka.Writer
	topicCompleted  string
	topicFailed     string
	enabled         bool
}

// New creates a Kafka event publisher.
func New(cfg *Config) *Publisher {
	logger := logging.WithComponent("events")

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info().Msg("kafka disabled, audit events run in log-only mode")
		p := &Publisher{}
		if cfg != nil {
			p.topicCompleted = cfg.TopicCompleted
			p.topicFailed = cfg.TopicFailed
		}
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("topicFailed", cfg.TopicFailed).
		Msg("kafka publisher initialized")

	return &Publisher{
		writerCompleted: newWriter(cfg.TopicCompleted),
		writerFailed:    newWriter(cfg.TopicFailed),
		topicCompleted:  cfg.TopicCompleted,
		topicFailed:     cfg.TopicFailed,
		enabled:         true,
	}
}

// PublishCompleted publishes an event for a completed run.
func (p *Publisher) PublishCompleted(ctx context.Context, event AuditEvent) error {
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, event)
}

// PublishFailed publishes an event for a failed run.
func (p *Publisher) PublishFailed(ctx context.Context, event AuditEvent) error {
	return p.publish(ctx, p.writerFailed, p.topicFailed, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic string, event AuditEvent) error {
	logger := logging.WithComponent("events")

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal audit event")
		return err
	}

	logger.Debug().Str("topic", topic).RawJSON("payload", payload).Msg("publishing audit event")

	if !p.enabled || writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.AuditID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Str("topic", topic).Str("auditId", event.AuditID).Msg("failed to write to kafka")
		metrics.Default.EventPublishErrors.WithLabelValues(topic).Inc()
		return err
	}

	metrics.Default.EventPublishTotal.WithLabelValues(topic).Inc()
	return nil
}

// Close closes both writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCompleted != nil {
		if e := p.writerCompleted.Close(); e != nil {
			err = e
		}
	}
	if p.writerFailed != nil {
		if e := p.writerFailed.Close(); e != nil {
			err = e
		}
	}
	return err
}
