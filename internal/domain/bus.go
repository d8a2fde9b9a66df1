package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community), NATS or Kafka (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel", "nats" or "kafka"
	Type string `yaml:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `yaml:"channelBufferSize"`

	// NATS settings (Pro tier)
	NATSUrl           string `yaml:"natsUrl"`
	NATSToken         string `yaml:"natsToken"`
	NATSMaxReconnects int    `yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `yaml:"natsReconnectWait"` // seconds
	NATSQueueGroup    string `yaml:"natsQueueGroup"`

	// Kafka settings
	KafkaBrokers []string `yaml:"kafkaBrokers"`
	KafkaGroupID string   `yaml:"kafkaGroupId"`
}

// Topic names for the analysis pipeline.
const (
	TopicAnalysisRequested = "liftwatch.analysis.requested"
	TopicAnalysisCompleted = "liftwatch.analysis.completed"
)

// AnalysisRequest is the payload of TopicAnalysisRequested.
type AnalysisRequest struct {
	JobID   string `json:"jobId"`
	Sectors []int  `json:"sectors,omitempty"`
	Source  string `json:"source"` // "api", "schedule"
}

// AnalysisCompleted is the payload of TopicAnalysisCompleted.
type AnalysisCompleted struct {
	JobID         string     `json:"jobId"`
	SummaryID     string     `json:"summaryId"`
	AssetCount    int        `json:"assetCount"`
	AverageScore  float64    `json:"averageScore"`
	CriticalCount int        `json:"criticalCount"`
	HighCount     int        `json:"highCount"`
	OverallTrend  FleetTrend `json:"overallTrend"`
	Alerts        []Alert    `json:"alerts"`
}
