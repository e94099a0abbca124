package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels published by the alert pipeline. Downstream dashboards and
// analytics consumers subscribe to these.
const (
	ChannelAlertTriggered = "alert.triggered"
	ChannelRunCompleted   = "pipeline.run_completed"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
