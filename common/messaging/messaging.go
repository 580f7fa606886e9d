// Package messaging defines the message bus contracts shared by the
// collector and its operator tooling.
package messaging

import (
	"context"
	"time"
)

// Message is a single message delivered over the bus.
type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	Metadata  map[string]string
}

// MessageHandler processes one delivered message. Returning an error causes
// the message to be redelivered according to the consumer policy.
type MessageHandler func(ctx context.Context, msg *Message) error
