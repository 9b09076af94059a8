package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventWelcome is the outbox event type for welcome messages.
const EventWelcome = "mail.welcome"

// Event is the envelope written to the outbox stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      Message   `json:"data"`
}

// OutboxSender appends messages to a Redis stream. A separate relay reads
// the stream and performs the actual delivery.
type OutboxSender struct {
	client redis.UniversalClient
	stream string
	maxLen int64
	log    *zap.Logger
}

// NewOutboxSender creates an OutboxSender writing to stream. maxLen caps the
// stream approximately; zero leaves it unbounded.
func NewOutboxSender(client redis.UniversalClient, stream string, maxLen int64, log *zap.Logger) *OutboxSender {
	return &OutboxSender{
		client: client,
		stream: stream,
		maxLen: maxLen,
		log:    log,
	}
}

// Send appends msg to the outbox stream.
func (o *OutboxSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(Event{
		Type:      EventWelcome,
		Timestamp: time.Now().UTC(),
		Data:      msg,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: o.stream,
		Values: map[string]any{"event": payload},
	}
	if o.maxLen > 0 {
		args.MaxLen = o.maxLen
		args.Approx = true
	}

	id, err := o.client.XAdd(ctx, args).Result()
	if err != nil {
		o.log.Error("failed to publish mail event", zap.String("stream", o.stream), zap.Error(err))
		return fmt.Errorf("failed to publish mail event: %w", err)
	}

	o.log.Info("mail event published", zap.String("stream", o.stream), zap.String("entry_id", id), zap.String("to", msg.To))
	return nil
}
