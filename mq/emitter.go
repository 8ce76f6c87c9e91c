// Package mq publishes entity-mutation notifications over Redis pub/sub.
// Emission is best-effort: the reservation protocol never depends on it.
package mq

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"tessera/models"
)

type Emitter struct {
	conn *redis.Client
}

// NewEmitter wraps a Redis client. A nil client yields a disabled emitter;
// Emit becomes a no-op.
func NewEmitter(conn *redis.Client) *Emitter {
	return &Emitter{conn: conn}
}

// Emit publishes one message on the topic channel. Failures are logged and
// swallowed.
func (e *Emitter) Emit(ctx context.Context, topic string, content models.Index) {
	if e == nil || e.conn == nil {
		return
	}
	data, err := json.Marshal(content)
	if err != nil {
		log.Printf("mq: marshal %s event: %v", topic, err)
		return
	}
	if err := e.conn.Publish(ctx, topic, data).Err(); err != nil {
		log.Printf("mq: publish %s event: %v", topic, err)
	}
}
