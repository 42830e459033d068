package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisStreamClient appends events to a Redis stream for an audit consumer
type redisStreamClient struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamClient returns a client that XADDs events to stream, keeping
// roughly maxLen entries (0 means unbounded)
func NewRedisStreamClient(client redis.Cmdable, stream string, maxLen int64) Client {
	return &redisStreamClient{client: client, stream: stream, maxLen: maxLen}
}

// LogEvent writes the event synchronously; XADD is a single round trip
func (c *redisStreamClient) LogEvent(ctx context.Context, event Event) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if event.TraceID == nil {
		event.TraceID = StringPtr(uuid.NewString())
	}
	if event.Status == "" || event.ActorType == "" || event.ActorID == "" || event.TargetType == "" {
		return fmt.Errorf("missing required fields: status, actorType, actorId, or targetType")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: c.stream,
		Values: map[string]interface{}{
			"traceId": *event.TraceID,
			"status":  event.Status,
			"event":   string(payload),
		},
	}
	if c.maxLen > 0 {
		args.MaxLen = c.maxLen
		args.Approx = true
	}

	if err := c.client.XAdd(context.WithoutCancel(ctx), args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to stream %s: %w", c.stream, err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller
func (c *redisStreamClient) Close(ctx context.Context) error {
	return nil
}
