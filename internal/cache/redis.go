// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tilewire/mahjong/internal/audit"
)

// DefaultQueueName is the Redis list (queue) name audit entries stream to,
// consumed by out-of-band tooling.
var DefaultQueueName = "mahjong_audit"

// StreamSink pushes audit entries onto a Redis list. It is append-only:
// downstream consumers own querying, so Query is unsupported here.
type StreamSink struct {
	rdb   *redis.Client
	queue string
}

// ConnectStream initializes a Redis-backed sink and verifies connectivity.
func ConnectStream(addr string) (*StreamSink, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	queue := DefaultQueueName
	if q := os.Getenv("AUDIT_QUEUE_NAME"); q != "" {
		queue = q
	}
	return &StreamSink{rdb: rdb, queue: queue}, nil
}

// Append serializes the entry to JSON and pushes it onto the queue. This
// does not block the calling logic (other than a quick network send).
func (s *StreamSink) Append(ctx context.Context, e audit.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", s.queue, err)
	}
	return nil
}

// Query is not supported on the stream sink; entries are drained by the
// downstream consumer, not read back.
func (s *StreamSink) Query(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	return nil, fmt.Errorf("stream sink does not support queries")
}

// Close releases the underlying client.
func (s *StreamSink) Close() error {
	return s.rdb.Close()
}
