// Package stream hands fetched month batches from the collector to the
// store over a Redis stream.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"monthweather/internal/config"
	"monthweather/internal/models"
)

const (
	dataKey = "data"
	// maxLen caps the stream so it cannot grow unbounded
	maxLen = 500
)

// Batch is one collector run: both raw responses for a location and period
type Batch struct {
	RunID      uuid.UUID        `json:"run_id"`
	Location   config.Location  `json:"location"`
	Period     models.Period    `json:"period"`
	Fields     []string         `json:"fields"`
	Historical *models.Forecast `json:"historical"`
	Forecast   *models.Forecast `json:"forecast"`
}

// Message is a batch read from the stream together with its entry ID
type Message struct {
	ID    string
	Batch Batch
}

// NewClient creates a Redis client from cfg
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Encode serializes b into stream entry values
func Encode(b Batch) (map[string]interface{}, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize batch %s: %w", b.RunID, err)
	}
	return map[string]interface{}{dataKey: string(data)}, nil
}

// Decode parses stream entry values written by Encode
func Decode(values map[string]interface{}) (Batch, error) {
	var b Batch
	raw, ok := values[dataKey].(string)
	if !ok {
		return b, errors.New("message has no 'data' field")
	}
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return b, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return b, nil
}

// Publisher appends batches to a stream
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Publish adds b to the stream and returns the entry ID
func (p *Publisher) Publish(ctx context.Context, b Batch) (string, error) {
	values, err := Encode(b)
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to Redis for %s: %w", b.Location.Name, err)
	}

	log.Printf("Published batch %s for %s to %s", b.RunID, b.Location.Name, p.stream)
	return id, nil
}

// Consumer reads batches as a member of a consumer group
type Consumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	block    time.Duration

	// cursor is "0" plus the last pending entry seen while this consumer
	// works through what it was delivered before a restart, then ">"
	cursor string
}

// NewConsumer joins cfg's consumer group, creating it and the stream if
// they do not exist yet
func NewConsumer(ctx context.Context, client *redis.Client, cfg config.RedisConfig) (*Consumer, error) {
	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		block:    5 * time.Second,
		cursor:   "0",
	}, nil
}

// Read first returns, once each, the entries this consumer was delivered but
// never acknowledged, such as batches whose MySQL write failed. After that
// it blocks for up to five seconds for new batches. Entries that cannot be
// decoded are logged and acknowledged so they are not redelivered.
func (c *Consumer) Read(ctx context.Context) ([]Message, error) {
	block := c.block
	if c.cursor != ">" {
		block = -1
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, c.cursor},
		Count:    10,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		c.cursor = nextCursor(c.cursor, nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading from Redis: %w", err)
	}

	var ids []string
	for _, s := range streams {
		for _, m := range s.Messages {
			ids = append(ids, m.ID)
		}
	}
	if c.cursor != ">" {
		log.Printf("Re-reading %d pending entries from %s", len(ids), c.stream)
	}
	c.cursor = nextCursor(c.cursor, ids)

	var out []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			b, err := Decode(m.Values)
			if err != nil {
				log.Printf("Dropping entry %s: %v", m.ID, err)
				if ackErr := c.Ack(ctx, m.ID); ackErr != nil {
					log.Printf("Failed to ack entry %s: %v", m.ID, ackErr)
				}
				continue
			}
			out = append(out, Message{ID: m.ID, Batch: b})
		}
	}
	return out, nil
}

// nextCursor advances past the ids just read. A pending read that comes
// back empty means the backlog is done and new entries are next.
func nextCursor(cursor string, ids []string) string {
	if cursor == ">" || len(ids) == 0 {
		return ">"
	}
	return ids[len(ids)-1]
}

// Ack marks an entry as processed
func (c *Consumer) Ack(ctx context.Context, id string) error {
	return c.client.XAck(ctx, c.stream, c.group, id).Err()
}
