package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"footpicks_go/internal/stream"

	"github.com/redis/go-redis/v9"
)

const (
	ConsumerGroup   = "announcers"
	ConsumerName    = "announcer-1"
	ReadBlockMillis = 5000
	readCount       = 10
)

// Consumer reads pick and settlement events via a consumer group.
type Consumer struct {
	client *redis.Client
	name   string
	block  time.Duration
}

// NewConsumer returns a Redis stream consumer.
func NewConsumer(client *redis.Client) *Consumer {
	return &Consumer{client: client, name: ConsumerName, block: ReadBlockMillis * time.Millisecond}
}

// EnsureGroups creates the consumer group on both streams (MKSTREAM so empty
// streams are created). BUSYGROUP errors are ignored.
func (c *Consumer) EnsureGroups(ctx context.Context) error {
	for _, key := range []string{stream.PicksStreamKey, stream.SettlementsStreamKey} {
		err := c.client.XGroupCreateMkStream(ctx, key, ConsumerGroup, "0").Err()
		if err != nil && !isBusyGroup(err) {
			return err
		}
	}
	return nil
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Messages holds one read across both streams. IDs must be acked per stream.
type Messages struct {
	Picks         []stream.PicksEvent
	PickIDs       []string
	Settlements   []stream.SettlementEvent
	SettlementIDs []string
}

// Empty reports whether nothing was read.
func (m Messages) Empty() bool {
	return len(m.PickIDs) == 0 && len(m.SettlementIDs) == 0
}

// Read blocks until events arrive on either stream or the block timeout passes.
// Undecodable payloads are logged and returned in the id lists so they get acked.
func (c *Consumer) Read(ctx context.Context) (Messages, error) {
	var out Messages
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: c.name,
		Streams:  []string{stream.PicksStreamKey, stream.SettlementsStreamKey, ">", ">"},
		Count:    readCount,
		Block:    c.block,
	}).Result()
	if err == redis.Nil {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	for _, s := range streams {
		for _, msg := range s.Messages {
			raw, _ := msg.Values["payload"].(string)
			switch s.Stream {
			case stream.PicksStreamKey:
				out.PickIDs = append(out.PickIDs, msg.ID)
				var e stream.PicksEvent
				if err := json.Unmarshal([]byte(raw), &e); err != nil {
					slog.Warn("consumer: bad picks payload", "id", msg.ID, "error", err)
					continue
				}
				out.Picks = append(out.Picks, e)
			case stream.SettlementsStreamKey:
				out.SettlementIDs = append(out.SettlementIDs, msg.ID)
				var e stream.SettlementEvent
				if err := json.Unmarshal([]byte(raw), &e); err != nil {
					slog.Warn("consumer: bad settlement payload", "id", msg.ID, "error", err)
					continue
				}
				out.Settlements = append(out.Settlements, e)
			}
		}
	}
	return out, nil
}

// Ack acknowledges everything in m.
func (c *Consumer) Ack(ctx context.Context, m Messages) error {
	if len(m.PickIDs) > 0 {
		if err := c.client.XAck(ctx, stream.PicksStreamKey, ConsumerGroup, m.PickIDs...).Err(); err != nil {
			return err
		}
	}
	if len(m.SettlementIDs) > 0 {
		return c.client.XAck(ctx, stream.SettlementsStreamKey, ConsumerGroup, m.SettlementIDs...).Err()
	}
	return nil
}
