package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/picks"

	"github.com/redis/go-redis/v9"
)

const (
	// PicksStreamKey carries one event per published day of picks.
	PicksStreamKey = "picks:published"
	// SettlementsStreamKey carries one event per settled bankroll entry.
	SettlementsStreamKey = "bankroll:settled"

	PicksSentKeyPrefix      = "picks_sent:"
	SettlementSentKeyPrefix = "settlement_sent:"
	SentKeyTTL              = 7 * 24 * time.Hour
)

// PicksEvent announces a day's shortlist.
type PicksEvent struct {
	Date        string       `json:"date"`
	Picks       []picks.Pick `json:"picks"`
	PublishedAt time.Time    `json:"published_at"`
}

// SettlementEvent announces a settled entry.
type SettlementEvent struct {
	Entry       bankroll.Entry `json:"entry"`
	PublishedAt time.Time      `json:"published_at"`
}

// Producer writes events to Redis streams. Each day and each entry is published
// at most once across restarts and replicas.
type Producer struct {
	client *redis.Client
	now    func() time.Time
}

// NewProducer returns a Redis stream producer.
func NewProducer(client *redis.Client) *Producer {
	return &Producer{client: client, now: time.Now}
}

// PublishPicks adds the day's picks to the stream unless that date was already published.
func (p *Producer) PublishPicks(ctx context.Context, date string, ps []picks.Pick) error {
	body, err := json.Marshal(PicksEvent{Date: date, Picks: ps, PublishedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal picks event: %w", err)
	}
	return p.publishOnce(ctx, PicksSentKeyPrefix+date, PicksStreamKey, string(body),
		map[string]interface{}{"date": date, "count": len(ps)})
}

// PublishSettlement adds a settled entry to the stream unless it was already published.
func (p *Producer) PublishSettlement(ctx context.Context, e bankroll.Entry) error {
	body, err := json.Marshal(SettlementEvent{Entry: e, PublishedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}
	return p.publishOnce(ctx, SettlementSentKeyPrefix+e.ID, SettlementsStreamKey, string(body),
		map[string]interface{}{"entry_id": e.ID, "result": string(e.Result)})
}

// publishOnce claims sentKey and appends payload to stream. The claim is released
// when the append fails so a later attempt can retry.
func (p *Producer) publishOnce(ctx context.Context, sentKey, stream, payload string, extra map[string]interface{}) error {
	first, err := p.client.SetNX(ctx, sentKey, "1", SentKeyTTL).Result()
	if err != nil {
		return fmt.Errorf("mark sent %s: %w", sentKey, err)
	}
	if !first {
		return nil
	}
	values := map[string]interface{}{"payload": payload}
	for k, v := range extra {
		values[k] = v
	}
	if _, err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Result(); err != nil {
		p.client.Del(ctx, sentKey)
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

// AlreadySent reports whether the day's picks were published.
func (p *Producer) AlreadySent(ctx context.Context, date string) (bool, error) {
	n, err := p.client.Exists(ctx, PicksSentKeyPrefix+date).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
