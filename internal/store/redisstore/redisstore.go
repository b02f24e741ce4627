package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/picks"
	"footpicks_go/internal/prediction"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	PicksKeyPrefix = "picks:"
	// PicksTTL keeps a published day around long enough for the API and settlement.
	PicksTTL = 90 * 24 * time.Hour

	EntryKeyPrefix   = "bankroll:entry:"
	EntriesKey       = "bankroll:entries" // ZSET of entry ids by creation time
	PendingKey       = "bankroll:pending" // SET of pending entry ids
	StatsKeyPrefix   = "bankroll:stats:"
	StatsTTL         = 400 * 24 * time.Hour
	SnapshotKey      = "predictions:snapshot"
	SnapshotTTL      = 7 * 24 * time.Hour
	entryDataField   = "data"
	entryResultField = "result"
)

// settleScript moves an entry out of pending only if it is still pending.
// Returns 1 when changed, 0 when already settled, -1 when missing.
var settleScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'result')
if not cur then return -1 end
if cur ~= 'pending' then return 0 end
redis.call('HSET', KEYS[1], 'result', ARGV[1], 'data', ARGV[2])
redis.call('SREM', KEYS[2], ARGV[3])
return 1
`)

// Store keeps daily picks, bankroll entries and the prediction snapshot in Redis.
type Store struct {
	client *redis.Client
}

// New returns a Store that uses the given Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// HasPicks reports whether picks exist for date.
func (s *Store) HasPicks(ctx context.Context, date string) (bool, error) {
	n, err := s.client.Exists(ctx, PicksKeyPrefix+date).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SavePicks stores the day's picks unless another writer got there first.
func (s *Store) SavePicks(ctx context.Context, date string, ps []picks.Pick) (bool, error) {
	b, err := json.Marshal(ps)
	if err != nil {
		return false, fmt.Errorf("marshal picks: %w", err)
	}
	return s.client.SetNX(ctx, PicksKeyPrefix+date, string(b), PicksTTL).Result()
}

// Picks returns the picks stored for date, or none.
func (s *Store) Picks(ctx context.Context, date string) ([]picks.Pick, error) {
	raw, err := s.client.Get(ctx, PicksKeyPrefix+date).Result()
	if err == redis.Nil {
		return []picks.Pick{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out []picks.Pick
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshal picks %s: %w", date, err)
	}
	return out, nil
}

// SaveSnapshot stores the last good prediction list.
func (s *Store) SaveSnapshot(ctx context.Context, preds []prediction.MatchPrediction) error {
	b, err := json.Marshal(preds)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, SnapshotKey, string(b), SnapshotTTL).Err()
}

// LoadSnapshot returns the stored prediction list or prediction.ErrNotFound.
func (s *Store) LoadSnapshot(ctx context.Context) ([]prediction.MatchPrediction, error) {
	raw, err := s.client.Get(ctx, SnapshotKey).Result()
	if err == redis.Nil {
		return nil, prediction.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var out []prediction.MatchPrediction
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return out, nil
}

// CreateEntry stores a new pending entry.
func (s *Store) CreateEntry(ctx context.Context, e *bankroll.Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, EntryKeyPrefix+e.ID, entryDataField, string(b), entryResultField, string(e.Result))
	pipe.ZAdd(ctx, EntriesKey, redis.Z{Score: float64(e.CreatedAt.UnixMilli()), Member: e.ID})
	if e.Result == bankroll.Pending {
		pipe.SAdd(ctx, PendingKey, e.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Entry returns one entry or bankroll.ErrNotFound.
func (s *Store) Entry(ctx context.Context, id string) (*bankroll.Entry, error) {
	raw, err := s.client.HGet(ctx, EntryKeyPrefix+id, entryDataField).Result()
	if err == redis.Nil {
		return nil, bankroll.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var e bankroll.Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("unmarshal entry %s: %w", id, err)
	}
	return &e, nil
}

// Entries returns every entry, oldest first.
func (s *Store) Entries(ctx context.Context) ([]bankroll.Entry, error) {
	ids, err := s.client.ZRange(ctx, EntriesKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids)
}

// PendingEntries returns entries still awaiting a result, oldest first.
func (s *Store) PendingEntries(ctx context.Context) ([]bankroll.Entry, error) {
	ids, err := s.client.SMembers(ctx, PendingKey).Result()
	if err != nil {
		return nil, err
	}
	out, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) load(ctx context.Context, ids []string) ([]bankroll.Entry, error) {
	out := make([]bankroll.Entry, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, EntryKeyPrefix+id, entryDataField)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	for i, c := range cmds {
		raw, err := c.Result()
		if err != nil {
			continue
		}
		var e bankroll.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			slog.Warn("redisstore: unmarshal entry failed, skipping", "entry_id", ids[i], "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Settle records a terminal result if the entry is still pending.
func (s *Store) Settle(ctx context.Context, id string, r bankroll.Result, payout decimal.Decimal, at time.Time) (bool, error) {
	e, err := s.Entry(ctx, id)
	if err != nil {
		return false, err
	}
	if e.Result != bankroll.Pending {
		return false, nil
	}
	at = at.UTC()
	e.Result, e.Payout, e.SettledAt = r, payout, &at
	b, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("marshal entry: %w", err)
	}
	n, err := settleScript.Run(ctx, s.client, []string{EntryKeyPrefix + id, PendingKey}, string(r), string(b), id).Int()
	if err != nil {
		return false, err
	}
	switch n {
	case -1:
		return false, bankroll.ErrNotFound
	case 0:
		return false, nil
	}
	return true, nil
}

// RecordOutcome bumps the per-day settled counter for r.
func (s *Store) RecordOutcome(ctx context.Context, date string, r bankroll.Result) error {
	key := StatsKeyPrefix + date
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, string(r), 1)
	pipe.Expire(ctx, key, StatsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// DayStats returns the settled counters for date.
func (s *Store) DayStats(ctx context.Context, date string) (bankroll.DayStats, error) {
	m, err := s.client.HGetAll(ctx, StatsKeyPrefix+date).Result()
	if err != nil {
		return bankroll.DayStats{}, err
	}
	count := func(r bankroll.Result) int {
		n, _ := strconv.Atoi(m[string(r)])
		return n
	}
	return bankroll.DayStats{
		Date: date,
		Won:  count(bankroll.Won),
		Lost: count(bankroll.Lost),
		Void: count(bankroll.Void),
	}, nil
}
