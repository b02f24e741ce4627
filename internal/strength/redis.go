package strength

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KeyPrefix = "strength:"
	// IndexKey is a SET of competition codes with a stored table.
	IndexKey = "strength:competitions"
	TableTTL = 24 * time.Hour
)

// Writer stores strength tables in Redis for the predictor (collector side).
type Writer struct {
	client *redis.Client
}

// NewWriter returns a Writer that uses the given Redis client.
func NewWriter(client *redis.Client) *Writer {
	return &Writer{client: client}
}

// WriteTable stores one competition's table as JSON and registers it in the index.
func (w *Writer) WriteTable(ctx context.Context, t *Table) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal strength table: %w", err)
	}
	pipe := w.client.TxPipeline()
	pipe.Set(ctx, KeyPrefix+t.Competition, string(b), TableTTL)
	pipe.SAdd(ctx, IndexKey, t.Competition)
	_, err = pipe.Exec(ctx)
	return err
}

// Reader reads strength tables written by the collector.
type Reader struct {
	client *redis.Client
}

// NewReader returns a Reader.
func NewReader(client *redis.Client) *Reader {
	return &Reader{client: client}
}

// ReadTables returns every stored table. Expired or corrupt entries are skipped;
// callers fall back to league averages for anything missing.
func (r *Reader) ReadTables(ctx context.Context) (Tables, error) {
	codes, err := r.client.SMembers(ctx, IndexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(Tables, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	keys := make([]string, len(codes))
	for i, c := range codes {
		keys[i] = KeyPrefix + c
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var t Table
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			slog.Warn("strength: unmarshal table failed, skipping", "competition", codes[i], "error", err)
			continue
		}
		out[t.Competition] = &t
	}
	return out, nil
}
