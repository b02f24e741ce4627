package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/picks"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newProducer(t *testing.T) (*Producer, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	p := NewProducer(rdb)
	p.now = func() time.Time { return time.Date(2026, 3, 8, 6, 0, 0, 0, time.UTC) }
	return p, rdb
}

func TestPublishPicks_OncePerDate(t *testing.T) {
	p, rdb := newProducer(t)
	ctx := context.Background()
	ps := []picks.Pick{{ID: "a", Rank: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", Market: "1X2", Pick: "Arsenal Win", Confidence: 68}}

	if sent, _ := p.AlreadySent(ctx, "2026-03-08"); sent {
		t.Fatal("AlreadySent = true before publish")
	}
	for i := 0; i < 3; i++ {
		if err := p.PublishPicks(ctx, "2026-03-08", ps); err != nil {
			t.Fatalf("PublishPicks: %v", err)
		}
	}
	entries, err := rdb.XRange(ctx, PicksStreamKey, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d; want 1", len(entries))
	}
	payload, ok := entries[0].Values["payload"].(string)
	if !ok {
		t.Fatal("payload not string")
	}
	var got PicksEvent
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Date != "2026-03-08" || len(got.Picks) != 1 || got.Picks[0].Confidence != 68 {
		t.Errorf("got %+v", got)
	}
	if got.PublishedAt.IsZero() {
		t.Error("PublishedAt should be set")
	}
	if sent, _ := p.AlreadySent(ctx, "2026-03-08"); !sent {
		t.Error("AlreadySent = false after publish")
	}

	if err := p.PublishPicks(ctx, "2026-03-09", ps); err != nil {
		t.Fatalf("PublishPicks next day: %v", err)
	}
	if n, _ := rdb.XLen(ctx, PicksStreamKey).Result(); n != 2 {
		t.Errorf("XLen = %d; want 2", n)
	}
}

func TestPublishSettlement_OncePerEntry(t *testing.T) {
	p, rdb := newProducer(t)
	ctx := context.Background()
	e := bankroll.Entry{ID: "e1", MatchLabel: "Arsenal vs Chelsea", Market: "1X2", Pick: "Arsenal Win", Result: bankroll.Won}

	if err := p.PublishSettlement(ctx, e); err != nil {
		t.Fatalf("PublishSettlement: %v", err)
	}
	if err := p.PublishSettlement(ctx, e); err != nil {
		t.Fatalf("PublishSettlement again: %v", err)
	}
	entries, err := rdb.XRange(ctx, SettlementsStreamKey, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d; want 1", len(entries))
	}
	if entries[0].Values["result"] != "won" {
		t.Errorf("result field = %v; want won", entries[0].Values["result"])
	}
	var got SettlementEvent
	if err := json.Unmarshal([]byte(entries[0].Values["payload"].(string)), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Entry.ID != "e1" || got.Entry.Result != bankroll.Won {
		t.Errorf("got %+v", got.Entry)
	}
}
