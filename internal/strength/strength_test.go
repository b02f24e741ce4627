package strength

import (
	"context"
	"math"
	"testing"
	"time"

	"footpicks_go/internal/footballdata"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func makeStandings() *footballdata.Standings {
	return &footballdata.Standings{
		Competition: "PL",
		Total: []footballdata.StandingRow{
			{TeamID: 1, TeamName: "Arsenal", PlayedGames: 10, GoalsFor: 25, GoalsAgainst: 5, Form: "W,W,W,D,W"},
			{TeamID: 2, TeamName: "Chelsea", PlayedGames: 10, GoalsFor: 10, GoalsAgainst: 15, Form: "L,L,D,W,L"},
			{TeamID: 3, TeamName: "Everton", PlayedGames: 10, GoalsFor: 5, GoalsAgainst: 20},
		},
		Home: []footballdata.StandingRow{
			{TeamID: 1, PlayedGames: 5, GoalsFor: 15, GoalsAgainst: 2},
			{TeamID: 2, PlayedGames: 5, GoalsFor: 6, GoalsAgainst: 6},
			{TeamID: 3, PlayedGames: 5, GoalsFor: 3, GoalsAgainst: 9},
		},
		Away: []footballdata.StandingRow{
			{TeamID: 1, PlayedGames: 5, GoalsFor: 8, GoalsAgainst: 3},
			{TeamID: 2, PlayedGames: 5, GoalsFor: 4, GoalsAgainst: 9},
			{TeamID: 3, PlayedGames: 5, GoalsFor: 2, GoalsAgainst: 11},
		},
	}
}

func TestFromStandings(t *testing.T) {
	tbl := FromStandings(makeStandings(), time.Now())
	if math.Abs(tbl.AvgGoals-4.0/3.0) > 1e-9 {
		t.Errorf("AvgGoals = %v; want 1.333", tbl.AvgGoals)
	}
	ars := tbl.Teams[1]
	eve := tbl.Teams[3]
	if ars.Attack <= 1 || ars.Defense >= 1 {
		t.Errorf("Arsenal attack=%v defense=%v; want strong attack and defense", ars.Attack, ars.Defense)
	}
	if eve.Attack >= 1 || eve.Defense <= 1 {
		t.Errorf("Everton attack=%v defense=%v; want weak", eve.Attack, eve.Defense)
	}
	if ars.HomeAttack <= ars.AwayAttack {
		t.Errorf("Arsenal home attack %v should exceed away attack %v", ars.HomeAttack, ars.AwayAttack)
	}
	if ars.Form <= 0.5 {
		t.Errorf("Arsenal form = %v; want strongly positive", ars.Form)
	}
	if eve.Form != 0 {
		t.Errorf("Everton form (no data) = %v; want 0", eve.Form)
	}
}

func TestFormSignal(t *testing.T) {
	cases := []struct {
		form string
		want float64
	}{
		{"", 0},
		{"W,W,W,W,W", 1},
		{"L,L,L,L,L", -1},
		{"D,D,D", 0},
		{"x,y", 0},
	}
	for _, tc := range cases {
		if got := FormSignal(tc.form); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("FormSignal(%q) = %v; want %v", tc.form, got, tc.want)
		}
	}
	// most recent result weighs more
	if FormSignal("W,L") <= FormSignal("L,W") {
		t.Error("recent win should outweigh older win")
	}
}

func TestRatio_ShrinksSmallSamples(t *testing.T) {
	if got := ratio(0, 0, 1.3); got != 1 {
		t.Errorf("ratio(no games) = %v; want 1", got)
	}
	full := ratio(12, 6, 1.0)
	early := ratio(4, 2, 1.0)
	if full != 2 {
		t.Errorf("ratio(12/6) = %v; want 2", full)
	}
	if early >= 2 || early <= 1 {
		t.Errorf("ratio(4/2) = %v; want shrunk toward 1", early)
	}
	if got := ratio(100, 6, 1.0); got != 3 {
		t.Errorf("ratio clamp high = %v; want 3", got)
	}
}

func TestTables_LookupFallsBackToAverage(t *testing.T) {
	ts := Tables{"PL": FromStandings(makeStandings(), time.Now())}
	s, avg := ts.Lookup("PL", 999, "Unknown FC")
	if !s.Default || s.Attack != 1 || s.TeamName != "Unknown FC" {
		t.Errorf("unknown team = %+v; want league-average default", s)
	}
	if avg == LeagueAvgGoals {
		t.Error("expected competition average, got package default")
	}
	s, avg = ts.Lookup("SA", 1, "Arsenal")
	if !s.Default || avg != LeagueAvgGoals {
		t.Errorf("unknown competition = %+v avg=%v; want defaults", s, avg)
	}
	var nilTable *Table
	if got := nilTable.Lookup(5, "X"); !got.Default {
		t.Error("nil table lookup should return default")
	}
}

func TestWriterReader_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	w := NewWriter(rdb)
	if err := w.WriteTable(ctx, FromStandings(makeStandings(), time.Now())); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if ttl := mr.TTL(KeyPrefix + "PL"); ttl != TableTTL {
		t.Errorf("TTL = %v; want %v", ttl, TableTTL)
	}
	// dangling index entry (expired table) is skipped
	rdb.SAdd(ctx, IndexKey, "BL1")

	tables, err := NewReader(rdb).ReadTables(ctx)
	if err != nil {
		t.Fatalf("ReadTables: %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("len(tables) = %d; want 1", len(tables))
	}
	if got := tables["PL"].Teams[1].TeamName; got != "Arsenal" {
		t.Errorf("team 1 = %q; want Arsenal", got)
	}
}

func TestReadTables_Empty(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tables, err := NewReader(rdb).ReadTables(context.Background())
	if err != nil || len(tables) != 0 {
		t.Errorf("ReadTables(empty) = %v, %v; want empty, nil", tables, err)
	}
}
