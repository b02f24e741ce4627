// Package sqlstore keeps daily picks and bankroll entries in Postgres or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/market"
	"footpicks_go/internal/picks"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store implements picks.Store and bankroll.Store on database/sql.
type Store struct {
	db     *sql.DB
	driver string
}

var (
	_ picks.Store    = (*Store)(nil)
	_ bankroll.Store = (*Store)(nil)
)

// Open connects, verifies the connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection serialises writers and keeps :memory: databases shared
		db.SetMaxOpenConns(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := &Store{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	slog.Info("sqlstore: initialized", "driver", driver)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	num := "TEXT"
	if s.driver == DriverPostgres {
		num = "NUMERIC(14,4)"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_picks (
			id TEXT PRIMARY KEY,
			pick_date TEXT NOT NULL,
			pick_rank INTEGER NOT NULL,
			fixture_id BIGINT NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			competition TEXT NOT NULL DEFAULT '',
			kickoff TEXT NOT NULL,
			market TEXT NOT NULL,
			pick TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			odds DOUBLE PRECISION NOT NULL,
			selection TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE(pick_date, pick_rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_picks_date ON daily_picks(pick_date)`,
		`CREATE TABLE IF NOT EXISTS bankroll_entries (
			id TEXT PRIMARY KEY,
			fixture_id BIGINT NOT NULL DEFAULT 0,
			match_label TEXT NOT NULL,
			home_team TEXT NOT NULL DEFAULT '',
			away_team TEXT NOT NULL DEFAULT '',
			kickoff TEXT,
			market TEXT NOT NULL,
			pick TEXT NOT NULL,
			selection TEXT,
			stake ` + num + `,
			odds ` + num + `,
			result TEXT NOT NULL,
			payout ` + num + ` NOT NULL,
			created_at TEXT NOT NULL,
			settled_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bankroll_entries_result ON bankroll_entries(result)`,
		`CREATE TABLE IF NOT EXISTS bankroll_stats (
			stat_date TEXT NOT NULL,
			result TEXT NOT NULL,
			n INTEGER NOT NULL,
			PRIMARY KEY(stat_date, result)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeLayout is fixed width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func scanNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// HasPicks reports whether picks exist for date.
func (s *Store) HasPicks(ctx context.Context, date string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM daily_picks WHERE pick_date = ?`), date).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SavePicks inserts the day's picks in one transaction. It returns false, storing
// nothing, when the date already has picks.
func (s *Store) SavePicks(ctx context.Context, date string, ps []picks.Pick) (bool, error) {
	if len(ps) == 0 {
		return false, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	q := s.rebind(`INSERT INTO daily_picks
		(id, pick_date, pick_rank, fixture_id, home_team, away_team, competition, kickoff, market, pick, confidence, odds, selection, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pick_date, pick_rank) DO NOTHING`)
	for _, p := range ps {
		sel, err := json.Marshal(p.Selection)
		if err != nil {
			return false, fmt.Errorf("marshal selection: %w", err)
		}
		res, err := tx.ExecContext(ctx, q, p.ID, date, p.Rank, p.FixtureID, p.HomeTeam, p.AwayTeam, p.Competition,
			formatTime(p.Kickoff), p.Market, p.Pick, p.Confidence, p.Odds, string(sel), formatTime(p.CreatedAt))
		if err != nil {
			return false, fmt.Errorf("insert pick %d: %w", p.Rank, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return false, err
		} else if n == 0 {
			return false, nil
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Picks returns the picks for date ordered by rank.
func (s *Store) Picks(ctx context.Context, date string) ([]picks.Pick, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, pick_date, pick_rank, fixture_id, home_team, away_team,
		competition, kickoff, market, pick, confidence, odds, selection, created_at
		FROM daily_picks WHERE pick_date = ? ORDER BY pick_rank`), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []picks.Pick{}
	for rows.Next() {
		var (
			p                picks.Pick
			kickoff, created string
			sel              string
		)
		if err := rows.Scan(&p.ID, &p.Date, &p.Rank, &p.FixtureID, &p.HomeTeam, &p.AwayTeam, &p.Competition,
			&kickoff, &p.Market, &p.Pick, &p.Confidence, &p.Odds, &sel, &created); err != nil {
			return nil, err
		}
		if p.Kickoff, err = parseTime(kickoff); err != nil {
			return nil, fmt.Errorf("pick %s kickoff: %w", p.ID, err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("pick %s created_at: %w", p.ID, err)
		}
		if sel != "" {
			if err := json.Unmarshal([]byte(sel), &p.Selection); err != nil {
				return nil, fmt.Errorf("pick %s selection: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const entryColumns = `id, fixture_id, match_label, home_team, away_team, kickoff, market, pick, selection,
	stake, odds, result, payout, created_at, settled_at`

// CreateEntry inserts a new entry.
func (s *Store) CreateEntry(ctx context.Context, e *bankroll.Entry) error {
	var sel sql.NullString
	if e.Selection != nil {
		b, err := json.Marshal(e.Selection)
		if err != nil {
			return fmt.Errorf("marshal selection: %w", err)
		}
		sel = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO bankroll_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.FixtureID, e.MatchLabel, e.HomeTeam, e.AwayTeam, nullTime(e.Kickoff), e.Market, e.Pick, sel,
		e.Stake, e.Odds, string(e.Result), e.Payout, formatTime(e.CreatedAt), nullTime(e.SettledAt))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*bankroll.Entry, error) {
	var (
		e                bankroll.Entry
		kickoff, settled sql.NullString
		sel              sql.NullString
		result, created  string
	)
	if err := r.Scan(&e.ID, &e.FixtureID, &e.MatchLabel, &e.HomeTeam, &e.AwayTeam, &kickoff, &e.Market, &e.Pick,
		&sel, &e.Stake, &e.Odds, &result, &e.Payout, &created, &settled); err != nil {
		return nil, err
	}
	e.Result = bankroll.Result(result)
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("entry %s created_at: %w", e.ID, err)
	}
	if e.Kickoff, err = scanNullTime(kickoff); err != nil {
		return nil, fmt.Errorf("entry %s kickoff: %w", e.ID, err)
	}
	if e.SettledAt, err = scanNullTime(settled); err != nil {
		return nil, fmt.Errorf("entry %s settled_at: %w", e.ID, err)
	}
	if sel.Valid && sel.String != "" {
		var ms market.Selection
		if err := json.Unmarshal([]byte(sel.String), &ms); err != nil {
			return nil, fmt.Errorf("entry %s selection: %w", e.ID, err)
		}
		e.Selection = &ms
	}
	return &e, nil
}

// Entry returns one entry or bankroll.ErrNotFound.
func (s *Store) Entry(ctx context.Context, id string) (*bankroll.Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+entryColumns+` FROM bankroll_entries WHERE id = ?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankroll.ErrNotFound
	}
	return e, err
}

// Entries returns every entry, oldest first.
func (s *Store) Entries(ctx context.Context) ([]bankroll.Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM bankroll_entries ORDER BY created_at, id`)
}

// PendingEntries returns entries still awaiting a result, oldest first.
func (s *Store) PendingEntries(ctx context.Context) ([]bankroll.Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM bankroll_entries WHERE result = ? ORDER BY created_at, id`,
		string(bankroll.Pending))
}

func (s *Store) queryEntries(ctx context.Context, q string, args ...any) ([]bankroll.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []bankroll.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Settle records a terminal result if the entry is still pending.
func (s *Store) Settle(ctx context.Context, id string, r bankroll.Result, payout decimal.Decimal, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE bankroll_entries SET result = ?, payout = ?, settled_at = ?
		WHERE id = ? AND result = ?`), string(r), payout, formatTime(at), id, string(bankroll.Pending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.Entry(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// RecordOutcome bumps the per-day settled counter for r.
func (s *Store) RecordOutcome(ctx context.Context, date string, r bankroll.Result) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO bankroll_stats (stat_date, result, n) VALUES (?, ?, 1)
		ON CONFLICT (stat_date, result) DO UPDATE SET n = bankroll_stats.n + 1`), date, string(r))
	return err
}

// DayStats returns the settled counters for date.
func (s *Store) DayStats(ctx context.Context, date string) (bankroll.DayStats, error) {
	d := bankroll.DayStats{Date: date}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT result, n FROM bankroll_stats WHERE stat_date = ?`), date)
	if err != nil {
		return d, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r string
			n int
		)
		if err := rows.Scan(&r, &n); err != nil {
			return d, err
		}
		switch bankroll.Result(r) {
		case bankroll.Won:
			d.Won = n
		case bankroll.Lost:
			d.Lost = n
		case bankroll.Void:
			d.Void = n
		}
	}
	return d, rows.Err()
}
