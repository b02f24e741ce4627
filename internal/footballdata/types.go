package footballdata

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the fixture lifecycle state.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusTimed     Status = "TIMED"
	StatusInPlay    Status = "IN_PLAY"
	StatusPaused    Status = "PAUSED"
	StatusFinished  Status = "FINISHED"
)

// knownStatuses maps API status values onto the lifecycle. LIVE is an alias the API
// uses for in-play matches; POSTPONED, CANCELLED and friends are not accepted.
var knownStatuses = map[string]Status{
	"SCHEDULED": StatusScheduled,
	"TIMED":     StatusTimed,
	"IN_PLAY":   StatusInPlay,
	"LIVE":      StatusInPlay,
	"PAUSED":    StatusPaused,
	"FINISHED":  StatusFinished,
}

// Finished reports whether the fixture reached its terminal state.
func (s Status) Finished() bool { return s == StatusFinished }

// ErrInvalidFixture marks a record rejected at the ingestion boundary.
var ErrInvalidFixture = errors.New("invalid fixture")

// Team identifies one side of a fixture.
type Team struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// DisplayName prefers the short name ("Arsenal" over "Arsenal FC").
func (t Team) DisplayName() string {
	if t.ShortName != "" {
		return t.ShortName
	}
	return t.Name
}

type Competition struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Score is a full-time scoreline.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

func (s Score) String() string { return fmt.Sprintf("%d-%d", s.Home, s.Away) }

// Fixture is a validated match record. Score is nil until both sides are known.
type Fixture struct {
	ID          int64       `json:"id"`
	Competition Competition `json:"competition"`
	HomeTeam    Team        `json:"home_team"`
	AwayTeam    Team        `json:"away_team"`
	Kickoff     time.Time   `json:"kickoff"`
	Status      Status      `json:"status"`
	Score       *Score      `json:"score,omitempty"`
}

// Label is the "Home vs Away" text used for logged picks.
func (f *Fixture) Label() string {
	return f.HomeTeam.DisplayName() + " vs " + f.AwayTeam.DisplayName()
}

// Settled reports whether the fixture can be graded: finished with both goals known.
func (f *Fixture) Settled() bool {
	return f.Status.Finished() && f.Score != nil
}

// rawMatch is the API shape; every pointer may be null upstream.
type rawMatch struct {
	ID          int64   `json:"id"`
	UTCDate     string  `json:"utcDate"`
	Status      string  `json:"status"`
	Competition *struct {
		ID   int64  `json:"id"`
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"competition"`
	HomeTeam *rawTeam `json:"homeTeam"`
	AwayTeam *rawTeam `json:"awayTeam"`
	Score    *struct {
		FullTime *struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
}

type rawTeam struct {
	ID        *int64 `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

// validate converts a raw record into a Fixture or reports why it was rejected.
func (m rawMatch) validate() (Fixture, error) {
	if m.ID <= 0 {
		return Fixture{}, fmt.Errorf("%w: missing id", ErrInvalidFixture)
	}
	status, ok := knownStatuses[strings.ToUpper(m.Status)]
	if !ok {
		return Fixture{}, fmt.Errorf("%w: match %d has unsupported status %q", ErrInvalidFixture, m.ID, m.Status)
	}
	if m.HomeTeam == nil || m.AwayTeam == nil || m.HomeTeam.ID == nil || m.AwayTeam.ID == nil {
		return Fixture{}, fmt.Errorf("%w: match %d missing team", ErrInvalidFixture, m.ID)
	}
	if m.HomeTeam.Name == "" || m.AwayTeam.Name == "" {
		return Fixture{}, fmt.Errorf("%w: match %d missing team name", ErrInvalidFixture, m.ID)
	}
	kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
	if err != nil {
		return Fixture{}, fmt.Errorf("%w: match %d kickoff %q", ErrInvalidFixture, m.ID, m.UTCDate)
	}
	f := Fixture{
		ID:       m.ID,
		HomeTeam: Team{ID: *m.HomeTeam.ID, Name: m.HomeTeam.Name, ShortName: m.HomeTeam.ShortName},
		AwayTeam: Team{ID: *m.AwayTeam.ID, Name: m.AwayTeam.Name, ShortName: m.AwayTeam.ShortName},
		Kickoff:  kickoff.UTC(),
		Status:   status,
	}
	if m.Competition != nil {
		f.Competition = Competition{ID: m.Competition.ID, Code: m.Competition.Code, Name: m.Competition.Name}
	}
	if m.Score != nil && m.Score.FullTime != nil && m.Score.FullTime.Home != nil && m.Score.FullTime.Away != nil {
		f.Score = &Score{Home: *m.Score.FullTime.Home, Away: *m.Score.FullTime.Away}
	}
	if status.Finished() && f.Score == nil {
		return Fixture{}, fmt.Errorf("%w: match %d finished without full-time score", ErrInvalidFixture, m.ID)
	}
	return f, nil
}

// StandingRow is one team's line in a standings table.
type StandingRow struct {
	TeamID       int64  `json:"team_id"`
	TeamName     string `json:"team_name"`
	PlayedGames  int    `json:"played_games"`
	Won          int    `json:"won"`
	Draw         int    `json:"draw"`
	Lost         int    `json:"lost"`
	Points       int    `json:"points"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	Form         string `json:"form"` // e.g. "W,D,L,W,W", most recent first
}

// Standings holds the total, home and away tables for one competition.
type Standings struct {
	Competition string        `json:"competition"`
	Total       []StandingRow `json:"total"`
	Home        []StandingRow `json:"home"`
	Away        []StandingRow `json:"away"`
}
