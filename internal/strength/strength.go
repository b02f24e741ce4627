package strength

import (
	"strings"
	"time"

	"footpicks_go/internal/footballdata"
)

const (
	// LeagueAvgGoals is goals per team per match used when a competition has no table yet.
	LeagueAvgGoals = 1.35
	formDecay      = 0.8
	formGames      = 5
	// minGames below which a team's ratio is shrunk toward the league average.
	minGames = 6
)

// TeamStrength is one team's rating relative to its league. Ratios are 1.0 for an
// average team; Defense above 1.0 means the team concedes more than average.
type TeamStrength struct {
	TeamID      int64   `json:"team_id"`
	TeamName    string  `json:"team_name"`
	Attack      float64 `json:"attack"`
	Defense     float64 `json:"defense"`
	HomeAttack  float64 `json:"home_attack"`
	HomeDefense float64 `json:"home_defense"`
	AwayAttack  float64 `json:"away_attack"`
	AwayDefense float64 `json:"away_defense"`
	Form        float64 `json:"form"` // -1 (all losses) .. 1 (all wins), recency weighted
	Default     bool    `json:"default,omitempty"`
}

// Average is the league-average fallback for teams missing from the standings.
func Average(teamID int64, name string) TeamStrength {
	return TeamStrength{
		TeamID:      teamID,
		TeamName:    name,
		Attack:      1,
		Defense:     1,
		HomeAttack:  1,
		HomeDefense: 1,
		AwayAttack:  1,
		AwayDefense: 1,
		Default:     true,
	}
}

// Table holds the strengths of one competition.
type Table struct {
	Competition string                 `json:"competition"`
	AvgGoals    float64                `json:"avg_goals"`
	Teams       map[int64]TeamStrength `json:"teams"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Lookup returns the team's strength, falling back to the league average.
func (t *Table) Lookup(teamID int64, name string) TeamStrength {
	if t != nil {
		if s, ok := t.Teams[teamID]; ok {
			return s
		}
	}
	return Average(teamID, name)
}

// LeagueAvgGoals returns the table's goals per team per match, or the package default.
func (t *Table) LeagueAvgGoals() float64 {
	if t == nil || t.AvgGoals <= 0 {
		return LeagueAvgGoals
	}
	return t.AvgGoals
}

// Tables indexes tables by competition code.
type Tables map[string]*Table

// Lookup resolves a team within a competition; unknown competitions and teams get
// league-average strength.
func (ts Tables) Lookup(competition string, teamID int64, name string) (TeamStrength, float64) {
	t := ts[competition]
	return t.Lookup(teamID, name), t.LeagueAvgGoals()
}

// FromStandings derives a Table from TOTAL/HOME/AWAY standings.
func FromStandings(s *footballdata.Standings, now time.Time) *Table {
	t := &Table{
		Competition: s.Competition,
		Teams:       make(map[int64]TeamStrength, len(s.Total)),
		UpdatedAt:   now.UTC(),
	}
	avg := avgGoals(s.Total)
	t.AvgGoals = avg
	homeAvg := avgGoalsFor(s.Home, avg)
	awayAvg := avgGoalsFor(s.Away, avg)
	homeConcededAvg := avgGoalsAgainst(s.Home, awayAvg)
	awayConcededAvg := avgGoalsAgainst(s.Away, homeAvg)

	home := indexRows(s.Home)
	away := indexRows(s.Away)
	for _, r := range s.Total {
		ts := TeamStrength{
			TeamID:   r.TeamID,
			TeamName: r.TeamName,
			Attack:   ratio(r.GoalsFor, r.PlayedGames, avg),
			Defense:  ratio(r.GoalsAgainst, r.PlayedGames, avg),
			Form:     FormSignal(r.Form),
		}
		ts.HomeAttack, ts.HomeDefense = ts.Attack, ts.Defense
		if h, ok := home[r.TeamID]; ok {
			ts.HomeAttack = ratio(h.GoalsFor, h.PlayedGames, homeAvg)
			ts.HomeDefense = ratio(h.GoalsAgainst, h.PlayedGames, homeConcededAvg)
		}
		ts.AwayAttack, ts.AwayDefense = ts.Attack, ts.Defense
		if a, ok := away[r.TeamID]; ok {
			ts.AwayAttack = ratio(a.GoalsFor, a.PlayedGames, awayAvg)
			ts.AwayDefense = ratio(a.GoalsAgainst, a.PlayedGames, awayConcededAvg)
		}
		t.Teams[r.TeamID] = ts
	}
	return t
}

// FormSignal turns a form string ("W,D,L,W,W", most recent first) into a recency
// weighted score in [-1, 1]. Empty or unparseable form is neutral.
func FormSignal(form string) float64 {
	var sum, weights float64
	w := 1.0
	n := 0
	for _, tok := range strings.Split(form, ",") {
		var v float64
		switch strings.TrimSpace(strings.ToUpper(tok)) {
		case "W":
			v = 1
		case "D":
			v = 0
		case "L":
			v = -1
		default:
			continue
		}
		sum += v * w
		weights += w
		w *= formDecay
		n++
		if n == formGames {
			break
		}
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// ratio is goals per game relative to avg, shrunk toward 1.0 when few games are played.
func ratio(goals, played int, avg float64) float64 {
	if played <= 0 || avg <= 0 {
		return 1
	}
	r := (float64(goals) / float64(played)) / avg
	if played < minGames {
		w := float64(played) / minGames
		r = w*r + (1-w)*1
	}
	if r < 0.25 {
		r = 0.25
	}
	if r > 3 {
		r = 3
	}
	return r
}

func avgGoals(rows []footballdata.StandingRow) float64 {
	var goals, played int
	for _, r := range rows {
		goals += r.GoalsFor
		played += r.PlayedGames
	}
	if played == 0 {
		return LeagueAvgGoals
	}
	return float64(goals) / float64(played)
}

func avgGoalsFor(rows []footballdata.StandingRow, fallback float64) float64 {
	var goals, played int
	for _, r := range rows {
		goals += r.GoalsFor
		played += r.PlayedGames
	}
	if played == 0 || goals == 0 {
		return fallback
	}
	return float64(goals) / float64(played)
}

func avgGoalsAgainst(rows []footballdata.StandingRow, fallback float64) float64 {
	var goals, played int
	for _, r := range rows {
		goals += r.GoalsAgainst
		played += r.PlayedGames
	}
	if played == 0 || goals == 0 {
		return fallback
	}
	return float64(goals) / float64(played)
}

func indexRows(rows []footballdata.StandingRow) map[int64]footballdata.StandingRow {
	m := make(map[int64]footballdata.StandingRow, len(rows))
	for _, r := range rows {
		m[r.TeamID] = r
	}
	return m
}
