package settlement

import (
	"testing"
	"time"

	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/market"
	"footpicks_go/internal/model"
	"footpicks_go/internal/strength"
)

func TestGrade_Scenarios(t *testing.T) {
	cases := []struct {
		market, pick string
		home, away   int
		want         Verdict
	}{
		{"1X2", "Arsenal Win", 2, 1, Won},
		{"BTTS (GG/NG)", "Yes (GG)", 1, 0, Lost},
		{"Over/Under 2.5", "Under 2.5", 1, 1, Won},
		{"Correct Score", "2-1", 2, 1, Won},
		{"Correct Score", "2-1", 1, 2, Lost},
		{"No Bet (Draw No Bet)", "Arsenal", 1, 1, Void},
		{"Asian Handicap -1.5", "Arsenal", 2, 1, Lost},
	}
	for _, tc := range cases {
		if got := Grade(tc.market, tc.pick, tc.home, tc.away, "Arsenal", "Chelsea"); got != tc.want {
			t.Errorf("Grade(%q, %q, %d-%d) = %s; want %s", tc.market, tc.pick, tc.home, tc.away, got, tc.want)
		}
	}
}

func TestGrade_Idempotent(t *testing.T) {
	first := Grade("1X2", "Arsenal Win", 2, 1, "Arsenal", "Chelsea")
	for i := 0; i < 5; i++ {
		if got := Grade("1X2", "Arsenal Win", 2, 1, "Arsenal", "Chelsea"); got != first {
			t.Fatalf("call %d = %s; first was %s", i, got, first)
		}
	}
}

func TestGrade_Families(t *testing.T) {
	cases := []struct {
		name         string
		market, pick string
		home, away   int
		want         Verdict
	}{
		{"away win", "1X2", "Chelsea Win", 0, 2, Won},
		{"draw pick", "1X2", "Draw", 1, 1, Won},
		{"draw pick loses", "1X2", "Draw", 2, 1, Lost},
		{"team token beats draw", "1X2", "Arsenal or draw?", 0, 0, Lost},
		{"first-name token", "1X2", "Manchester Win", 3, 0, Won},
		{"no side", "1X2", "banana", 1, 0, Unresolvable},
		{"double chance 1X on draw", "Double Chance", "Arsenal or Draw", 1, 1, Won},
		{"double chance 1X on away win", "Double Chance", "Arsenal or Draw", 0, 1, Lost},
		{"double chance 12", "Double Chance", "Arsenal or Chelsea", 0, 1, Won},
		{"dnb win", "No Bet (Draw No Bet)", "Chelsea", 0, 1, Won},
		{"dnb lose", "No Bet (Draw No Bet)", "Chelsea", 2, 1, Lost},
		{"ah -1.5 covers", "Asian Handicap -1.5", "Arsenal -1.5", 3, 1, Won},
		{"ah -0.5", "Asian Handicap -0.5", "Chelsea -0.5", 1, 1, Lost},
		{"btts no", "BTTS (GG/NG)", "No (NG)", 1, 0, Won},
		{"btts yes", "BTTS (GG/NG)", "Yes (GG)", 2, 2, Won},
		{"over 3.5", "Over/Under 3.5", "Over 3.5", 2, 2, Won},
		{"line from pick", "Goals Over/Under", "Over 1.5", 1, 0, Lost},
		{"whole line push", "Total Over/Under", "Over 2", 1, 1, Void},
		{"home over 0.5", "Home Over/Under 0.5", "Arsenal Over 0.5", 1, 0, Won},
		{"away under 1.5", "Away Over/Under 1.5", "Chelsea Under 1.5", 0, 2, Lost},
		{"odd", "Odd/Even Goals", "Odd", 2, 1, Won},
		{"even", "Odd/Even Goals", "Even", 2, 1, Lost},
		{"margin 1", "Winning Margin", "Arsenal by 1", 2, 1, Won},
		{"margin wrong bucket", "Winning Margin", "Arsenal by 2", 2, 1, Lost},
		{"margin 3+", "Winning Margin", "Chelsea by 3+", 0, 4, Won},
		{"margin wrong side", "Winning Margin", "Chelsea by 1", 2, 1, Lost},
		{"margin draw", "Winning Margin", "Draw", 0, 0, Won},
		{"win to nil", "Win To Nil", "Arsenal to win to nil", 2, 0, Won},
		{"win to nil conceded", "Win To Nil", "Arsenal to win to nil", 2, 1, Lost},
		{"no win to nil", "Win To Nil", "No win to nil", 2, 1, Won},
		{"no win to nil loses", "Win To Nil", "No win to nil", 0, 1, Lost},
		{"range", "Total Goals Range", "2-3", 2, 1, Won},
		{"range open", "Total Goals Range", "4+", 2, 1, Lost},
		{"exact total", "Exact Total Goals", "3", 2, 1, Won},
		{"combo ou", "1X2 + Over/Under 2.5", "Arsenal & Over 2.5", 2, 1, Won},
		{"combo ou leg lost", "1X2 + Over/Under 2.5", "Arsenal & Over 2.5", 1, 0, Lost},
		{"combo btts", "1X2 + BTTS", "Draw & GG", 1, 1, Won},
		{"combo btts ng", "1X2 + BTTS", "Chelsea & NG", 0, 1, Won},
		{"halftime", "Halftime Result", "Arsenal", 2, 1, Unresolvable},
		{"ht/ft", "HT/FT", "Arsenal/Arsenal", 2, 1, Unresolvable},
		{"highest half", "Highest Scoring Half", "2nd Half", 2, 1, Unresolvable},
		{"unknown market", "Corners Over/Under", "", 2, 1, Unresolvable},
		{"negative score", "1X2", "Arsenal Win", -1, 0, Unresolvable},
	}
	for _, tc := range cases {
		home := "Arsenal"
		if tc.name == "first-name token" {
			home = "Manchester City"
		}
		if got := Grade(tc.market, tc.pick, tc.home, tc.away, home, "Chelsea"); got != tc.want {
			t.Errorf("%s: Grade(%q, %q, %d-%d) = %s; want %s", tc.name, tc.market, tc.pick, tc.home, tc.away, got, tc.want)
		}
	}
}

func TestGrade_SharedFirstWord(t *testing.T) {
	got := Grade("1X2", "Manchester City Win", 0, 1, "Manchester United", "Manchester City")
	if got != Won {
		t.Errorf("Grade = %s; want WON (full name disambiguates)", got)
	}
}

func TestGradeSelection(t *testing.T) {
	line := func(id market.ID, s market.Side, th float64) market.Selection {
		return market.Selection{Market: id, Side: s, Threshold: th}
	}
	cases := []struct {
		name string
		sel  market.Selection
		h, a int
		want Verdict
	}{
		{"1x2 home", line(market.Match1X2, market.SideHome, 0), 2, 1, Won},
		{"double chance X2", line(market.DoubleChance, market.SideAwayOrDraw, 0), 1, 1, Won},
		{"double chance 12 on draw", line(market.DoubleChance, market.SideHomeOrAway, 0), 0, 0, Lost},
		{"dnb draw", line(market.DrawNoBet, market.SideHome, 0), 1, 1, Void},
		{"ah -1.5 margin 1", line(market.AsianHandicap15, market.SideHome, 1.5), 2, 1, Lost},
		{"ah -1.5 margin 2", line(market.AsianHandicap15, market.SideHome, 1.5), 3, 1, Won},
		{"btts yes", line(market.BTTS, market.SideYes, 0), 1, 0, Lost},
		{"under 2.5", line(market.OverUnder25, market.SideUnder, 2.5), 1, 1, Won},
		{"away over 0.5", line(market.AwayOverUnder05, market.SideOver, 0.5), 3, 0, Lost},
		{"correct score", market.Selection{Market: market.CorrectScore, Score: &market.Score{Home: 2, Away: 1}}, 2, 1, Won},
		{"correct score miss", market.Selection{Market: market.CorrectScore, Score: &market.Score{Home: 2, Away: 1}}, 1, 2, Lost},
		{"margin 3+", market.Selection{Market: market.WinningMargin, Side: market.SideAway, Range: &market.GoalRange{Min: 3, Max: -1}}, 0, 5, Won},
		{"win to nil no", line(market.WinToNil, market.SideNo, 0), 1, 0, Lost},
		{"range", market.Selection{Market: market.GoalsRange, Range: &market.GoalRange{Min: 0, Max: 1}}, 0, 0, Won},
		{"combo", market.Selection{Market: market.ResultBTTS, Side: market.SideDraw,
			Secondary: &market.Selection{Market: market.BTTS, Side: market.SideYes}}, 1, 1, Won},
		{"combo leg lost", market.Selection{Market: market.ResultOverUnder, Side: market.SideHome, Threshold: 2.5,
			Secondary: &market.Selection{Market: market.OverUnder25, Side: market.SideOver, Threshold: 2.5}}, 1, 0, Lost},
		{"ht/ft", market.Selection{Market: market.HalftimeFulltime, HalfTime: market.SideHome, Side: market.SideHome}, 2, 0, Unresolvable},
		{"unknown", market.Selection{Market: "corners"}, 2, 0, Unresolvable},
		{"missing side", market.Selection{Market: market.Match1X2}, 2, 0, Unresolvable},
	}
	for _, tc := range cases {
		if got := GradeSelection(tc.sel, footballdata.Score{Home: tc.h, Away: tc.a}); got != tc.want {
			t.Errorf("%s: GradeSelection = %s; want %s", tc.name, got, tc.want)
		}
	}
}

func TestGradeFixture_RefusesUnfinished(t *testing.T) {
	f := &footballdata.Fixture{
		HomeTeam: footballdata.Team{Name: "Arsenal FC", ShortName: "Arsenal"},
		AwayTeam: footballdata.Team{Name: "Chelsea"},
		Kickoff:  time.Now(),
		Status:   footballdata.StatusInPlay,
		Score:    &footballdata.Score{Home: 2, Away: 0},
	}
	if got := GradeFixture(f, "1X2", "Arsenal Win", nil); got != Unresolvable {
		t.Errorf("in-play = %s; want UNRESOLVABLE", got)
	}
	f.Status = footballdata.StatusFinished
	f.Score = nil
	if got := GradeFixture(f, "1X2", "Arsenal Win", nil); got != Unresolvable {
		t.Errorf("finished without score = %s; want UNRESOLVABLE", got)
	}
	f.Score = &footballdata.Score{Home: 2, Away: 0}
	if got := GradeFixture(f, "1X2", "Arsenal Win", nil); got != Won {
		t.Errorf("finished = %s; want WON", got)
	}
	sel := &market.Selection{Market: market.Match1X2, Side: market.SideAway}
	if got := GradeFixture(f, "1X2", "Arsenal Win", sel); got != Lost {
		t.Errorf("selection path = %s; want LOST (selection wins over text)", got)
	}
	if got := GradeFixture(nil, "1X2", "x", nil); got != Unresolvable {
		t.Errorf("nil fixture = %s", got)
	}
}

func TestGrade_TeamNamesContainingKeywords(t *testing.T) {
	cases := []struct {
		market, pick string
		home, away   string
		h, a         int
		want         Verdict
	}{
		{"Win To Nil", "Nottingham Forest to win to nil", "Nottingham Forest", "Sunderland", 2, 0, Won},
		{"Win To Nil", "Norwich City to win to nil", "Norwich City", "Leeds United", 1, 0, Won},
		{"Win To Nil", "No win to nil", "Norwich City", "Leeds United", 1, 0, Lost},
		{"Home Over/Under 0.5", "Sunderland Over 0.5", "Sunderland", "Everton", 1, 0, Won},
		{"Away Over/Under 1.5", "Hannover 96 Under 1.5", "Hamburger SV", "Hannover 96", 0, 1, Won},
		{"Winning Margin", "Derby County by 2", "Derby County", "Stoke City", 3, 1, Won},
		{"1X2 + Over/Under 2.5", "Brighton & Hove Albion & Under 2.5", "Norwich City", "Brighton & Hove Albion", 0, 2, Won},
		{"1X2 + BTTS", "Norwich City & NG", "Norwich City", "Brighton & Hove Albion", 1, 0, Won},
	}
	for _, tc := range cases {
		if got := Grade(tc.market, tc.pick, tc.h, tc.a, tc.home, tc.away); got != tc.want {
			t.Errorf("Grade(%q, %q, %d-%d) = %s; want %s", tc.market, tc.pick, tc.h, tc.a, got, tc.want)
		}
	}
}

// Every generated market must settle the same way through text and selection.
func TestGrade_TextAndSelectionAgree(t *testing.T) {
	pairs := []market.Teams{
		{Home: "Arsenal", Away: "Chelsea"},
		{Home: "Nottingham Forest", Away: "Sunderland"},
		{Home: "Hamburger SV", Away: "Hannover 96"},
		{Home: "Norwich City", Away: "Brighton & Hove Albion"},
		{Home: "Manchester City", Away: "Manchester United"},
	}
	engine := model.NewEngine(model.Options{Seed: 7, Trials: 500})
	scores := []footballdata.Score{
		{Home: 0, Away: 0}, {Home: 1, Away: 0}, {Home: 0, Away: 1}, {Home: 2, Away: 1},
		{Home: 1, Away: 1}, {Home: 3, Away: 0}, {Home: 2, Away: 2}, {Home: 0, Away: 4},
	}
	for _, teams := range pairs {
		d := engine.Predict(strength.Average(1, teams.Home), strength.Average(2, teams.Away), model.DefaultVenue(strength.LeagueAvgGoals))
		for _, m := range market.Build(d, teams) {
			for _, sc := range scores {
				text := Grade(m.Market, m.Pick, sc.Home, sc.Away, teams.Home, teams.Away)
				structured := GradeSelection(m.Selection, sc)
				if text != structured {
					t.Errorf("%s v %s: %s %q at %s: text %s, selection %s",
						teams.Home, teams.Away, m.Market, m.Pick, sc, text, structured)
				}
			}
		}
	}
}
