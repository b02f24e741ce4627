package market

// ID is the stable identifier of a catalog market, carried in selections.
type ID string

const (
	Match1X2         ID = "1x2"
	DoubleChance     ID = "double_chance"
	DrawNoBet        ID = "draw_no_bet"
	BTTS             ID = "btts"
	OverUnder15      ID = "ou_1_5"
	OverUnder25      ID = "ou_2_5"
	OverUnder35      ID = "ou_3_5"
	OverUnder45      ID = "ou_4_5"
	AsianHandicap05  ID = "ah_0_5"
	AsianHandicap15  ID = "ah_1_5"
	CorrectScore     ID = "correct_score"
	HalftimeResult   ID = "ht_result"
	HalftimeFulltime ID = "ht_ft"
	HomeOverUnder05  ID = "home_ou_0_5"
	HomeOverUnder15  ID = "home_ou_1_5"
	AwayOverUnder05  ID = "away_ou_0_5"
	AwayOverUnder15  ID = "away_ou_1_5"
	OddEven          ID = "odd_even"
	WinningMargin    ID = "winning_margin"
	ResultOverUnder  ID = "1x2_ou_2_5"
	ResultBTTS       ID = "1x2_btts"
	WinToNil         ID = "win_to_nil"
	GoalsRange       ID = "goals_range"
	ExactTotalGoals  ID = "exact_total"
	HighestHalf      ID = "highest_half"
)

// Family groups markets that settle by the same rule.
type Family int

const (
	FamilyResult Family = iota
	FamilyDoubleChance
	FamilyDrawNoBet
	FamilyHandicap
	FamilyBTTS
	FamilyTotal
	FamilyTeamTotal
	FamilyCorrectScore
	FamilyOddEven
	FamilyMargin
	FamilyWinToNil
	FamilyGoalsRange
	FamilyCombo
	FamilyHalfTime
)

// Definition describes one catalog entry. Threshold is the goal line for total,
// team-total and handicap markets.
type Definition struct {
	ID        ID
	Name      string
	Family    Family
	Threshold float64
}

// Catalog is the fixed market list, in tie-break order.
var Catalog = []Definition{
	{ID: Match1X2, Name: "1X2", Family: FamilyResult},
	{ID: DoubleChance, Name: "Double Chance", Family: FamilyDoubleChance},
	{ID: DrawNoBet, Name: "No Bet (Draw No Bet)", Family: FamilyDrawNoBet},
	{ID: BTTS, Name: "BTTS (GG/NG)", Family: FamilyBTTS},
	{ID: OverUnder15, Name: "Over/Under 1.5", Family: FamilyTotal, Threshold: 1.5},
	{ID: OverUnder25, Name: "Over/Under 2.5", Family: FamilyTotal, Threshold: 2.5},
	{ID: OverUnder35, Name: "Over/Under 3.5", Family: FamilyTotal, Threshold: 3.5},
	{ID: OverUnder45, Name: "Over/Under 4.5", Family: FamilyTotal, Threshold: 4.5},
	{ID: AsianHandicap05, Name: "Asian Handicap -0.5", Family: FamilyHandicap, Threshold: 0.5},
	{ID: AsianHandicap15, Name: "Asian Handicap -1.5", Family: FamilyHandicap, Threshold: 1.5},
	{ID: CorrectScore, Name: "Correct Score", Family: FamilyCorrectScore},
	{ID: HalftimeResult, Name: "Halftime Result", Family: FamilyHalfTime},
	{ID: HalftimeFulltime, Name: "HT/FT", Family: FamilyHalfTime},
	{ID: HomeOverUnder05, Name: "Home Over/Under 0.5", Family: FamilyTeamTotal, Threshold: 0.5},
	{ID: HomeOverUnder15, Name: "Home Over/Under 1.5", Family: FamilyTeamTotal, Threshold: 1.5},
	{ID: AwayOverUnder05, Name: "Away Over/Under 0.5", Family: FamilyTeamTotal, Threshold: 0.5},
	{ID: AwayOverUnder15, Name: "Away Over/Under 1.5", Family: FamilyTeamTotal, Threshold: 1.5},
	{ID: OddEven, Name: "Odd/Even Goals", Family: FamilyOddEven},
	{ID: WinningMargin, Name: "Winning Margin", Family: FamilyMargin},
	{ID: ResultOverUnder, Name: "1X2 + Over/Under 2.5", Family: FamilyCombo, Threshold: 2.5},
	{ID: ResultBTTS, Name: "1X2 + BTTS", Family: FamilyCombo},
	{ID: WinToNil, Name: "Win To Nil", Family: FamilyWinToNil},
	{ID: GoalsRange, Name: "Total Goals Range", Family: FamilyGoalsRange},
	{ID: ExactTotalGoals, Name: "Exact Total Goals", Family: FamilyGoalsRange},
	{ID: HighestHalf, Name: "Highest Scoring Half", Family: FamilyHalfTime},
}

var (
	byID   = make(map[ID]Definition, len(Catalog))
	byName = make(map[string]Definition, len(Catalog))
)

func init() {
	for _, d := range Catalog {
		byID[d.ID] = d
		byName[d.Name] = d
	}
}

// Lookup returns the definition for id.
func Lookup(id ID) (Definition, bool) {
	d, ok := byID[id]
	return d, ok
}

// ByName returns the definition with the given display name.
func ByName(name string) (Definition, bool) {
	d, ok := byName[name]
	return d, ok
}
