package market

// Side is the outcome chosen within a market.
type Side string

const (
	SideHome       Side = "home"
	SideDraw       Side = "draw"
	SideAway       Side = "away"
	SideHomeOrDraw Side = "home_or_draw"
	SideAwayOrDraw Side = "away_or_draw"
	SideHomeOrAway Side = "home_or_away"
	SideYes        Side = "yes"
	SideNo         Side = "no"
	SideOver       Side = "over"
	SideUnder      Side = "under"
	SideOdd        Side = "odd"
	SideEven       Side = "even"
	SideFirstHalf  Side = "first_half"
	SideSecondHalf Side = "second_half"
	SideEqual      Side = "equal"
)

// GoalRange is an inclusive goal count range; Max < 0 means open-ended ("3+").
type GoalRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether n falls in the range.
func (r GoalRange) Contains(n int) bool {
	return n >= r.Min && (r.Max < 0 || n <= r.Max)
}

// Score is an exact scoreline.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Selection is the structured form of a pick. It is produced with the market and
// carried onto logged bankroll entries so grading never has to parse pick text.
type Selection struct {
	Market    ID         `json:"marketId"`
	Side      Side       `json:"side,omitempty"`
	Threshold float64    `json:"threshold,omitempty"`
	Score     *Score     `json:"score,omitempty"`
	Range     *GoalRange `json:"range,omitempty"`
	// HalfTime is the half-time leg of an HT/FT selection.
	HalfTime Side `json:"halfTime,omitempty"`
	// Secondary is the goals leg of a combo market.
	Secondary *Selection `json:"secondary,omitempty"`
}
