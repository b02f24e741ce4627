package settlement

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/market"
)

// Verdict is the outcome of grading one pick.
type Verdict string

const (
	Won          Verdict = "WON"
	Lost         Verdict = "LOST"
	Void         Verdict = "VOID"
	Unresolvable Verdict = "UNRESOLVABLE"
)

var (
	lineRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	scoreRe  = regexp.MustCompile(`^\s*(\d+)\s*[-:]\s*(\d+)\s*$`)
	rangeRe  = regexp.MustCompile(`^\s*(\d+)\s*(?:(\+)|-\s*(\d+))?\s*$`)
	marginRe = regexp.MustCompile(`\bby\s+(\d+)(\+)?`)
	orRe     = regexp.MustCompile(`\s+or\s+|/`)
)

// Grade settles a free-text pick against a final score. It is pure: the same
// arguments always give the same verdict. Markets without a settlement rule
// (half-time markets) return Unresolvable.
func Grade(marketName, pick string, homeGoals, awayGoals int, homeTeam, awayTeam string) Verdict {
	if homeGoals < 0 || awayGoals < 0 {
		return Unresolvable
	}
	fam, line, ok := classify(marketName)
	if !ok {
		return Unresolvable
	}
	p := strings.ToLower(strings.TrimSpace(pick))
	names := teamNames{home: homeTeam, away: awayTeam}
	// keyword tests run on kw so team names cannot supply "over", "no" and the like
	kw := names.strip(p)
	actual := resultOf(homeGoals, awayGoals)
	total := homeGoals + awayGoals

	switch fam {
	case market.FamilyResult:
		side := names.side(p)
		if side == "" {
			return Unresolvable
		}
		return verdict(side == actual)

	case market.FamilyDoubleChance:
		sides := names.sides(p)
		if len(sides) < 2 {
			return Unresolvable
		}
		return verdict(sides[actual])

	case market.FamilyDrawNoBet:
		if actual == market.SideDraw {
			return Void
		}
		side := names.side(p)
		if side == "" || side == market.SideDraw {
			return Unresolvable
		}
		return verdict(side == actual)

	case market.FamilyHandicap:
		side := names.side(p)
		if side != market.SideHome && side != market.SideAway {
			return Unresolvable
		}
		if line == 0 {
			line = parseLine(kw)
		}
		return verdict(margin(side, homeGoals, awayGoals) > line)

	case market.FamilyBTTS:
		return verdict(bttsYes(kw) == (homeGoals > 0 && awayGoals > 0))

	case market.FamilyTotal:
		if line == 0 {
			line = parseLine(kw)
		}
		return overUnder(kw, float64(total), line)

	case market.FamilyTeamTotal:
		goals := homeGoals
		switch {
		case strings.HasPrefix(strings.ToLower(marketName), "away"):
			goals = awayGoals
		case strings.HasPrefix(strings.ToLower(marketName), "home"):
		default:
			if names.side(p) == market.SideAway {
				goals = awayGoals
			}
		}
		if line == 0 {
			line = parseLine(kw)
		}
		return overUnder(kw, float64(goals), line)

	case market.FamilyCorrectScore:
		m := scoreRe.FindStringSubmatch(p)
		if m == nil {
			return Unresolvable
		}
		return verdict(m[1]+"-"+m[2] == strconv.Itoa(homeGoals)+"-"+strconv.Itoa(awayGoals))

	case market.FamilyOddEven:
		w := words(kw)
		switch {
		case w["odd"]:
			return verdict(total%2 == 1)
		case w["even"]:
			return verdict(total%2 == 0)
		}
		return Unresolvable

	case market.FamilyMargin:
		side := names.side(p)
		if side == "" {
			return Unresolvable
		}
		if side == market.SideDraw {
			return verdict(actual == market.SideDraw)
		}
		m := marginRe.FindStringSubmatch(kw)
		if m == nil {
			return Unresolvable
		}
		n, _ := strconv.Atoi(m[1])
		bucket := market.GoalRange{Min: n, Max: n}
		if m[2] != "" {
			bucket.Max = -1
		}
		return verdict(side == actual && bucket.Contains(int(margin(side, homeGoals, awayGoals))))

	case market.FamilyWinToNil:
		if strings.HasPrefix(kw, "no win") {
			return verdict(!winToNil(market.SideHome, homeGoals, awayGoals) && !winToNil(market.SideAway, homeGoals, awayGoals))
		}
		side := names.side(p)
		if side != market.SideHome && side != market.SideAway {
			return Unresolvable
		}
		return verdict(winToNil(side, homeGoals, awayGoals))

	case market.FamilyGoalsRange:
		r, ok := parseRange(p)
		if !ok {
			return Unresolvable
		}
		return verdict(r.Contains(total))

	case market.FamilyCombo:
		// the goals leg follows the last "&"; team names may contain one
		i := strings.LastIndex(p, "&")
		if i < 0 {
			return Unresolvable
		}
		side := names.side(p[:i])
		if side == "" {
			return Unresolvable
		}
		second := strings.TrimSpace(p[i+1:])
		w := words(second)
		var legWon bool
		switch {
		case w["over"] || w["under"]:
			l := line
			if l == 0 {
				l = parseLine(second)
			}
			v := overUnder(second, float64(total), l)
			if v == Unresolvable || v == Void {
				return v
			}
			legWon = v == Won
		case w["gg"] || w["ng"] || w["yes"] || w["no"]:
			legWon = bttsYes(second) == (homeGoals > 0 && awayGoals > 0)
		default:
			return Unresolvable
		}
		return verdict(side == actual && legWon)
	}
	return Unresolvable
}

// GradeFixture grades against a fixture, refusing anything not finished with a
// known score. A non-nil selection is graded structurally; otherwise the pick text is used.
func GradeFixture(f *footballdata.Fixture, marketName, pick string, sel *market.Selection) Verdict {
	if f == nil || !f.Settled() {
		return Unresolvable
	}
	if sel != nil && sel.Market != "" {
		return GradeSelection(*sel, *f.Score)
	}
	return Grade(marketName, pick, f.Score.Home, f.Score.Away, f.HomeTeam.DisplayName(), f.AwayTeam.DisplayName())
}

// classify maps a market name to its settlement family and goal line. Names outside
// the catalog are matched on keywords so older logged entries still settle.
func classify(name string) (market.Family, float64, bool) {
	if def, ok := market.ByName(name); ok {
		return def.Family, def.Threshold, true
	}
	n := strings.ToLower(name)
	line := parseLine(n)
	switch {
	case strings.Contains(n, "half") || strings.Contains(n, "ht/ft") || strings.HasPrefix(n, "ht "):
		return market.FamilyHalfTime, 0, true
	case strings.Contains(n, "draw no bet") || strings.Contains(n, "dnb"):
		return market.FamilyDrawNoBet, 0, true
	case strings.Contains(n, "double chance"):
		return market.FamilyDoubleChance, 0, true
	case strings.Contains(n, "handicap"):
		return market.FamilyHandicap, line, true
	case (strings.Contains(n, "1x2") || strings.Contains(n, "result")) && strings.Contains(n, "+"):
		return market.FamilyCombo, line, true
	case strings.Contains(n, "btts") || strings.Contains(n, "both teams"):
		return market.FamilyBTTS, 0, true
	case strings.Contains(n, "correct score"):
		return market.FamilyCorrectScore, 0, true
	case strings.Contains(n, "winning margin"):
		return market.FamilyMargin, 0, true
	case strings.Contains(n, "win to nil"):
		return market.FamilyWinToNil, 0, true
	case strings.Contains(n, "odd") && strings.Contains(n, "even"):
		return market.FamilyOddEven, 0, true
	case strings.Contains(n, "total goals") || strings.Contains(n, "goals range"):
		return market.FamilyGoalsRange, 0, true
	case (strings.HasPrefix(n, "home") || strings.HasPrefix(n, "away") || strings.Contains(n, "team")) &&
		(strings.Contains(n, "over") || strings.Contains(n, "under")):
		return market.FamilyTeamTotal, line, true
	case strings.Contains(n, "over") || strings.Contains(n, "under"):
		return market.FamilyTotal, line, true
	case n == "1x2" || strings.Contains(n, "match result") || strings.Contains(n, "match winner"):
		return market.FamilyResult, 0, true
	}
	return 0, 0, false
}

type teamNames struct {
	home, away string
}

// side finds the predicted result in pick text. Team names win over "draw": the
// full name is tried first, then its first word.
func (t teamNames) side(p string) market.Side {
	p = strings.ToLower(p)
	for _, candidates := range t.tokens() {
		h, a := candidates[0], candidates[1]
		hasH := h != "" && strings.Contains(p, h)
		hasA := a != "" && strings.Contains(p, a)
		switch {
		case hasH && !hasA:
			return market.SideHome
		case hasA && !hasH:
			return market.SideAway
		}
	}
	if strings.Contains(p, "draw") {
		return market.SideDraw
	}
	return ""
}

// sides returns every result a double-chance pick covers.
func (t teamNames) sides(p string) map[market.Side]bool {
	p = strings.ToLower(p)
	out := map[market.Side]bool{}
	for _, part := range orRe.Split(p, -1) {
		if s := t.side(part); s != "" {
			out[s] = true
		}
	}
	return out
}

// tokens returns (home, away) pairs to match: full names, then first words when
// they differ.
func (t teamNames) tokens() [][2]string {
	h, a := strings.ToLower(strings.TrimSpace(t.home)), strings.ToLower(strings.TrimSpace(t.away))
	pairs := [][2]string{{h, a}}
	hf, af := firstWord(h), firstWord(a)
	if hf != af {
		pairs = append(pairs, [2]string{hf, af})
	}
	return pairs
}

// strip removes whole-word occurrences of both team names, then of their first words.
func (t teamNames) strip(p string) string {
	h, a := strings.ToLower(strings.TrimSpace(t.home)), strings.ToLower(strings.TrimSpace(t.away))
	p = " " + strings.ToLower(p) + " "
	for _, tok := range []string{h, a, firstWord(h), firstWord(a)} {
		if tok == "" {
			continue
		}
		for strings.Contains(p, " "+tok+" ") {
			p = strings.ReplaceAll(p, " "+tok+" ", " ")
		}
	}
	return strings.Join(strings.Fields(p), " ")
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

func resultOf(h, a int) market.Side {
	switch {
	case h > a:
		return market.SideHome
	case h < a:
		return market.SideAway
	default:
		return market.SideDraw
	}
}

func margin(side market.Side, h, a int) float64 {
	if side == market.SideAway {
		return float64(a - h)
	}
	return float64(h - a)
}

func winToNil(side market.Side, h, a int) bool {
	if side == market.SideAway {
		return a > h && h == 0
	}
	return h > a && a == 0
}

func bttsYes(p string) bool {
	w := words(p)
	return w["yes"] || w["gg"]
}

// words splits p into lower-case words; decimals such as "2.5" stay whole.
func words(p string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(p), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	}) {
		out[strings.Trim(f, ".")] = true
	}
	return out
}

// overUnder grades over/under a line; a whole-number line landing exactly is a push.
func overUnder(p string, goals, line float64) Verdict {
	if line <= 0 {
		return Unresolvable
	}
	w := words(p)
	over, under := w["over"], w["under"]
	if over == under {
		return Unresolvable
	}
	if goals == line {
		return Void
	}
	if over {
		return verdict(goals > line)
	}
	return verdict(goals < line)
}

func parseLine(s string) float64 {
	m := lineRe.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseRange(p string) (market.GoalRange, bool) {
	m := rangeRe.FindStringSubmatch(p)
	if m == nil {
		return market.GoalRange{}, false
	}
	lo, _ := strconv.Atoi(m[1])
	r := market.GoalRange{Min: lo, Max: lo}
	switch {
	case m[2] != "":
		r.Max = -1
	case m[3] != "":
		r.Max, _ = strconv.Atoi(m[3])
	}
	return r, r.Max < 0 || r.Max >= r.Min
}

func verdict(won bool) Verdict {
	if won {
		return Won
	}
	return Lost
}
