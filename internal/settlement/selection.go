package settlement

import (
	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/market"
)

// GradeSelection settles a structured selection without reading pick text.
func GradeSelection(sel market.Selection, score footballdata.Score) Verdict {
	def, ok := market.Lookup(sel.Market)
	if !ok {
		return Unresolvable
	}
	h, a := score.Home, score.Away
	if h < 0 || a < 0 {
		return Unresolvable
	}
	actual := resultOf(h, a)
	total := h + a
	line := sel.Threshold
	if line == 0 {
		line = def.Threshold
	}

	switch def.Family {
	case market.FamilyResult:
		if !isResult(sel.Side) {
			return Unresolvable
		}
		return verdict(sel.Side == actual)

	case market.FamilyDoubleChance:
		switch sel.Side {
		case market.SideHomeOrDraw:
			return verdict(actual != market.SideAway)
		case market.SideAwayOrDraw:
			return verdict(actual != market.SideHome)
		case market.SideHomeOrAway:
			return verdict(actual != market.SideDraw)
		}
		return Unresolvable

	case market.FamilyDrawNoBet:
		if sel.Side != market.SideHome && sel.Side != market.SideAway {
			return Unresolvable
		}
		if actual == market.SideDraw {
			return Void
		}
		return verdict(sel.Side == actual)

	case market.FamilyHandicap:
		if sel.Side != market.SideHome && sel.Side != market.SideAway {
			return Unresolvable
		}
		return verdict(margin(sel.Side, h, a) > line)

	case market.FamilyBTTS:
		return gradeBTTS(sel.Side, h, a)

	case market.FamilyTotal:
		return gradeOverUnder(sel.Side, float64(total), line)

	case market.FamilyTeamTotal:
		goals := h
		if def.ID == market.AwayOverUnder05 || def.ID == market.AwayOverUnder15 {
			goals = a
		}
		return gradeOverUnder(sel.Side, float64(goals), line)

	case market.FamilyCorrectScore:
		if sel.Score == nil {
			return Unresolvable
		}
		return verdict(sel.Score.Home == h && sel.Score.Away == a)

	case market.FamilyOddEven:
		switch sel.Side {
		case market.SideOdd:
			return verdict(total%2 == 1)
		case market.SideEven:
			return verdict(total%2 == 0)
		}
		return Unresolvable

	case market.FamilyMargin:
		if sel.Side == market.SideDraw {
			return verdict(actual == market.SideDraw)
		}
		if sel.Range == nil || (sel.Side != market.SideHome && sel.Side != market.SideAway) {
			return Unresolvable
		}
		return verdict(sel.Side == actual && sel.Range.Contains(int(margin(sel.Side, h, a))))

	case market.FamilyWinToNil:
		switch sel.Side {
		case market.SideHome, market.SideAway:
			return verdict(winToNil(sel.Side, h, a))
		case market.SideNo:
			return verdict(!winToNil(market.SideHome, h, a) && !winToNil(market.SideAway, h, a))
		}
		return Unresolvable

	case market.FamilyGoalsRange:
		if sel.Range == nil {
			return Unresolvable
		}
		return verdict(sel.Range.Contains(total))

	case market.FamilyCombo:
		if !isResult(sel.Side) || sel.Secondary == nil {
			return Unresolvable
		}
		leg := GradeSelection(*sel.Secondary, score)
		if leg == Unresolvable || leg == Void {
			return leg
		}
		return verdict(sel.Side == actual && leg == Won)
	}
	return Unresolvable
}

func isResult(s market.Side) bool {
	return s == market.SideHome || s == market.SideDraw || s == market.SideAway
}

func gradeBTTS(side market.Side, h, a int) Verdict {
	both := h > 0 && a > 0
	switch side {
	case market.SideYes:
		return verdict(both)
	case market.SideNo:
		return verdict(!both)
	}
	return Unresolvable
}

func gradeOverUnder(side market.Side, goals, line float64) Verdict {
	if line <= 0 {
		return Unresolvable
	}
	switch side {
	case market.SideOver:
		if goals == line {
			return Void
		}
		return verdict(goals > line)
	case market.SideUnder:
		if goals == line {
			return Void
		}
		return verdict(goals < line)
	}
	return Unresolvable
}
