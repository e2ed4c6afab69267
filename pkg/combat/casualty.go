package combat

import (
	"context"
	"fmt"
	"sort"
)

// CasualtyList is a choice of which units absorb a round of hits. Damaged
// holds one entry per hit point of non-lethal damage, so a unit may appear
// more than once; a unit that dies is listed in Killed only.
type CasualtyList struct {
	Killed  []*Unit `json:"-"`
	Damaged []*Unit `json:"-"`
}

// Cost returns the hit points the list absorbs.
func (c CasualtyList) Cost() int {
	cost := len(c.Damaged)
	for _, u := range c.Killed {
		cost += u.HPLeft()
	}
	return cost
}

// Empty reports whether the list absorbs nothing.
func (c CasualtyList) Empty() bool {
	return len(c.Killed) == 0 && len(c.Damaged) == 0
}

// CasualtyInput describes one casualty choice.
type CasualtyInput struct {
	BattleID   string
	Step       string
	Player     Player // owner of the side taking the hits
	Attacking  bool   // the side taking the hits is the attacker
	Hits       int
	Candidates []*Unit
	Roll       DiceRoll
	Rules      Rules
}

// SelectCasualties chooses exactly min(hits, total hit points) worth of
// casualties among the candidates. When the outcome is forced it is chosen
// without asking; otherwise the decision source is offered a default and
// its answer is checked before being accepted.
func SelectCasualties(ctx context.Context, ds DecisionSource, in CasualtyInput) (CasualtyList, error) {
	if in.Hits <= 0 || len(in.Candidates) == 0 {
		return CasualtyList{}, nil
	}
	sorted := sortForCasualties(in.Candidates, in.Attacking, in.Rules)

	total := 0
	for _, u := range in.Candidates {
		if u.HPLeft() <= 0 {
			return CasualtyList{}, defect(ErrInconsistentState, "candidate %s has %d hit points left", u.ID, u.HPLeft())
		}
		total += u.HPLeft()
	}
	if in.Hits >= total {
		return CasualtyList{Killed: sorted}, nil
	}
	if oneTypeOneHP(in.Candidates) {
		killed := make([]*Unit, in.Hits)
		copy(killed, sorted[:in.Hits])
		return CasualtyList{Killed: killed}, nil
	}

	def := DefaultCasualties(sorted, in.Hits)
	chosen, err := ds.SelectCasualties(ctx, CasualtyRequest{
		BattleID:   in.BattleID,
		Step:       in.Step,
		Player:     in.Player,
		Hits:       in.Hits,
		Candidates: sorted,
		Default:    def,
		Roll:       in.Roll,
	})
	if err != nil {
		return CasualtyList{}, fmt.Errorf("select casualties for %s: %w", in.Player, err)
	}
	if err := ValidateCasualties(chosen, in.Candidates, in.Hits); err != nil {
		return CasualtyList{}, err
	}
	return chosen, nil
}

// DefaultCasualties spends hits on spare hit points of multi-hit-point
// units first, then kills units in the given order.
func DefaultCasualties(sorted []*Unit, hits int) CasualtyList {
	var list CasualtyList
	extra := make(map[*Unit]int)
	for _, u := range sorted {
		for n := u.HPLeft() - 1; n > 0 && hits > 0; n-- {
			list.Damaged = append(list.Damaged, u)
			extra[u]++
			hits--
		}
	}
	killed := make(map[*Unit]bool)
	for _, u := range sorted {
		if hits == 0 {
			break
		}
		cost := u.HPLeft() - extra[u]
		if cost > hits {
			continue
		}
		list.Killed = append(list.Killed, u)
		killed[u] = true
		hits -= cost
	}
	list.Damaged = filterUnits(list.Damaged, func(u *Unit) bool { return !killed[u] })
	return list
}

// ValidateCasualties checks that a selection only uses candidates, lists
// each death once, never damages a unit to death without killing it, and
// costs exactly min(hits, total hit points).
func ValidateCasualties(list CasualtyList, candidates []*Unit, hits int) error {
	total := 0
	for _, u := range candidates {
		total += u.HPLeft()
	}
	killed := make(map[*Unit]bool)
	for _, u := range list.Killed {
		if !containsUnit(candidates, u) {
			return defect(ErrCasualtyCount, "unit %s is not a candidate", u.ID)
		}
		if killed[u] {
			return defect(ErrCasualtyCount, "unit %s killed twice", u.ID)
		}
		killed[u] = true
	}
	damage := make(map[*Unit]int)
	for _, u := range list.Damaged {
		if !containsUnit(candidates, u) {
			return defect(ErrCasualtyCount, "unit %s is not a candidate", u.ID)
		}
		if killed[u] {
			return defect(ErrCasualtyCount, "unit %s is both killed and damaged", u.ID)
		}
		damage[u]++
		if damage[u] >= u.HPLeft() {
			return defect(ErrCasualtyCount, "unit %s damaged to death but not killed", u.ID)
		}
	}
	if want := min(hits, total); list.Cost() != want {
		return defect(ErrCasualtyCount, "selection absorbs %d hits, need %d", list.Cost(), want)
	}
	return nil
}

func oneTypeOneHP(units []*Unit) bool {
	for _, u := range units {
		if u.Type != units[0].Type || u.HPLeft() != 1 {
			return false
		}
	}
	return true
}

// sortForCasualties orders units cheapest loss first: infrastructure last,
// amphibious attackers first when the rule asks for it, then weakest, then
// cheapest.
func sortForCasualties(units []*Unit, attacking bool, rules Rules) []*Unit {
	out := make([]*Unit, len(units))
	copy(out, units)
	rank := func(u *Unit) int {
		switch {
		case u.Type.Infrastructure:
			return 2
		case attacking && rules.KillAmphibiousFirst && u.WasAmphibious:
			return 0
		default:
			return 1
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		if sa, sb := a.Type.strength(attacking), b.Type.strength(attacking); sa != sb {
			return sa < sb
		}
		if a.Type.Cost != b.Type.Cost {
			return a.Type.Cost < b.Type.Cost
		}
		return a.ID < b.ID
	})
	return out
}
