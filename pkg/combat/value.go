package combat

import "sort"

// ValueStep is the kind of fire a combat value is computed for.
type ValueStep int

const (
	MainFire ValueStep = iota
	AAFire
	BombardFire
)

func (s ValueStep) String() string {
	switch s {
	case AAFire:
		return "aa"
	case BombardFire:
		return "bombard"
	default:
		return "main"
	}
}

// CombatValue is the resolved firing power of one unit for one step.
type CombatValue struct {
	Unit       *Unit
	Strength   int // a die hits when it rolls below this
	Rolls      int
	DiceSides  int
	ChooseBest bool // several dice are rolled and only the lowest counts
}

// ValueContext carries everything that modifies a unit's firing power.
type ValueContext struct {
	Attacking bool
	Step      ValueStep
	Friendly  []*Unit // support providers on the firing side
	Enemy     []*Unit // enemy support providers, and AA targets
	Supports  []SupportRule
	Effects   []TerritoryEffect
	Tech      map[Player]TechBonus
	Rules     Rules
}

// CalculateValues returns one combat value per unit, sorted by strength
// ascending. An empty group yields an empty slice.
func CalculateValues(units []*Unit, vc ValueContext) []CombatValue {
	if len(units) == 0 {
		return nil
	}
	if vc.Step == AAFire {
		return aaValues(units, vc)
	}

	sides := vc.Rules.Sides()
	strengthBonus := make(map[*Unit]int)
	rollBonus := make(map[*Unit]int)
	for _, g := range AssignSupport(units, vc.Friendly, vc.Enemy, vc.Supports, vc.Attacking) {
		if g.Kind == BonusRolls {
			rollBonus[g.Unit] += g.Bonus
		} else {
			strengthBonus[g.Unit] += g.Bonus
		}
	}

	values := make([]CombatValue, 0, len(units))
	for _, u := range units {
		t := u.Type
		strength := t.strength(vc.Attacking)
		rolls := t.rolls(vc.Attacking)
		if vc.Step == BombardFire {
			strength = t.Bombard
			rolls = 1
		}
		if vc.Attacking && u.WasAmphibious {
			strength += t.Marine
		}
		for _, e := range vc.Effects {
			if vc.Attacking {
				strength += e.Attack[t.Name]
			} else {
				strength += e.Defense[t.Name]
			}
		}
		if tech, ok := vc.Tech[u.Owner]; ok {
			if vc.Attacking {
				strength += tech.Attack[t.Name]
			} else {
				strength += tech.Defense[t.Name]
			}
			rolls += tech.ExtraRolls[t.Name]
		}
		strength += strengthBonus[u]
		rolls += rollBonus[u]

		values = append(values, newCombatValue(u, strength, rolls, sides, vc.Rules))
	}
	sortValues(values)
	return values
}

func newCombatValue(u *Unit, strength, rolls, sides int, rules Rules) CombatValue {
	strength = min(max(strength, 0), sides)
	rolls = max(rolls, 0)
	if strength == 0 || rolls == 0 {
		strength, rolls = 0, 0
	}
	return CombatValue{
		Unit:       u,
		Strength:   strength,
		Rolls:      rolls,
		DiceSides:  sides,
		ChooseBest: rolls > 1 && (rules.KeepBestRoll || u.Type.ChooseBestRoll),
	}
}

// aaValues sizes anti-air fire. Each firing unit's dice are capped by its
// own MaxAttacks and, across all non-overstacking units, by the number of
// valid targets among the enemy.
func aaValues(units []*Unit, vc ValueContext) []CombatValue {
	sides := vc.Rules.Sides()
	var firing []*Unit
	for _, u := range units {
		if aaStrength(u, vc.Attacking) > 0 {
			firing = append(firing, u)
		}
	}
	if len(firing) == 0 {
		return nil
	}
	// Strongest guns take their dice first.
	sort.SliceStable(firing, func(i, j int) bool {
		return aaStrength(firing[i], vc.Attacking) > aaStrength(firing[j], vc.Attacking)
	})

	values := make([]CombatValue, 0, len(firing))
	remaining := len(AATargets(firing, vc.Enemy))
	for _, u := range firing {
		targets := len(AATargets([]*Unit{u}, vc.Enemy))
		rolls := u.Type.AA.MaxAttacks
		if rolls < 0 {
			rolls = targets
		}
		if u.Type.AA.MayOverstack {
			rolls = min(rolls, targets)
		} else {
			rolls = min(rolls, remaining)
			remaining -= rolls
		}
		values = append(values, newCombatValue(u, aaStrength(u, vc.Attacking), rolls, sides, vc.Rules))
	}
	sortValues(values)
	return values
}

func aaStrength(u *Unit, attacking bool) int {
	if u.Type.AA == nil {
		return 0
	}
	if attacking {
		return u.Type.AA.Attack
	}
	return u.Type.AA.Defense
}

// AATargets returns the enemy units at least one of the firing units may shoot at.
func AATargets(firing, enemy []*Unit) []*Unit {
	return filterUnits(enemy, func(e *Unit) bool {
		return anyUnit(firing, func(f *Unit) bool {
			return f.Type.AA != nil && f.Type.AA.targets(e.Type.Name)
		})
	})
}

func sortValues(values []CombatValue) {
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].Strength < values[j].Strength
	})
}

// TotalPower returns the low-luck power and raw roll count of a set of values.
// Multi-roll units contribute at most one die's worth of sides; keep-best
// units gain a fixed bonus per extra die instead of multiplying.
func TotalPower(values []CombatValue, rules Rules) (power, rolls int) {
	bonus := rules.extraRollBonus()
	for _, v := range values {
		if v.Strength == 0 || v.Rolls == 0 {
			continue
		}
		rolls += v.Rolls
		switch {
		case v.Rolls == 1:
			power += v.Strength
		case v.ChooseBest:
			power += min(v.Strength+bonus*(v.Rolls-1), v.DiceSides)
		default:
			power += min(v.Strength*v.Rolls, v.DiceSides)
		}
	}
	return power, rolls
}
