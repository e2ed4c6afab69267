package combat

// Side is one party to a battle: a player plus the units fighting for it,
// which may include units owned by allies.
type Side struct {
	Player   Player
	Attacker bool
	Units    []*Unit
}

// NewSide builds a side, rejecting duplicate units.
func NewSide(player Player, attacker bool, units []*Unit) (*Side, error) {
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if seen[u.ID] {
			return nil, defect(ErrDuplicateUnit, "unit %s listed twice for %s", u.ID, player)
		}
		seen[u.ID] = true
	}
	cp := make([]*Unit, len(units))
	copy(cp, units)
	return &Side{Player: player, Attacker: attacker, Units: cp}, nil
}

// Alive returns the units still taking part in the fight.
func (s *Side) Alive() []*Unit {
	return filterUnits(s.Units, func(u *Unit) bool {
		return !u.Submerged && !u.Retreated
	})
}

// IsAllied reports whether u fights for this side but is owned by another player.
func (s *Side) IsAllied(u *Unit) bool {
	return u.Owner != s.Player
}

// remove drops units from the side.
func (s *Side) remove(units []*Unit) {
	s.Units = filterUnits(s.Units, func(u *Unit) bool {
		return !containsUnit(units, u)
	})
}

func firstStrikers(units []*Unit) []*Unit {
	return filterUnits(units, func(u *Unit) bool { return u.Type.FirstStrike })
}

func hasCounter(units []*Unit) bool {
	return anyUnit(units, func(u *Unit) bool { return u.Type.CountersFirstStrike })
}

func combatCapable(units []*Unit) []*Unit {
	return filterUnits(units, func(u *Unit) bool { return !u.Type.Infrastructure })
}

// generalFirers are the non-first-strike units able to fire in main combat.
func generalFirers(units []*Unit, attacking bool) []*Unit {
	return filterUnits(units, func(u *Unit) bool {
		return !u.Type.FirstStrike && u.Type.strength(attacking) > 0
	})
}

// targetsFor filters enemies down to what the firing group may hit. Units
// that cannot target air ignore aircraft, and an all-air group cannot find
// first-strike units unless a friendly counter unit is present.
func targetsFor(firing, enemies, friends []*Unit) []*Unit {
	if len(firing) == 0 {
		return nil
	}
	noAir := true
	allAir := true
	for _, f := range firing {
		noAir = noAir && f.Type.CannotTargetAir
		allAir = allAir && f.Type.Domain == Air
	}
	spotter := hasCounter(friends)
	return filterUnits(enemies, func(e *Unit) bool {
		if noAir && e.Type.Domain == Air {
			return false
		}
		if allAir && !spotter && e.Type.FirstStrike {
			return false
		}
		return true
	})
}
