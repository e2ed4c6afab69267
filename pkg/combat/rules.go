package combat

import "fmt"

// Rules holds the rule toggles that change how a battle is fought.
type Rules struct {
	DiceSides int // 0 means 6

	// LowLuck replaces most dice with arithmetic: hits are total power
	// divided by dice sides and only the remainder is rolled.
	LowLuck bool
	// LowLuckAAOnly applies low luck to anti-air fire only.
	LowLuckAAOnly bool
	// KeepBestRoll makes every multi-roll unit keep only its best die, so it
	// scores at most one hit. When false each die hits independently.
	KeepBestRoll bool

	KillAmphibiousFirst         bool
	SubsCanSubmerge             bool
	BombardCasualtiesReturnFire bool
	ConfirmBombard              bool
	MaxRounds                   int // 0 means unlimited
}

// Sides returns the dice side count, defaulting to a six-sided die.
func (r Rules) Sides() int {
	if r.DiceSides <= 0 {
		return 6
	}
	return r.DiceSides
}

// extraRollBonus is the low-luck power a keep-best unit gains per extra die.
func (r Rules) extraRollBonus() int {
	return max(1, r.Sides()/6)
}

// TerritoryEffect modifies the strength of listed unit types fighting in a territory.
type TerritoryEffect struct {
	Name    string
	Attack  map[string]int
	Defense map[string]int
}

// TechBonus holds a player's combat technology, keyed by unit type name.
type TechBonus struct {
	Attack     map[string]int
	Defense    map[string]int
	ExtraRolls map[string]int
}

// Ruleset is everything the engine needs to know about a game's units and rules.
type Ruleset struct {
	Rules     Rules
	UnitTypes map[string]*UnitType
	Supports  []SupportRule
	Effects   map[string][]TerritoryEffect // territory name -> effects
	Tech      map[Player]TechBonus
	Alliances map[Player]string // player -> alliance name
}

// Allied reports whether two players fight on the same side.
func (rs *Ruleset) Allied(a, b Player) bool {
	if a == b {
		return true
	}
	ta, ok := rs.Alliances[a]
	return ok && ta != "" && ta == rs.Alliances[b]
}

// UnitType looks up a unit type by name.
func (rs *Ruleset) UnitType(name string) (*UnitType, error) {
	t, ok := rs.UnitTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnitType, name)
	}
	return t, nil
}

// NewUnit turns a stored unit back into a combatant.
func (rs *Ruleset) NewUnit(s UnitState) (*Unit, error) {
	t, err := rs.UnitType(s.Type)
	if err != nil {
		return nil, err
	}
	if s.Damage < 0 || s.Damage >= t.MaxHP() {
		return nil, defect(ErrInconsistentState, "unit %s has damage %d of %d hit points", s.ID, s.Damage, t.MaxHP())
	}
	return &Unit{
		ID:            s.ID,
		Type:          t,
		Owner:         s.Owner,
		Damage:        s.Damage,
		Moved:         s.Moved,
		WasAmphibious: s.WasAmphibious,
		Submerged:     s.Submerged,
		Retreated:     s.Retreated,
	}, nil
}
