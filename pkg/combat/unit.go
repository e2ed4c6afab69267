package combat

// Player identifies a nation taking part in a battle.
type Player string

// Domain is where a unit fights.
type Domain int

const (
	Land Domain = iota
	Sea
	Air
)

func (d Domain) String() string {
	switch d {
	case Sea:
		return "sea"
	case Air:
		return "air"
	default:
		return "land"
	}
}

// AAProfile describes a unit's anti-air capability.
type AAProfile struct {
	Type         string   // groups firing units into one AA step, e.g. "AA"
	Attack       int      // strength when the owner is attacking, 0 when it cannot fire on offense
	Defense      int      // strength when the owner is defending, 0 when it cannot fire on defense
	MaxAttacks   int      // dice per unit per round; -1 means one per valid target
	MaxRounds    int      // rounds per battle the unit may fire; -1 means unlimited
	Targets      []string // unit type names this unit may fire at
	MayOverstack bool     // surplus targets beyond MaxAttacks may still be fired at by this unit
}

// targets reports whether the profile may fire at the given unit type.
func (p *AAProfile) targets(name string) bool {
	for _, t := range p.Targets {
		if t == name {
			return true
		}
	}
	return false
}

// UnitType holds the static combat attributes shared by all units of a kind.
type UnitType struct {
	Name         string
	Domain       Domain
	Attack       int
	Defense      int
	AttackRolls  int // 0 is treated as 1
	DefenseRolls int // 0 is treated as 1
	HitPoints    int // 0 is treated as 1
	Cost         int

	FirstStrike         bool // submarine-like sneak attack
	CanEvade            bool // may submerge or withdraw independently
	CountersFirstStrike bool // destroyer-like; denies the enemy's sneak attack
	CannotTargetAir     bool
	Infrastructure      bool // captured rather than destroyed, dies last
	Suicide             bool // removed after it fires
	ChooseBestRoll      bool // rolls several dice and keeps the lowest

	Marine  int // attack bonus when landing amphibiously
	Bombard int // shore bombardment strength, 0 when it cannot bombard
	AA      *AAProfile
}

// MaxHP returns the number of hits needed to destroy a unit of this type.
func (t *UnitType) MaxHP() int {
	if t.HitPoints < 1 {
		return 1
	}
	return t.HitPoints
}

func (t *UnitType) rolls(attacking bool) int {
	r := t.DefenseRolls
	if attacking {
		r = t.AttackRolls
	}
	if r < 1 {
		return 1
	}
	return r
}

func (t *UnitType) strength(attacking bool) int {
	if attacking {
		return t.Attack
	}
	return t.Defense
}

// Unit is a single combatant taking part in a battle.
type Unit struct {
	ID            string
	Type          *UnitType
	Owner         Player
	Damage        int // hit points already lost
	Moved         bool
	WasAmphibious bool
	Submerged     bool
	Retreated     bool
}

// HPLeft returns the remaining hit points.
func (u *Unit) HPLeft() int {
	return u.Type.MaxHP() - u.Damage
}

// IsDestroyed reports whether accumulated damage has reached the unit's maximum.
func (u *Unit) IsDestroyed() bool {
	return u.HPLeft() <= 0
}

// Clone returns a copy of the unit sharing the same static type.
func (u *Unit) Clone() *Unit {
	cp := *u
	return &cp
}

// State returns the store-facing form of the unit located in territory.
func (u *Unit) State(territory string) UnitState {
	return UnitState{
		ID:            u.ID,
		Type:          u.Type.Name,
		Owner:         u.Owner,
		Territory:     territory,
		Damage:        u.Damage,
		Moved:         u.Moved,
		WasAmphibious: u.WasAmphibious,
		Submerged:     u.Submerged,
		Retreated:     u.Retreated,
	}
}

// UnitState is the persisted form of a unit. Types are referenced by name.
type UnitState struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Owner         Player `json:"owner"`
	Territory     string `json:"territory"`
	Damage        int    `json:"damage,omitempty"`
	Moved         bool   `json:"moved,omitempty"`
	WasAmphibious bool   `json:"was_amphibious,omitempty"`
	Submerged     bool   `json:"submerged,omitempty"`
	Retreated     bool   `json:"retreated,omitempty"`
}

// Territory is a location on the board as seen by the battle engine.
type Territory struct {
	Name          string   `json:"name"`
	Water         bool     `json:"water"`
	Owner         Player   `json:"owner,omitempty"`
	Neighbors     []string `json:"neighbors,omitempty"`
	BombingDamage int      `json:"bombing_damage,omitempty"`
}

func unitIDs(units []*Unit) []string {
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}

func containsUnit(units []*Unit, u *Unit) bool {
	for _, x := range units {
		if x == u {
			return true
		}
	}
	return false
}

func filterUnits(units []*Unit, keep func(*Unit) bool) []*Unit {
	var out []*Unit
	for _, u := range units {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

func anyUnit(units []*Unit, match func(*Unit) bool) bool {
	for _, u := range units {
		if match(u) {
			return true
		}
	}
	return false
}
