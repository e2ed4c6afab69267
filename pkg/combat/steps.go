package combat

import "fmt"

// BattleKind selects which family of steps a battle is fought with.
type BattleKind int

const (
	NormalBattle BattleKind = iota
	BombingRaid
)

func (k BattleKind) String() string {
	if k == BombingRaid {
		return "bombing_raid"
	}
	return "normal"
}

// StepKind identifies what a step does.
type StepKind int

const (
	StepFirstStrikeFire StepKind = iota
	StepAAFire
	StepBombard
	StepFire
	StepSelectCasualties
	StepRemoveSneakCasualties
	StepRemoveCasualties
	StepSubmerge
	StepWithdraw
	StepBombingRaid
)

var stepKindNames = [...]string{
	"first_strike_fire",
	"aa_fire",
	"bombard",
	"fire",
	"select_casualties",
	"remove_sneak_casualties",
	"remove_casualties",
	"submerge",
	"withdraw",
	"bombing_raid",
}

func (k StepKind) String() string {
	if int(k) < len(stepKindNames) {
		return stepKindNames[k]
	}
	return fmt.Sprintf("step(%d)", int(k))
}

func (k StepKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StepKind) UnmarshalText(b []byte) error {
	for i, n := range stepKindNames {
		if n == string(b) {
			*k = StepKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step kind %q", b)
}

// Removal says when casualties chosen in a selection step leave the battle.
type Removal int

const (
	RemoveAtEnd       Removal = iota // at "Remove casualties"; the units still fire this round
	RemoveWithSneak                  // at "Remove sneak attack casualties"
	RemoveImmediately                // as soon as they are chosen
)

// Step is one entry of a round's plan.
type Step struct {
	Kind     StepKind `json:"kind"`
	Name     string   `json:"name"`
	Attacker bool     `json:"attacker"` // the acting side is the attacker
	AAType   string   `json:"aa_type,omitempty"`
	Removal  Removal  `json:"removal,omitempty"`
}

// Step display names.
const (
	RemoveSneakCasualtiesName = "Remove sneak attack casualties"
	RemoveCasualtiesName      = "Remove casualties"
	NavalBombardmentName      = "Naval bombardment"
	SelectBombardmentName     = "Select naval bombardment casualties"
)

// PlanInput is the state a round's plan is derived from.
type PlanInput struct {
	Kind               BattleKind
	Round              int
	Site               Territory
	Attacker           *Side
	Defender           *Side
	Bombarding         []*Unit
	Amphibious         bool
	AARoundsLeft       map[string]int // unit ID -> rounds left; missing means untouched
	Rules              Rules
	AttackerCanRetreat bool
}

// PlanSteps derives the ordered steps of one round. It has no side effects,
// so the same input always produces the same plan.
func PlanSteps(in PlanInput) []Step {
	att := in.Attacker.Alive()
	def := in.Defender.Alive()
	if in.Kind == BombingRaid {
		return planRaid(in, att, def)
	}

	var steps []Step
	a, d := string(in.Attacker.Player), string(in.Defender.Player)

	// First strike, attacker then defender. Casualties are removed before
	// anyone else fires unless the side being hit can counter the sneak attack.
	sneak := false
	fireFirst := func(attacking bool, firing, enemies, friends []*Unit, firer, hit string) {
		firing = filterUnits(firing, func(u *Unit) bool { return u.Type.strength(attacking) > 0 })
		if len(targetsFor(firing, enemies, friends)) == 0 {
			return
		}
		removal := RemoveWithSneak
		if hasCounter(enemies) {
			removal = RemoveAtEnd
		} else {
			sneak = true
		}
		steps = append(steps,
			Step{Kind: StepFirstStrikeFire, Name: firer + " first strike fire", Attacker: attacking},
			Step{Kind: StepSelectCasualties, Name: hit + " select first strike casualties", Attacker: attacking, Removal: removal},
		)
	}
	fireFirst(true, firstStrikers(att), def, att, a, d)
	fireFirst(false, firstStrikers(def), att, def, d, a)
	if sneak {
		steps = append(steps, Step{Kind: StepRemoveSneakCasualties, Name: RemoveSneakCasualtiesName})
	}

	// Anti-air, offensive then defensive.
	steps = append(steps, planAA(true, att, def, in.AARoundsLeft, a, d)...)
	steps = append(steps, planAA(false, def, att, in.AARoundsLeft, d, a)...)

	if in.Round == 1 && in.Amphibious && !in.Site.Water && len(def) > 0 {
		bombard := filterUnits(in.Bombarding, func(u *Unit) bool { return u.Type.Bombard > 0 })
		if len(bombard) > 0 {
			removal := RemoveImmediately
			if in.Rules.BombardCasualtiesReturnFire {
				removal = RemoveAtEnd
			}
			steps = append(steps,
				Step{Kind: StepBombard, Name: NavalBombardmentName, Attacker: true},
				Step{Kind: StepSelectCasualties, Name: SelectBombardmentName, Attacker: true, Removal: removal},
			)
		}
	}

	// General fire, attacker then defender.
	if firing := generalFirers(att, true); len(targetsFor(firing, def, att)) > 0 {
		steps = append(steps,
			Step{Kind: StepFire, Name: a + " fire", Attacker: true},
			Step{Kind: StepSelectCasualties, Name: d + " select casualties", Attacker: true},
		)
	}
	if firing := generalFirers(def, false); len(targetsFor(firing, att, def)) > 0 {
		steps = append(steps,
			Step{Kind: StepFire, Name: d + " fire", Attacker: false},
			Step{Kind: StepSelectCasualties, Name: a + " select casualties", Attacker: false},
		)
	}

	steps = append(steps, Step{Kind: StepRemoveCasualties, Name: RemoveCasualtiesName})

	if in.Rules.SubsCanSubmerge {
		if anyUnit(att, func(u *Unit) bool { return u.Type.CanEvade }) && !hasCounter(def) {
			steps = append(steps, Step{Kind: StepSubmerge, Name: a + " subs submerge", Attacker: true})
		}
		if anyUnit(def, func(u *Unit) bool { return u.Type.CanEvade }) && !hasCounter(att) {
			steps = append(steps, Step{Kind: StepSubmerge, Name: d + " subs submerge", Attacker: false})
		}
	}

	if in.AttackerCanRetreat && len(att) > 0 && len(def) > 0 {
		steps = append(steps, Step{Kind: StepWithdraw, Name: a + " withdraw", Attacker: true})
	}
	return steps
}

func planAA(attacking bool, firing, enemies []*Unit, roundsLeft map[string]int, firer, hit string) []Step {
	var steps []Step
	for _, aaType := range aaTypes(firing) {
		group := aaGroup(firing, aaType, attacking, roundsLeft)
		if len(AATargets(group, enemies)) == 0 {
			continue
		}
		steps = append(steps,
			Step{Kind: StepAAFire, Name: firer + " " + aaType + " fire", Attacker: attacking, AAType: aaType},
			Step{Kind: StepSelectCasualties, Name: hit + " select " + aaType + " casualties", Attacker: attacking, AAType: aaType, Removal: RemoveImmediately},
		)
	}
	return steps
}

func planRaid(in PlanInput, att, def []*Unit) []Step {
	a, d := string(in.Attacker.Player), string(in.Defender.Player)
	steps := planAA(false, def, att, in.AARoundsLeft, d, a)
	if len(att) > 0 {
		steps = append(steps, Step{Kind: StepBombingRaid, Name: a + " bombing raid", Attacker: true})
	}
	return steps
}

// aaTypes lists the AA types present among units in first-seen order.
func aaTypes(units []*Unit) []string {
	var types []string
	seen := make(map[string]bool)
	for _, u := range units {
		if u.Type.AA == nil || seen[u.Type.AA.Type] {
			continue
		}
		seen[u.Type.AA.Type] = true
		types = append(types, u.Type.AA.Type)
	}
	return types
}

// aaGroup returns the units of one AA type that may still fire this round.
func aaGroup(units []*Unit, aaType string, attacking bool, roundsLeft map[string]int) []*Unit {
	return filterUnits(units, func(u *Unit) bool {
		return u.Type.AA != nil && u.Type.AA.Type == aaType &&
			aaStrength(u, attacking) > 0 && aaRoundsLeft(u, roundsLeft) != 0
	})
}

// aaRoundsLeft returns -1 for units that may fire every round.
func aaRoundsLeft(u *Unit, roundsLeft map[string]int) int {
	if u.Type.AA.MaxRounds < 0 {
		return -1
	}
	if n, ok := roundsLeft[u.ID]; ok {
		return n
	}
	return u.Type.AA.MaxRounds
}
