package combat

import (
	"context"
	"fmt"
	"slices"
)

// State is where a battle is in its lifecycle.
type State int

const (
	Pending State = iota
	RoundInProgress
	RoundResolved
	Resolved
)

func (s State) String() string {
	switch s {
	case RoundInProgress:
		return "round_in_progress"
	case RoundResolved:
		return "round_resolved"
	case Resolved:
		return "resolved"
	default:
		return "pending"
	}
}

// Result is how a battle ended.
type Result string

const (
	AttackerWon       Result = "attacker_won"
	DefenderWon       Result = "defender_won"
	MutualDestruction Result = "mutual_destruction"
	AttackerRetreated Result = "attacker_retreated"
	Stalemate         Result = "stalemate"
	RaidComplete      Result = "raid_complete"
)

// Outcome is the record a resolved battle leaves behind.
type Outcome struct {
	BattleID          string   `json:"battle_id"`
	Site              string   `json:"site"`
	Result            Result   `json:"result"`
	Winner            Player   `json:"winner,omitempty"`
	AttackerSurvivors []string `json:"attacker_survivors"`
	DefenderSurvivors []string `json:"defender_survivors"`
	NewOwner          Player   `json:"new_owner,omitempty"`
	RetreatedTo       string   `json:"retreated_to,omitempty"`
	BombingDamage     int      `json:"bombing_damage,omitempty"`
	Rounds            int      `json:"rounds"`
}

// Config is everything needed to open a battle.
type Config struct {
	ID            string
	Kind          BattleKind
	Site          Territory
	Attacker      Player
	Defender      Player
	Attacking     []*Unit
	Defending     []*Unit
	Bombarding    []*Unit
	AttackingFrom []string
	Amphibious    bool
	Ruleset       *Ruleset
}

// Env supplies a battle's collaborators for one round.
type Env struct {
	Random    RandomSource
	Decisions DecisionSource
	Terrain   Terrain
	Contested map[string]bool // sites of other battles still pending
}

// CasualtyRecord notes who a selection step removed or damaged.
type CasualtyRecord struct {
	Step    string   `json:"step"`
	Player  Player   `json:"player"`
	Killed  []string `json:"killed,omitempty"`
	Damaged []string `json:"damaged,omitempty"`
}

// RoundResult is what one round produced. Changes must be committed by the
// caller; the battle itself never touches shared state.
type RoundResult struct {
	BattleID   string           `json:"battle_id"`
	Round      int              `json:"round"`
	Steps      []Step           `json:"steps"`
	Rolls      []DiceRoll       `json:"rolls"`
	Casualties []CasualtyRecord `json:"casualties,omitempty"`
	Changes    ChangeSet        `json:"changes"`
	Outcome    *Outcome         `json:"outcome,omitempty"`
}

// Battle is one fight at one location. It is not safe for concurrent use;
// callers serialise rounds.
type Battle struct {
	ID            string
	Kind          BattleKind
	Site          Territory
	Attacker      *Side
	Defender      *Side
	Bombarding    []*Unit
	AttackingFrom []string
	Amphibious    bool
	Round         int

	rs        *Ruleset
	state     State
	steps     []Step
	aaRounds  map[string]int
	retreated map[string]string
	outcome   *Outcome

	// per round
	sneakDead    []*Unit
	waitingToDie []*Unit
	killed       []*Unit
	fired        *firedRoll
	changes      ChangeSet
}

type firedRoll struct {
	roll     DiceRoll
	targets  []*Unit
	suicides []*Unit
}

// NewBattle opens a battle. A unit listed on both sides, or twice on one,
// is a protocol defect.
func NewBattle(cfg Config) (*Battle, error) {
	if cfg.Ruleset == nil {
		return nil, fmt.Errorf("battle %s: ruleset is required", cfg.ID)
	}
	att, err := NewSide(cfg.Attacker, true, cfg.Attacking)
	if err != nil {
		return nil, err
	}
	def, err := NewSide(cfg.Defender, false, cfg.Defending)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	for _, u := range cfg.Attacking {
		ids[u.ID] = true
	}
	for _, u := range cfg.Bombarding {
		ids[u.ID] = true
	}
	for _, u := range cfg.Defending {
		if ids[u.ID] {
			return nil, defect(ErrDuplicateUnit, "unit %s fights for both %s and %s", u.ID, cfg.Attacker, cfg.Defender)
		}
	}
	for _, u := range append(slices.Clone(cfg.Attacking), cfg.Defending...) {
		if u.IsDestroyed() {
			return nil, defect(ErrInconsistentState, "unit %s enters battle with %d hit points", u.ID, u.HPLeft())
		}
	}

	b := &Battle{
		ID:            cfg.ID,
		Kind:          cfg.Kind,
		Site:          cfg.Site,
		Attacker:      att,
		Defender:      def,
		Bombarding:    slices.Clone(cfg.Bombarding),
		AttackingFrom: slices.Clone(cfg.AttackingFrom),
		Amphibious:    cfg.Amphibious,
		rs:            cfg.Ruleset,
		aaRounds:      make(map[string]int),
		retreated:     make(map[string]string),
	}
	b.steps = PlanSteps(b.planInput(len(b.AttackingFrom) > 0 && !b.Amphibious))
	return b, nil
}

// PlanNext plans the coming round against the current board, the same way
// the round itself will, and returns its steps.
func (b *Battle) PlanNext(ctx context.Context, env Env) ([]Step, error) {
	if b.state == Resolved {
		return nil, ErrBattleResolved
	}
	opts, err := b.retreatOptions(ctx, env, b.Attacker.Alive(), false)
	if err != nil {
		return nil, err
	}
	b.steps = PlanSteps(b.planInput(len(opts) > 0))
	return b.Steps(), nil
}

// State returns the battle's lifecycle state.
func (b *Battle) State() State { return b.state }

// Outcome returns the final record, or nil until the battle is resolved.
func (b *Battle) Outcome() *Outcome { return b.outcome }

// Steps returns the step list planned for the coming round, or the last
// round's once the battle is resolved.
func (b *Battle) Steps() []Step {
	return slices.Clone(b.steps)
}

// Rules returns the rule toggles the battle is fought under.
func (b *Battle) Rules() Rules { return b.rs.Rules }

func (b *Battle) planInput(canRetreat bool) PlanInput {
	return PlanInput{
		Kind:               b.Kind,
		Round:              b.Round + 1,
		Site:               b.Site,
		Attacker:           b.Attacker,
		Defender:           b.Defender,
		Bombarding:         b.Bombarding,
		Amphibious:         b.Amphibious,
		AARoundsLeft:       b.aaRounds,
		Rules:              b.rs.Rules,
		AttackerCanRetreat: canRetreat,
	}
}

// Fight plays rounds until the battle resolves.
func (b *Battle) Fight(ctx context.Context, env Env) ([]*RoundResult, error) {
	var rounds []*RoundResult
	for b.state != Resolved {
		r, err := b.FightRound(ctx, env)
		if err != nil {
			return rounds, err
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}

// FightRound plays one round. On error the battle is returned to the state
// it was in before the round started.
func (b *Battle) FightRound(ctx context.Context, env Env) (*RoundResult, error) {
	if b.state == Resolved {
		return nil, ErrBattleResolved
	}
	if env.Random == nil || env.Decisions == nil {
		return nil, fmt.Errorf("battle %s: random and decision sources are required", b.ID)
	}
	snap := b.snapshot()
	r, err := b.fightRound(ctx, env)
	if err != nil {
		b.restore(snap)
		return nil, fmt.Errorf("battle %s round %d: %w", b.ID, snap.round+1, err)
	}
	return r, nil
}

func (b *Battle) fightRound(ctx context.Context, env Env) (*RoundResult, error) {
	opts, err := b.retreatOptions(ctx, env, b.Attacker.Alive(), false)
	if err != nil {
		return nil, err
	}
	b.steps = PlanSteps(b.planInput(len(opts) > 0))
	b.Round++
	b.state = RoundInProgress
	b.sneakDead, b.waitingToDie, b.killed, b.fired, b.changes = nil, nil, nil, nil, nil

	before := make(map[*Unit]int)
	for _, u := range b.allUnits() {
		before[u] = u.Damage
	}

	r := &RoundResult{BattleID: b.ID, Round: b.Round, Steps: slices.Clone(b.steps)}
	for _, st := range b.steps {
		if b.state == Resolved {
			break
		}
		if err := b.execute(ctx, env, st, opts, r); err != nil {
			return nil, fmt.Errorf("%s: %w", st.Name, err)
		}
	}
	b.kill(b.sneakDead)
	b.kill(b.waitingToDie)

	b.changes = append(b.damageChanges(before), b.changes...)
	if len(b.killed) > 0 {
		b.changes = append(b.changes, Change{Kind: ChangeRemove, Territory: b.Site.Name, UnitIDs: unitIDs(b.killed)})
	}

	if b.state != Resolved {
		b.state = RoundResolved
		b.checkTermination()
	}
	if b.state != Resolved {
		if _, err := b.PlanNext(ctx, env); err != nil {
			return nil, fmt.Errorf("plan round %d: %w", b.Round+1, err)
		}
	}
	r.Changes = b.changes
	r.Outcome = b.outcome
	return r, nil
}

func (b *Battle) execute(ctx context.Context, env Env, st Step, retreatOpts []string, r *RoundResult) error {
	firing, target := b.sides(st.Attacker)
	switch st.Kind {
	case StepFirstStrikeFire, StepFire:
		units := generalFirers(firing.Alive(), firing.Attacker)
		if st.Kind == StepFirstStrikeFire {
			units = filterUnits(firstStrikers(firing.Alive()), func(u *Unit) bool {
				return u.Type.strength(firing.Attacker) > 0
			})
		}
		targets := targetsFor(units, b.targetable(target), firing.Alive())
		return b.fire(ctx, env, firing, target, units, targets, MainFire, b.rs.Rules.LowLuck, st.Name, r)

	case StepAAFire:
		units := aaGroup(firing.Alive(), st.AAType, firing.Attacker, b.aaRounds)
		targets := AATargets(units, b.targetable(target))
		if err := b.fire(ctx, env, firing, target, units, targets, AAFire, b.rs.Rules.LowLuck || b.rs.Rules.LowLuckAAOnly, st.Name, r); err != nil {
			return err
		}
		for _, u := range units {
			if left := aaRoundsLeft(u, b.aaRounds); left > 0 {
				b.aaRounds[u.ID] = left - 1
			}
		}
		return nil

	case StepBombard:
		var units []*Unit
		for _, u := range b.Bombarding {
			if u.Type.Bombard <= 0 {
				continue
			}
			if b.rs.Rules.ConfirmBombard {
				ok, err := env.Decisions.Confirm(ctx, ConfirmRequest{
					BattleID: b.ID,
					Player:   b.Attacker.Player,
					Prompt:   fmt.Sprintf("Bombard %s with %s %s?", b.Site.Name, u.Type.Name, u.ID),
				})
				if err != nil {
					return fmt.Errorf("confirm bombard: %w", err)
				}
				if !ok {
					continue
				}
			}
			units = append(units, u)
		}
		return b.fire(ctx, env, firing, target, units, b.targetable(target), BombardFire, b.rs.Rules.LowLuck, st.Name, r)

	case StepSelectCasualties:
		return b.selectCasualties(ctx, env, target, st, r)

	case StepRemoveSneakCasualties:
		b.kill(b.sneakDead)
		b.sneakDead = nil
		return nil

	case StepRemoveCasualties:
		b.kill(b.sneakDead)
		b.kill(b.waitingToDie)
		b.sneakDead, b.waitingToDie = nil, nil
		return nil

	case StepSubmerge:
		return b.submerge(ctx, env, firing)

	case StepWithdraw:
		return b.withdraw(ctx, env, retreatOpts)

	case StepBombingRaid:
		return b.raid(ctx, env, r)
	}
	return defect(ErrInconsistentState, "unknown step kind %s", st.Kind)
}

func (b *Battle) fire(ctx context.Context, env Env, firing, target *Side, units, targets []*Unit, step ValueStep, lowLuck bool, name string, r *RoundResult) error {
	if len(units) == 0 || len(targets) == 0 {
		b.fired = &firedRoll{roll: DiceRoll{Player: firing.Player, Annotation: name}}
		return nil
	}
	enemy := target.Alive()
	if step == AAFire {
		enemy = targets
	}
	values := CalculateValues(units, ValueContext{
		Attacking: firing.Attacker,
		Step:      step,
		Friendly:  firing.Alive(),
		Enemy:     enemy,
		Supports:  b.rs.Supports,
		Effects:   b.rs.Effects[b.Site.Name],
		Tech:      b.rs.Tech,
		Rules:     b.rs.Rules,
	})
	roll, err := RollDice(ctx, env.Random, RollRequest{
		Player:     firing.Player,
		Annotation: fmt.Sprintf("%s: %s round %d", b.ID, name, b.Round),
		Values:     values,
		Rules:      b.rs.Rules,
		LowLuck:    lowLuck,
	})
	if err != nil {
		return err
	}
	r.Rolls = append(r.Rolls, roll)
	b.fired = &firedRoll{
		roll:     roll,
		targets:  targets,
		suicides: filterUnits(units, func(u *Unit) bool { return u.Type.Suicide }),
	}
	return nil
}

func (b *Battle) selectCasualties(ctx context.Context, env Env, target *Side, st Step, r *RoundResult) error {
	fired := b.fired
	b.fired = nil
	if fired == nil {
		return defect(ErrInconsistentState, "casualty selection without a preceding roll")
	}
	defer b.kill(fired.suicides)
	if fired.roll.Hits == 0 {
		return nil
	}

	list, err := SelectCasualties(ctx, env.Decisions, CasualtyInput{
		BattleID:   b.ID,
		Step:       st.Name,
		Player:     target.Player,
		Attacking:  target.Attacker,
		Hits:       fired.roll.Hits,
		Candidates: fired.targets,
		Roll:       fired.roll,
		Rules:      b.rs.Rules,
	})
	if err != nil {
		return err
	}

	for _, u := range list.Damaged {
		u.Damage++
		if u.IsDestroyed() {
			return defect(ErrInconsistentState, "unit %s destroyed by damage", u.ID)
		}
	}
	switch st.Removal {
	case RemoveImmediately:
		b.kill(list.Killed)
	case RemoveWithSneak:
		b.sneakDead = append(b.sneakDead, list.Killed...)
	default:
		b.waitingToDie = append(b.waitingToDie, list.Killed...)
	}

	rec := CasualtyRecord{Step: st.Name, Player: target.Player, Killed: unitIDs(list.Killed)}
	for _, u := range list.Damaged {
		rec.Damaged = append(rec.Damaged, u.ID)
	}
	r.Casualties = append(r.Casualties, rec)
	return nil
}

func (b *Battle) submerge(ctx context.Context, env Env, side *Side) error {
	evaders := filterUnits(side.Alive(), func(u *Unit) bool {
		return u.Type.CanEvade && !containsUnit(b.waitingToDie, u)
	})
	if len(evaders) == 0 {
		return nil
	}
	_, opposing := b.sides(side.Attacker)
	if len(opposing.Alive()) == 0 {
		return nil
	}
	dest, ok, err := env.Decisions.ConfirmRetreat(ctx, RetreatRequest{
		BattleID: b.ID,
		Player:   side.Player,
		Site:     b.Site.Name,
		Submerge: true,
		Units:    evaders,
		Options:  []string{b.Site.Name},
	})
	if err != nil {
		return fmt.Errorf("confirm submerge: %w", err)
	}
	if !ok {
		return nil
	}
	if dest != b.Site.Name {
		return defect(ErrInconsistentState, "submerge to %s instead of %s", dest, b.Site.Name)
	}
	for _, u := range evaders {
		u.Submerged = true
	}
	b.changes = append(b.changes, Change{Kind: ChangeSubmerge, Territory: b.Site.Name, UnitIDs: unitIDs(evaders)})
	return nil
}

func (b *Battle) withdraw(ctx context.Context, env Env, options []string) error {
	units := b.Attacker.Alive()
	if len(options) == 0 || len(units) == 0 || len(b.Defender.Alive()) == 0 {
		return nil
	}
	dest, ok, err := env.Decisions.ConfirmRetreat(ctx, RetreatRequest{
		BattleID: b.ID,
		Player:   b.Attacker.Player,
		Site:     b.Site.Name,
		Units:    units,
		Options:  slices.Clone(options),
	})
	if err != nil {
		return fmt.Errorf("confirm retreat: %w", err)
	}
	if !ok {
		return nil
	}
	if !slices.Contains(options, dest) {
		return defect(ErrInconsistentState, "retreat to %s is not one of %v", dest, options)
	}
	// Casualties already chosen this round still die.
	b.kill(b.sneakDead)
	b.kill(b.waitingToDie)
	b.sneakDead, b.waitingToDie = nil, nil
	b.changes = append(b.changes, b.Retreat(b.Attacker.Alive(), dest)...)
	b.finish(AttackerRetreated, b.Defender.Player, dest)
	return nil
}

// Retreat moves units out of the battle to dest. Units already retreated
// to dest are skipped, so repeating a request yields no further changes.
func (b *Battle) Retreat(units []*Unit, dest string) ChangeSet {
	var moved []*Unit
	for _, u := range units {
		if b.retreated[u.ID] == dest {
			continue
		}
		b.retreated[u.ID] = dest
		u.Retreated = true
		moved = append(moved, u)
	}
	if len(moved) == 0 {
		return nil
	}
	return ChangeSet{{Kind: ChangeRetreat, Territory: b.Site.Name, To: dest, UnitIDs: unitIDs(moved)}}
}

func (b *Battle) raid(ctx context.Context, env Env, r *RoundResult) error {
	bombers := b.Attacker.Alive()
	lowLuck := b.rs.Rules.LowLuck
	roll, damage, err := RollBombingDamage(ctx, env.Random, b.Attacker.Player, len(bombers), b.rs.Rules, lowLuck,
		fmt.Sprintf("%s: bombing raid on %s", b.ID, b.Site.Name))
	if err != nil {
		return err
	}
	r.Rolls = append(r.Rolls, roll)
	b.Site.BombingDamage += damage
	b.changes = append(b.changes, Change{Kind: ChangeBombing, Territory: b.Site.Name, Damage: b.Site.BombingDamage})
	b.finish(RaidComplete, b.Attacker.Player, "")
	b.outcome.BombingDamage = damage
	return nil
}

// retreatOptions asks the retreat resolver where units could go right now.
func (b *Battle) retreatOptions(ctx context.Context, env Env, units []*Unit, submerge bool) ([]string, error) {
	if b.Kind != NormalBattle || env.Terrain == nil {
		return nil, nil
	}
	return RetreatOptions(ctx, env.Terrain, b.rs, RetreatInput{
		Player:        b.Attacker.Player,
		Site:          b.Site,
		Units:         units,
		AttackingFrom: b.AttackingFrom,
		Contested:     env.Contested,
		Amphibious:    b.Amphibious,
		Submerge:      submerge,
	})
}

// checkTermination ends the battle once a side can no longer fight, or
// when neither side is able to hurt the other.
func (b *Battle) checkTermination() {
	att := combatCapable(b.Attacker.Alive())
	def := combatCapable(b.Defender.Alive())
	switch {
	case b.Kind == BombingRaid:
		b.finish(RaidComplete, b.Attacker.Player, "")
	case len(att) == 0 && len(def) == 0:
		b.finish(MutualDestruction, "", "")
	case len(att) == 0:
		b.finish(DefenderWon, b.Defender.Player, "")
	case len(def) == 0:
		b.finish(AttackerWon, b.Attacker.Player, "")
	case !b.canHurt(b.Attacker, b.Defender) && !b.canHurt(b.Defender, b.Attacker):
		b.finish(Stalemate, "", "")
	case b.rs.Rules.MaxRounds > 0 && b.Round >= b.rs.Rules.MaxRounds:
		b.finish(Stalemate, "", "")
	}
}

func (b *Battle) canHurt(firing, target *Side) bool {
	alive := firing.Alive()
	if len(targetsFor(generalFirers(alive, firing.Attacker), target.Alive(), alive)) > 0 {
		return true
	}
	fs := filterUnits(firstStrikers(alive), func(u *Unit) bool { return u.Type.strength(firing.Attacker) > 0 })
	return len(targetsFor(fs, target.Alive(), alive)) > 0
}

func (b *Battle) finish(result Result, winner Player, retreatedTo string) {
	b.state = Resolved
	o := &Outcome{
		BattleID:          b.ID,
		Site:              b.Site.Name,
		Result:            result,
		Winner:            winner,
		AttackerSurvivors: unitIDs(b.Attacker.Units),
		DefenderSurvivors: unitIDs(b.Defender.Units),
		RetreatedTo:       retreatedTo,
		Rounds:            b.Round,
	}
	if result == AttackerWon && !b.Site.Water {
		conquerors := filterUnits(b.Attacker.Alive(), func(u *Unit) bool {
			return u.Type.Domain == Land && !u.Type.Infrastructure
		})
		if len(conquerors) > 0 && b.Site.Owner != b.Attacker.Player {
			if infra := b.Defender.Alive(); len(infra) > 0 {
				for _, u := range infra {
					u.Owner = b.Attacker.Player
				}
				b.changes = append(b.changes, Change{Kind: ChangeCapture, Territory: b.Site.Name, UnitIDs: unitIDs(infra), Owner: b.Attacker.Player})
			}
			b.changes = append(b.changes, Change{Kind: ChangeOwnership, Territory: b.Site.Name, Owner: b.Attacker.Player, Previous: b.Site.Owner})
			o.NewOwner = b.Attacker.Player
			b.Site.Owner = b.Attacker.Player
		}
	}
	b.outcome = o
}

// kill removes units from whichever side holds them.
func (b *Battle) kill(units []*Unit) {
	if len(units) == 0 {
		return
	}
	for _, u := range units {
		if containsUnit(b.killed, u) {
			continue
		}
		b.killed = append(b.killed, u)
	}
	b.Attacker.remove(units)
	b.Defender.remove(units)
	b.Bombarding = filterUnits(b.Bombarding, func(u *Unit) bool { return !containsUnit(units, u) })
}

// targetable are a side's units that can still be chosen as casualties.
func (b *Battle) targetable(side *Side) []*Unit {
	return filterUnits(side.Alive(), func(u *Unit) bool {
		return !containsUnit(b.sneakDead, u) && !containsUnit(b.waitingToDie, u)
	})
}

// sides returns the acting side and its opponent.
func (b *Battle) sides(attacker bool) (*Side, *Side) {
	if attacker {
		return b.Attacker, b.Defender
	}
	return b.Defender, b.Attacker
}

func (b *Battle) allUnits() []*Unit {
	all := slices.Clone(b.Attacker.Units)
	all = append(all, b.Defender.Units...)
	return append(all, b.Bombarding...)
}

// damageChanges reports new damage totals for surviving units whose damage
// differs from before.
func (b *Battle) damageChanges(before map[*Unit]int) ChangeSet {
	var cs ChangeSet
	for _, u := range b.allUnits() {
		if prev, ok := before[u]; ok && prev != u.Damage {
			cs = append(cs, Change{Kind: ChangeDamage, Territory: b.Site.Name, UnitIDs: []string{u.ID}, Damage: u.Damage})
		}
	}
	return cs
}

type battleSnapshot struct {
	units      map[*Unit]Unit
	attacker   []*Unit
	defender   []*Unit
	bombarding []*Unit
	site       Territory
	round      int
	state      State
	steps      []Step
	aaRounds   map[string]int
	retreated  map[string]string
	outcome    *Outcome
}

func (b *Battle) snapshot() battleSnapshot {
	s := battleSnapshot{
		units:      make(map[*Unit]Unit),
		attacker:   slices.Clone(b.Attacker.Units),
		defender:   slices.Clone(b.Defender.Units),
		bombarding: slices.Clone(b.Bombarding),
		site:       b.Site,
		round:      b.Round,
		state:      b.state,
		steps:      slices.Clone(b.steps),
		aaRounds:   make(map[string]int, len(b.aaRounds)),
		retreated:  make(map[string]string, len(b.retreated)),
		outcome:    b.outcome,
	}
	for _, u := range b.allUnits() {
		s.units[u] = *u
	}
	for k, v := range b.aaRounds {
		s.aaRounds[k] = v
	}
	for k, v := range b.retreated {
		s.retreated[k] = v
	}
	return s
}

func (b *Battle) restore(s battleSnapshot) {
	for p, v := range s.units {
		*p = v
	}
	b.Attacker.Units = s.attacker
	b.Defender.Units = s.defender
	b.Bombarding = s.bombarding
	b.Site = s.site
	b.Round = s.round
	b.state = s.state
	b.steps = s.steps
	b.aaRounds = s.aaRounds
	b.retreated = s.retreated
	b.outcome = s.outcome
	b.sneakDead, b.waitingToDie, b.killed, b.fired, b.changes = nil, nil, nil, nil, nil
}
