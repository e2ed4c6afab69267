// Command battlesim fights battles offline against the standard unit
// catalog, using in-memory state and seeded dice.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/internal/repository/memory"
	"github.com/freeeve/beachhead/internal/service"
	"github.com/freeeve/beachhead/pkg/combat"
)

const (
	siteName    = "battlefield"
	stagingName = "staging"
)

type options struct {
	attack   string
	defend   string
	seed     uint64
	runs     int
	lowLuck  bool
	keepBest bool
	sides    int
	sea      bool
	raid     bool
	jsonOut  bool
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.attack, "attack", "infantry=3,artillery=1", "Attacking units (type=count,...)")
	flag.StringVar(&opts.defend, "defend", "infantry=2", "Defending units (type=count,...)")
	flag.Uint64Var(&opts.seed, "seed", 1, "Dice seed; run i uses seed+i")
	flag.IntVar(&opts.runs, "n", 1, "Number of battles to fight")
	flag.BoolVar(&opts.lowLuck, "lowluck", false, "Use low luck dice")
	flag.BoolVar(&opts.keepBest, "keepbest", false, "Units with several dice keep their best roll")
	flag.IntVar(&opts.sides, "sides", 6, "Die sides")
	flag.BoolVar(&opts.sea, "sea", false, "Fight in a sea zone")
	flag.BoolVar(&opts.raid, "raid", false, "Fight a strategic bombing raid")
	flag.BoolVar(&opts.jsonOut, "json", false, "Print outcomes as JSON")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.Parse()

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(context.Background(), os.Stdout, opts); err != nil {
		log.Fatal().Err(err).Msg("Simulation failed")
	}
}

func run(ctx context.Context, out io.Writer, opts options) error {
	if opts.runs < 1 {
		return fmt.Errorf("-n must be at least 1")
	}
	ruleset := combat.StandardRuleset()
	ruleset.Rules.DiceSides = opts.sides
	ruleset.Rules.LowLuck = opts.lowLuck
	ruleset.Rules.KeepBestRoll = opts.keepBest

	attackers, err := parseForce(ruleset, opts.attack)
	if err != nil {
		return fmt.Errorf("-attack: %w", err)
	}
	defenders, err := parseForce(ruleset, opts.defend)
	if err != nil {
		return fmt.Errorf("-defend: %w", err)
	}

	tally := make(map[combat.Result]int)
	var rounds int
	for i := range opts.runs {
		// Only a single battle is narrated round by round.
		narrate := opts.runs == 1 && !opts.jsonOut
		outcome, err := fight(ctx, out, ruleset, opts, attackers, defenders, opts.seed+uint64(i), narrate)
		if err != nil {
			return fmt.Errorf("battle %d: %w", i+1, err)
		}
		tally[outcome.Result]++
		rounds += outcome.Rounds

		if opts.jsonOut {
			b, _ := json.Marshal(outcome)
			fmt.Fprintln(out, string(b))
		} else if opts.runs == 1 {
			printOutcome(out, outcome)
		}
	}
	if opts.runs > 1 && !opts.jsonOut {
		printTally(out, tally, rounds, opts.runs)
	}
	return nil
}

// force is a count per unit type.
type force []struct {
	typ   string
	count int
}

// parseForce reads "infantry=3,artillery=1". Bare names count once.
func parseForce(rs *combat.Ruleset, s string) (force, error) {
	var f force
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, countStr, hasCount := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		count := 1
		if hasCount {
			n, err := strconv.Atoi(strings.TrimSpace(countStr))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("bad count in %q", part)
			}
			count = n
		}
		if _, ok := rs.UnitTypes[name]; !ok {
			return nil, fmt.Errorf("unknown unit type %q (known: %s)", name, strings.Join(unitTypeNames(rs), ", "))
		}
		f = append(f, struct {
			typ   string
			count int
		}{name, count})
	}
	if len(f) == 0 {
		return nil, fmt.Errorf("no units")
	}
	return f, nil
}

func unitTypeNames(rs *combat.Ruleset) []string {
	names := make([]string, 0, len(rs.UnitTypes))
	for name := range rs.UnitTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// place turns a force into unit states with IDs like "germany-armour-2".
func place(f force, owner combat.Player, territory string) ([]combat.UnitState, []string) {
	var units []combat.UnitState
	var ids []string
	for _, entry := range f {
		for n := 1; n <= entry.count; n++ {
			id := fmt.Sprintf("%s-%s-%d", owner, entry.typ, n)
			units = append(units, combat.UnitState{ID: id, Type: entry.typ, Owner: owner, Territory: territory})
			ids = append(ids, id)
		}
	}
	return units, ids
}

func fight(ctx context.Context, out io.Writer, rs *combat.Ruleset, opts options, attackers, defenders force, seed uint64, narrate bool) (*combat.Outcome, error) {
	const gameID = "sim"
	states := memory.NewGameStates()
	random := func(string) combat.RandomSource { return combat.NewSeededSource(seed) }
	svc := service.NewBattleService(memory.NewBattleRepo(), states, rs, nil, random, nil)

	attUnits, attIDs := place(attackers, combat.Germany, siteName)
	defUnits, defIDs := place(defenders, combat.Russia, siteName)
	territories := []combat.Territory{
		{Name: siteName, Water: opts.sea, Owner: combat.Russia, Neighbors: []string{stagingName}},
		{Name: stagingName, Water: opts.sea, Owner: combat.Germany, Neighbors: []string{siteName}},
	}
	if opts.sea {
		territories[0].Owner, territories[1].Owner = "", ""
	}
	if err := svc.LoadBoard(ctx, gameID, territories, append(attUnits, defUnits...)); err != nil {
		return nil, err
	}

	kind := combat.NormalBattle
	if opts.raid {
		kind = combat.BombingRaid
	}
	battle, steps, err := svc.StartBattle(ctx, gameID, service.StartBattleRequest{
		Site:          siteName,
		Kind:          kind.String(),
		Attacker:      string(combat.Germany),
		Defender:      string(combat.Russia),
		Attacking:     attIDs,
		Defending:     defIDs,
		AttackingFrom: []string{stagingName},
	})
	if err != nil {
		return nil, err
	}

	for {
		if narrate {
			printSteps(out, steps)
		}
		res, err := svc.FightRound(ctx, battle.ID)
		if err != nil {
			return nil, err
		}
		if narrate {
			printRound(out, res)
		}
		if res.Outcome != nil {
			return res.Outcome, nil
		}
		if steps, err = svc.Steps(ctx, battle.ID); err != nil {
			return nil, err
		}
	}
}

func printSteps(out io.Writer, steps []combat.Step) {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	fmt.Fprintf(out, "steps: %s\n", strings.Join(names, " | "))
}

func printRound(out io.Writer, res *combat.RoundResult) {
	fmt.Fprintf(out, "round %d\n", res.Round)
	for _, roll := range res.Rolls {
		dice := make([]string, len(roll.Dice))
		for i, d := range roll.Dice {
			dice[i] = d.String()
		}
		fmt.Fprintf(out, "  %-8s %-30s hits=%d [%s]\n", roll.Player, roll.Annotation, roll.Hits, strings.Join(dice, ", "))
	}
	for _, c := range res.Casualties {
		fmt.Fprintf(out, "  %-8s loses %v", c.Player, c.Killed)
		if len(c.Damaged) > 0 {
			fmt.Fprintf(out, " damaged %v", c.Damaged)
		}
		fmt.Fprintln(out)
	}
}

func printOutcome(out io.Writer, o *combat.Outcome) {
	fmt.Fprintf(out, "result: %s after %d round(s)\n", o.Result, o.Rounds)
	if o.Winner != "" {
		fmt.Fprintf(out, "winner: %s\n", o.Winner)
	}
	fmt.Fprintf(out, "attacker survivors: %v\n", o.AttackerSurvivors)
	fmt.Fprintf(out, "defender survivors: %v\n", o.DefenderSurvivors)
	if o.NewOwner != "" {
		fmt.Fprintf(out, "%s now owned by %s\n", o.Site, o.NewOwner)
	}
	if o.RetreatedTo != "" {
		fmt.Fprintf(out, "attacker retreated to %s\n", o.RetreatedTo)
	}
	if o.BombingDamage > 0 {
		fmt.Fprintf(out, "bombing damage: %d\n", o.BombingDamage)
	}
}

func printTally(out io.Writer, tally map[combat.Result]int, rounds, runs int) {
	results := make([]string, 0, len(tally))
	for r := range tally {
		results = append(results, string(r))
	}
	sort.Strings(results)
	for _, r := range results {
		n := tally[combat.Result(r)]
		fmt.Fprintf(out, "%-20s %6d  %5.1f%%\n", r, n, 100*float64(n)/float64(runs))
	}
	fmt.Fprintf(out, "average rounds: %.2f\n", float64(rounds)/float64(runs))
}
