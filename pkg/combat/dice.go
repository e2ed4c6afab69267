package combat

import "context"

// RollRequest describes one group of units firing together.
type RollRequest struct {
	Player     Player
	Annotation string
	Values     []CombatValue
	Rules      Rules
	LowLuck    bool
}

// RollDice resolves a group's fire into dice and hits. The source is asked
// for exactly as many values as dice returned.
//
// In normal mode every roll is drawn and a die hits when it comes up below
// the unit's strength. Keep-best units draw all their dice but only the
// lowest is classified; the rest are Ignored.
//
// In low-luck mode the group's total power is divided by the dice sides.
// The quotient is scored without any dice and a single die is drawn only
// when there is a remainder, hitting when it comes up below the remainder.
func RollDice(ctx context.Context, src RandomSource, req RollRequest) (DiceRoll, error) {
	if req.LowLuck {
		return rollLowLuck(ctx, src, req)
	}
	return rollNormal(ctx, src, req)
}

func rollNormal(ctx context.Context, src RandomSource, req RollRequest) (DiceRoll, error) {
	roll := DiceRoll{Player: req.Player, Annotation: req.Annotation}
	total := 0
	for _, v := range req.Values {
		total += v.Rolls
	}
	raw, err := drawExactly(ctx, src, req.Rules.Sides(), total, req.Annotation)
	if err != nil {
		return roll, err
	}

	roll.Dice = make([]Die, 0, total)
	i := 0
	for _, v := range req.Values {
		if v.Rolls == 0 {
			continue
		}
		chunk := raw[i : i+v.Rolls]
		i += v.Rolls

		if !v.ChooseBest {
			for _, r := range chunk {
				d := NewDie(r, v.Strength)
				if d.Type == Hit {
					roll.Hits++
				}
				roll.Dice = append(roll.Dice, d)
			}
			continue
		}

		best := 0
		for j := range chunk {
			if chunk[j] < chunk[best] {
				best = j
			}
		}
		for j, r := range chunk {
			if j != best {
				roll.Dice = append(roll.Dice, Die{Rolled: r, HitAt: v.Strength, Type: Ignored})
				continue
			}
			d := NewDie(r, v.Strength)
			if d.Type == Hit {
				roll.Hits++
			}
			roll.Dice = append(roll.Dice, d)
		}
	}
	return roll, nil
}

func rollLowLuck(ctx context.Context, src RandomSource, req RollRequest) (DiceRoll, error) {
	roll := DiceRoll{Player: req.Player, Annotation: req.Annotation}
	sides := req.Rules.Sides()
	power, _ := TotalPower(req.Values, req.Rules)
	roll.Hits = power / sides

	remainder := power % sides
	if remainder == 0 {
		return roll, nil
	}
	raw, err := drawExactly(ctx, src, sides, 1, req.Annotation)
	if err != nil {
		return roll, err
	}
	d := NewDie(raw[0], remainder)
	if d.Type == Hit {
		roll.Hits++
	}
	roll.Dice = []Die{d}
	return roll, nil
}

// RollBombingDamage rolls one die per bomber and returns the total damage.
// Each die deals its face value, so a zero-based roll r deals r+1. Low luck
// deals the rounded-down average face without drawing.
func RollBombingDamage(ctx context.Context, src RandomSource, player Player, bombers int, rules Rules, lowLuck bool, annotation string) (DiceRoll, int, error) {
	roll := DiceRoll{Player: player, Annotation: annotation}
	sides := rules.Sides()
	if lowLuck {
		return roll, bombers * ((sides + 1) / 2), nil
	}
	raw, err := drawExactly(ctx, src, sides, bombers, annotation)
	if err != nil {
		return roll, 0, err
	}
	damage := 0
	roll.Dice = make([]Die, len(raw))
	for i, r := range raw {
		roll.Dice[i] = Die{Rolled: r, HitAt: sides, Type: Hit}
		damage += r + 1
	}
	roll.Hits = len(raw)
	return roll, damage, nil
}
