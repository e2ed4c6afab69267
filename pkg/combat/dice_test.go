package combat

import (
	"context"
	"errors"
	"testing"
)

func TestDieCompressRoundTrip(t *testing.T) {
	for rolled := 0; rolled <= MaxDieValue; rolled++ {
		for hitAt := 0; hitAt <= MaxDieValue; hitAt++ {
			for _, typ := range []DieType{Miss, Hit, Ignored} {
				d := Die{Rolled: rolled, HitAt: hitAt, Type: typ}
				if got := DecompressDie(d.Compress()); got != d {
					t.Fatalf("round trip of %v gave %v", d, got)
				}
			}
		}
	}
}

func TestDiceRollCompressedKeepsHits(t *testing.T) {
	roll := DiceRoll{Player: Germany, Annotation: "ll", Dice: []Die{NewDie(2, 4)}, Hits: 3}
	got := DecompressDiceRoll(roll.Player, roll.Annotation, roll.Compressed(), roll.Hits)
	if got.Hits != 3 || len(got.Dice) != 1 || got.Dice[0] != roll.Dice[0] {
		t.Errorf("unexpected roll %+v", got)
	}
}

func TestNewDieThreshold(t *testing.T) {
	if NewDie(1, 2).Type != Hit {
		t.Error("rolled below threshold should hit")
	}
	if NewDie(2, 2).Type != Miss {
		t.Error("rolled at threshold should miss")
	}
	if NewDie(0, 0).Type != Miss {
		t.Error("zero threshold never hits")
	}
}

func TestRollNormal(t *testing.T) {
	rs := StandardRuleset()
	armour := makeUnits(t, rs, Germany, "armour", "arm", 2)
	values := CalculateValues(armour, ValueContext{Attacking: true, Rules: rs.Rules})

	src := NewScriptedSource(2, 3)
	roll, err := RollDice(context.Background(), src, RollRequest{Player: Germany, Values: values, Rules: rs.Rules})
	if err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	if roll.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", roll.Hits)
	}
	if len(roll.Dice) != 2 || roll.Dice[0].Type != Hit || roll.Dice[1].Type != Miss {
		t.Errorf("unexpected dice %v", roll.Dice)
	}
	if src.Draws() != len(roll.Dice) {
		t.Errorf("drew %d values for %d dice", src.Draws(), len(roll.Dice))
	}
}

func TestRollKeepBestIgnoresOtherDice(t *testing.T) {
	heavy := &UnitType{Name: "heavy", Domain: Air, Attack: 4, AttackRolls: 2, ChooseBestRoll: true}
	u := &Unit{ID: "h1", Type: heavy, Owner: America}
	values := CalculateValues([]*Unit{u}, ValueContext{Attacking: true})
	if !values[0].ChooseBest || values[0].Rolls != 2 {
		t.Fatalf("expected keep-best value with 2 rolls, got %+v", values[0])
	}

	roll, err := RollDice(context.Background(), NewScriptedSource(5, 1), RollRequest{Values: values})
	if err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	if roll.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", roll.Hits)
	}
	if roll.Dice[0].Type != Ignored || roll.Dice[1].Type != Hit {
		t.Errorf("expected [ignored hit], got %v", roll.Dice)
	}
}

func TestRollIndependentDiceWithoutKeepBest(t *testing.T) {
	heavy := &UnitType{Name: "heavy", Domain: Air, Attack: 4, AttackRolls: 2}
	u := &Unit{ID: "h1", Type: heavy, Owner: America}
	values := CalculateValues([]*Unit{u}, ValueContext{Attacking: true})
	roll, err := RollDice(context.Background(), NewScriptedSource(0, 1), RollRequest{Values: values})
	if err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	if roll.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", roll.Hits)
	}
}

func TestLowLuckExactMultipleDrawsNothing(t *testing.T) {
	rs := StandardRuleset()
	inf := makeUnits(t, rs, Russia, "infantry", "inf", 3)
	values := CalculateValues(inf, ValueContext{Attacking: false, Rules: rs.Rules})

	src := NewScriptedSource()
	roll, err := RollDice(context.Background(), src, RollRequest{Player: Russia, Values: values, Rules: rs.Rules, LowLuck: true})
	if err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	if roll.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", roll.Hits)
	}
	if src.Draws() != 0 || len(roll.Dice) != 0 {
		t.Errorf("expected no draws, got %d draws and %d dice", src.Draws(), len(roll.Dice))
	}
}

func TestLowLuckRemainderDie(t *testing.T) {
	rs := StandardRuleset()
	inf := makeUnits(t, rs, Russia, "infantry", "inf", 2)
	values := CalculateValues(inf, ValueContext{Attacking: false, Rules: rs.Rules})

	cases := []struct {
		rolled int
		hits   int
	}{
		{3, 1},
		{4, 0},
	}
	for _, tc := range cases {
		src := NewScriptedSource(tc.rolled)
		roll, err := RollDice(context.Background(), src, RollRequest{Values: values, Rules: rs.Rules, LowLuck: true})
		if err != nil {
			t.Fatalf("RollDice: %v", err)
		}
		if roll.Hits != tc.hits {
			t.Errorf("rolled %d: expected %d hits, got %d", tc.rolled, tc.hits, roll.Hits)
		}
		if src.Draws() != 1 || roll.Dice[0].HitAt != 4 {
			t.Errorf("rolled %d: expected one die at 4, got %v", tc.rolled, roll.Dice)
		}
	}
}

func TestLowLuckIsDeterministicForSeed(t *testing.T) {
	rs := StandardRuleset()
	units := join(makeUnits(t, rs, Germany, "armour", "arm", 3), makeUnits(t, rs, Germany, "infantry", "inf", 2))
	values := CalculateValues(units, ValueContext{Attacking: true, Rules: rs.Rules})

	a, err := RollDice(context.Background(), NewSeededSource(7), RollRequest{Values: values, Rules: rs.Rules, LowLuck: true})
	if err != nil {
		t.Fatal(err)
	}
	b, err := RollDice(context.Background(), NewSeededSource(7), RollRequest{Values: values, Rules: rs.Rules, LowLuck: true})
	if err != nil {
		t.Fatal(err)
	}
	if a.Hits != b.Hits || len(a.Dice) != len(b.Dice) {
		t.Errorf("same seed gave %+v and %+v", a, b)
	}
	// power 11 on d6: one guaranteed hit plus a die at 5.
	if a.Hits < 1 || a.Hits > 2 {
		t.Errorf("expected 1 or 2 hits, got %d", a.Hits)
	}
}

func TestLowLuckKeepBestPower(t *testing.T) {
	heavy := &UnitType{Name: "heavy", Domain: Air, Attack: 4, AttackRolls: 2, ChooseBestRoll: true}
	values := CalculateValues([]*Unit{{ID: "h1", Type: heavy}}, ValueContext{Attacking: true})
	power, rolls := TotalPower(values, Rules{})
	if power != 5 || rolls != 2 {
		t.Errorf("expected power 5 over 2 rolls, got %d over %d", power, rolls)
	}
}

func TestDrawCountMismatchIsDefect(t *testing.T) {
	rs := StandardRuleset()
	inf := makeUnits(t, rs, Russia, "infantry", "inf", 2)
	values := CalculateValues(inf, ValueContext{Attacking: false, Rules: rs.Rules})
	_, err := RollDice(context.Background(), shortSource{}, RollRequest{Values: values, Rules: rs.Rules})
	if !errors.Is(err, ErrDrawCountMismatch) || !IsDefect(err) {
		t.Errorf("expected draw count defect, got %v", err)
	}
}

func TestRollEmptyGroupDrawsNothing(t *testing.T) {
	src := NewScriptedSource()
	roll, err := RollDice(context.Background(), src, RollRequest{})
	if err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	if roll.Hits != 0 || len(roll.Dice) != 0 || src.Draws() != 0 {
		t.Errorf("expected empty roll, got %+v", roll)
	}
}

func TestBombingDamage(t *testing.T) {
	roll, damage, err := RollBombingDamage(context.Background(), NewScriptedSource(0, 5), America, 2, Rules{}, false, "raid")
	if err != nil {
		t.Fatal(err)
	}
	if damage != 7 || len(roll.Dice) != 2 {
		t.Errorf("expected 7 damage from 2 dice, got %d from %d", damage, len(roll.Dice))
	}
	_, damage, err = RollBombingDamage(context.Background(), NewScriptedSource(), America, 2, Rules{}, true, "raid")
	if err != nil {
		t.Fatal(err)
	}
	if damage != 6 {
		t.Errorf("expected low-luck damage 6, got %d", damage)
	}
}
