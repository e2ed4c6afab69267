package combat

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// Helper to build n units of one type, IDs prefix-1..prefix-n.
func makeUnits(t *testing.T, rs *Ruleset, owner Player, typ, prefix string, n int) []*Unit {
	t.Helper()
	ut, err := rs.UnitType(typ)
	if err != nil {
		t.Fatalf("unit type %s: %v", typ, err)
	}
	out := make([]*Unit, n)
	for i := range out {
		out[i] = &Unit{ID: fmt.Sprintf("%s-%d", prefix, i+1), Type: ut, Owner: owner}
	}
	return out
}

func join(groups ...[]*Unit) []*Unit {
	var out []*Unit
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func sea(name string) Territory { return Territory{Name: name, Water: true} }
func land(name string, owner Player) Territory {
	return Territory{Name: name, Owner: owner}
}

func newBattle(t *testing.T, cfg Config) *Battle {
	t.Helper()
	if cfg.ID == "" {
		cfg.ID = "b1"
	}
	if cfg.Ruleset == nil {
		cfg.Ruleset = StandardRuleset()
	}
	b, err := NewBattle(cfg)
	if err != nil {
		t.Fatalf("NewBattle: %v", err)
	}
	return b
}

func stepNames(steps []Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// scriptedDecisions answers with fixed choices and counts calls.
type scriptedDecisions struct {
	retreatTo  string
	casualties func(CasualtyRequest) CasualtyList
	confirm    bool
	asked      int
}

func (d *scriptedDecisions) SelectCasualties(_ context.Context, req CasualtyRequest) (CasualtyList, error) {
	d.asked++
	if d.casualties != nil {
		return d.casualties(req), nil
	}
	return req.Default, nil
}

func (d *scriptedDecisions) ConfirmRetreat(_ context.Context, req RetreatRequest) (string, bool, error) {
	d.asked++
	if req.Submerge || d.retreatTo == "" {
		return "", false, nil
	}
	return d.retreatTo, true, nil
}

func (d *scriptedDecisions) Confirm(context.Context, ConfirmRequest) (bool, error) {
	d.asked++
	return d.confirm, nil
}

// refusingDecisions fails the test if it is ever consulted.
type refusingDecisions struct{ t *testing.T }

func (d refusingDecisions) SelectCasualties(context.Context, CasualtyRequest) (CasualtyList, error) {
	d.t.Error("decision source consulted for a forced selection")
	return CasualtyList{}, errors.New("unexpected")
}

func (d refusingDecisions) ConfirmRetreat(context.Context, RetreatRequest) (string, bool, error) {
	d.t.Error("decision source asked about retreat")
	return "", false, errors.New("unexpected")
}

func (d refusingDecisions) Confirm(context.Context, ConfirmRequest) (bool, error) {
	d.t.Error("decision source asked to confirm")
	return false, errors.New("unexpected")
}

// shortSource returns one value fewer than asked for.
type shortSource struct{}

func (shortSource) Draw(_ context.Context, sides, count int, _ string) ([]int, error) {
	return make([]int, max(count-1, 0)), nil
}
