package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/freeeve/beachhead/pkg/combat"
)

func TestParseForce(t *testing.T) {
	rs := combat.StandardRuleset()
	tests := []struct {
		in      string
		want    int // total units
		wantErr bool
	}{
		{"infantry=3,artillery=1", 4, false},
		{"armour", 1, false},
		{" infantry = 2 , fighter ", 3, false},
		{"", 0, true},
		{"tank=2", 0, true},
		{"infantry=0", 0, true},
		{"infantry=x", 0, true},
	}
	for _, tt := range tests {
		f, err := parseForce(rs, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseForce(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		total := 0
		for _, e := range f {
			total += e.count
		}
		if total != tt.want {
			t.Errorf("parseForce(%q) = %d units, want %d", tt.in, total, tt.want)
		}
	}
}

func TestPlaceAssignsUniqueIDs(t *testing.T) {
	f, err := parseForce(combat.StandardRuleset(), "infantry=2,armour=1")
	if err != nil {
		t.Fatal(err)
	}
	units, ids := place(f, combat.Germany, siteName)
	want := []string{"germany-infantry-1", "germany-infantry-2", "germany-armour-1"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	for _, u := range units {
		if u.Territory != siteName || u.Owner != combat.Germany {
			t.Errorf("unexpected placement %+v", u)
		}
	}
}

func TestRunNarratesOneBattle(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, options{
		attack: "infantry=3,artillery=1", defend: "infantry=2",
		seed: 7, runs: 1, sides: 6,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	s := out.String()
	for _, want := range []string{"steps:", "round 1", "result:"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	opts := options{attack: "armour=2", defend: "infantry=3", seed: 11, runs: 5, sides: 6, jsonOut: true}
	var a, b bytes.Buffer
	if err := run(context.Background(), &a, opts); err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), &b, opts); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Errorf("same seed gave different outcomes:\n%s\n%s", a.String(), b.String())
	}

	lines := strings.Split(strings.TrimSpace(a.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 outcomes, got %d", len(lines))
	}
	for _, line := range lines {
		var o combat.Outcome
		if err := json.Unmarshal([]byte(line), &o); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		if o.Result == "" || o.Rounds < 1 {
			t.Errorf("incomplete outcome %+v", o)
		}
	}
}

func TestRunLowLuckTally(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, options{
		attack: "armour=3", defend: "infantry=1", seed: 1, runs: 3, sides: 6, lowLuck: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Three armour make 9 pips against one infantry: low luck always kills it.
	if !strings.Contains(out.String(), "attacker_won") {
		t.Errorf("expected attacker wins:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "average rounds: 1.00") {
		t.Errorf("expected one-round battles:\n%s", out.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, options{attack: "tank", defend: "infantry", runs: 1, sides: 6}); err == nil {
		t.Error("expected unknown unit type error")
	}
	if err := run(context.Background(), &out, options{attack: "infantry", defend: "infantry", runs: 0, sides: 6}); err == nil {
		t.Error("expected error for -n 0")
	}
}
