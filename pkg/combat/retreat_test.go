package combat

import (
	"context"
	"testing"
)

func retreatBoard(t *testing.T, rs *Ruleset) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	s.PutTerritory(land("karelia", Russia))
	s.PutTerritory(land("finland", Germany))
	s.PutTerritory(land("norway", Germany))
	s.PutTerritory(land("leningrad", Russia))
	s.PutTerritory(land("estonia", Germany))
	s.PutTerritory(land("latvia", Italy))
	s.PutTerritory(sea("baltic"))
	for _, u := range makeUnits(t, rs, Russia, "armour", "rarm", 1) {
		s.PutUnit(u.State("estonia"))
	}
	for _, u := range makeUnits(t, rs, Russia, "aagun", "raa", 1) {
		s.PutUnit(u.State("latvia"))
	}
	return s
}

func TestRetreatOptionsLand(t *testing.T) {
	rs := StandardRuleset()
	store := retreatBoard(t, rs)
	in := RetreatInput{
		Player:        Germany,
		Site:          land("karelia", Russia),
		Units:         makeUnits(t, rs, Germany, "infantry", "inf", 2),
		AttackingFrom: []string{"finland", "baltic", "leningrad", "norway", "estonia", "latvia", "karelia", "atlantis", "finland"},
		Contested:     map[string]bool{"norway": true},
	}
	got, err := RetreatOptions(context.Background(), store, rs, in)
	if err != nil {
		t.Fatal(err)
	}
	// baltic is water, leningrad is enemy land, norway is contested,
	// estonia holds enemy armour; latvia holds only enemy infrastructure.
	want := []string{"finland", "latvia"}
	if !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRetreatOptionsSpecialCases(t *testing.T) {
	rs := StandardRuleset()
	store := retreatBoard(t, rs)
	site := land("karelia", Russia)
	base := RetreatInput{Player: Germany, Site: site, AttackingFrom: []string{"finland"}}

	cases := []struct {
		name   string
		mutate func(*RetreatInput)
		want   []string
	}{
		{"no units", func(in *RetreatInput) {}, nil},
		{"amphibious", func(in *RetreatInput) {
			in.Units = makeUnits(t, rs, Germany, "infantry", "inf", 1)
			in.Amphibious = true
		}, nil},
		{"all air", func(in *RetreatInput) {
			in.Units = makeUnits(t, rs, Germany, "fighter", "ftr", 2)
		}, []string{"karelia"}},
		{"submerge", func(in *RetreatInput) {
			in.Units = makeUnits(t, rs, Germany, "submarine", "ss", 1)
			in.Submerge = true
		}, []string{"karelia"}},
	}
	for _, tc := range cases {
		in := base
		tc.mutate(&in)
		got, err := RetreatOptions(context.Background(), store, rs, in)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !equalStrings(got, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestRetreatOptionsSeaUnitsNeedWater(t *testing.T) {
	rs := StandardRuleset()
	store := NewMemoryStore()
	store.PutTerritory(sea("sz1"))
	store.PutTerritory(sea("sz2"))
	store.PutTerritory(land("finland", Germany))
	got, err := RetreatOptions(context.Background(), store, rs, RetreatInput{
		Player:        Germany,
		Site:          sea("sz1"),
		Units:         makeUnits(t, rs, Germany, "destroyer", "dd", 1),
		AttackingFrom: []string{"sz2", "finland"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(got, []string{"sz2"}) {
		t.Errorf("expected [sz2], got %v", got)
	}
}
