package combat

import (
	"context"
	"fmt"
)

// RetreatInput describes a side asking where it may retreat to.
type RetreatInput struct {
	Player        Player
	Site          Territory
	Units         []*Unit  // the retreating units
	AttackingFrom []string // where the attacking units came from
	Contested     map[string]bool
	Amphibious    bool
	Submerge      bool
}

// RetreatOptions lists the territories the units may legally withdraw into.
// Submerging always stays in the battle site, and an all-air force retreats
// in place. Otherwise candidates are the territories the attack came from,
// minus the site, any territory with a battle still pending, and any
// territory held by an enemy or occupied by enemy fighting units. Sea units
// only retreat to water and land units in a land battle only to land. An
// amphibious assault has no retreat.
func RetreatOptions(ctx context.Context, terrain Terrain, rs *Ruleset, in RetreatInput) ([]string, error) {
	if len(in.Units) == 0 {
		return nil, nil
	}
	if in.Submerge {
		return []string{in.Site.Name}, nil
	}
	if in.Amphibious {
		return nil, nil
	}
	if !anyUnit(in.Units, func(u *Unit) bool { return u.Type.Domain != Air }) {
		return []string{in.Site.Name}, nil
	}

	hasSea := anyUnit(in.Units, func(u *Unit) bool { return u.Type.Domain == Sea })
	hasLand := anyUnit(in.Units, func(u *Unit) bool { return u.Type.Domain == Land })

	var options []string
	seen := make(map[string]bool)
	for _, name := range in.AttackingFrom {
		if seen[name] || name == in.Site.Name || in.Contested[name] {
			continue
		}
		seen[name] = true

		t, err := terrain.Territory(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("retreat territory %s: %w", name, err)
		}
		if t == nil {
			continue
		}
		if hasSea && !t.Water {
			continue
		}
		if hasLand && !in.Site.Water && t.Water {
			continue
		}
		if !t.Water && t.Owner != "" && !rs.Allied(t.Owner, in.Player) {
			continue
		}
		blocked, err := enemyForcePresent(ctx, terrain, rs, name, in.Player)
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}
		options = append(options, name)
	}
	return options, nil
}

func enemyForcePresent(ctx context.Context, terrain Terrain, rs *Ruleset, territory string, player Player) (bool, error) {
	units, err := terrain.Units(ctx, territory)
	if err != nil {
		return false, fmt.Errorf("units in %s: %w", territory, err)
	}
	for _, s := range units {
		if rs.Allied(s.Owner, player) || s.Submerged {
			continue
		}
		t, err := rs.UnitType(s.Type)
		if err != nil {
			return false, err
		}
		if !t.Infrastructure {
			return true, nil
		}
	}
	return false, nil
}
