package combat

// Standard players.
const (
	Germany Player = "germany"
	Japan   Player = "japan"
	Italy   Player = "italy"
	Russia  Player = "russia"
	Britain Player = "britain"
	America Player = "america"
	China   Player = "china"
)

// StandardRuleset returns the classic second-world-war unit roster with
// artillery support, six-sided dice and the usual two alliances.
func StandardRuleset() *Ruleset {
	air := []string{"fighter", "bomber"}
	types := []*UnitType{
		{Name: "infantry", Domain: Land, Attack: 1, Defense: 2, Cost: 3},
		{Name: "artillery", Domain: Land, Attack: 2, Defense: 2, Cost: 4},
		{Name: "armour", Domain: Land, Attack: 3, Defense: 3, Cost: 5},
		{Name: "marine", Domain: Land, Attack: 1, Defense: 2, Cost: 4, Marine: 1},
		{Name: "aagun", Domain: Land, Cost: 5, Infrastructure: true,
			AA: &AAProfile{Type: "AA", Defense: 1, MaxAttacks: 3, MaxRounds: 1, Targets: air}},
		{Name: "factory", Domain: Land, Cost: 15, Infrastructure: true},
		{Name: "fighter", Domain: Air, Attack: 3, Defense: 4, Cost: 10},
		{Name: "bomber", Domain: Air, Attack: 4, Defense: 1, Cost: 12},
		{Name: "submarine", Domain: Sea, Attack: 2, Defense: 1, Cost: 6,
			FirstStrike: true, CanEvade: true, CannotTargetAir: true},
		{Name: "destroyer", Domain: Sea, Attack: 2, Defense: 2, Cost: 8, CountersFirstStrike: true},
		{Name: "cruiser", Domain: Sea, Attack: 3, Defense: 3, Cost: 12, Bombard: 3},
		{Name: "battleship", Domain: Sea, Attack: 4, Defense: 4, Cost: 20, HitPoints: 2, Bombard: 4},
		{Name: "carrier", Domain: Sea, Attack: 1, Defense: 2, Cost: 14, HitPoints: 2},
		{Name: "transport", Domain: Sea, Cost: 7},
	}
	byName := make(map[string]*UnitType, len(types))
	for _, t := range types {
		byName[t.Name] = t
	}

	return &Ruleset{
		Rules: Rules{
			DiceSides:                   6,
			SubsCanSubmerge:             true,
			BombardCasualtiesReturnFire: true,
		},
		UnitTypes: byName,
		Supports: []SupportRule{
			{
				Name:      "artillery",
				Offence:   true,
				Allied:    true,
				Bonus:     1,
				Kind:      BonusStrength,
				Number:    1,
				Providers: []string{"artillery"},
				Supported: []string{"infantry", "marine"},
			},
		},
		Alliances: map[Player]string{
			Germany: "axis", Japan: "axis", Italy: "axis",
			Russia: "allies", Britain: "allies", America: "allies", China: "allies",
		},
	}
}
