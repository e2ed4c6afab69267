package combat

// BonusKind is what a support rule adds to the supported unit.
type BonusKind int

const (
	BonusStrength BonusKind = iota
	BonusRolls
)

func (k BonusKind) String() string {
	if k == BonusRolls {
		return "rolls"
	}
	return "strength"
}

// SupportRule grants a bonus to supported unit types while providing unit
// types are present. Each provider supports at most Number units per step.
type SupportRule struct {
	Name      string
	Offence   bool
	Defence   bool
	Allied    bool // providers may support units owned by allied players
	Enemy     bool // the bonus applies to the providers' enemies
	Bonus     int
	Kind      BonusKind
	Number    int // 0 is treated as 1
	Providers []string
	Supported []string
}

func (r *SupportRule) appliesTo(attacking bool) bool {
	if attacking {
		return r.Offence
	}
	return r.Defence
}

func (r *SupportRule) capacity() int {
	if r.Number < 1 {
		return 1
	}
	return r.Number
}

// SupportGrant records one provider lending its bonus to one unit.
type SupportGrant struct {
	Rule     string
	Provider *Unit
	Unit     *Unit
	Bonus    int
	Kind     BonusKind
}

func typeListed(names []string, t *UnitType) bool {
	for _, n := range names {
		if n == t.Name {
			return true
		}
	}
	return false
}

// AssignSupport hands out support greedily in rule declaration order.
// Friendly rules draw providers from friendly; enemy rules draw them from
// enemy and apply their bonus to units. Units are visited in the given
// order and each unit takes at most one grant per rule.
func AssignSupport(units, friendly, enemy []*Unit, rules []SupportRule, attacking bool) []SupportGrant {
	var grants []SupportGrant
	for i := range rules {
		rule := &rules[i]
		// Enemy rules are written from the provider's perspective.
		providerAttacking := attacking
		if rule.Enemy {
			providerAttacking = !attacking
		}
		if !rule.appliesTo(providerAttacking) {
			continue
		}
		pool := friendly
		if rule.Enemy {
			pool = enemy
		}

		left := make(map[*Unit]int)
		var providers []*Unit
		for _, p := range pool {
			if typeListed(rule.Providers, p.Type) {
				providers = append(providers, p)
				left[p] = rule.capacity()
			}
		}
		if len(providers) == 0 {
			continue
		}

		for _, u := range units {
			if !typeListed(rule.Supported, u.Type) {
				continue
			}
			for _, p := range providers {
				if left[p] == 0 || p == u {
					continue
				}
				if !rule.Enemy && !rule.Allied && p.Owner != u.Owner {
					continue
				}
				left[p]--
				grants = append(grants, SupportGrant{
					Rule:     rule.Name,
					Provider: p,
					Unit:     u,
					Bonus:    rule.Bonus,
					Kind:     rule.Kind,
				})
				break
			}
		}
	}
	return grants
}
