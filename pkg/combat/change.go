package combat

// ChangeKind names a mutation of shared game state.
type ChangeKind string

const (
	ChangeDamage    ChangeKind = "damage"    // UnitIDs now carry Damage hit points of damage
	ChangeRemove    ChangeKind = "remove"    // UnitIDs were destroyed in Territory
	ChangeSubmerge  ChangeKind = "submerge"  // UnitIDs submerged in Territory
	ChangeRetreat   ChangeKind = "retreat"   // UnitIDs moved from Territory to To
	ChangeCapture   ChangeKind = "capture"   // UnitIDs now belong to Owner
	ChangeOwnership ChangeKind = "ownership" // Territory now belongs to Owner
	ChangeBombing   ChangeKind = "bombing"   // Territory now carries Damage bombing damage
)

// Change is one mutation. Every change carries absolute values, so applying
// the same change twice leaves the same state.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	Territory string     `json:"territory"`
	UnitIDs   []string   `json:"unit_ids,omitempty"`
	Damage    int        `json:"damage,omitempty"`
	To        string     `json:"to,omitempty"`
	Owner     Player     `json:"owner,omitempty"`
	Previous  Player     `json:"previous,omitempty"`
}

// ChangeSet is the ordered list of mutations one round produced. The store
// applies it as a single transaction.
type ChangeSet []Change

// Units returns the IDs of every unit the set touches, in first-seen order.
func (cs ChangeSet) Units() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, c := range cs {
		for _, id := range c.UnitIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Territories returns the names of every territory the set touches.
func (cs ChangeSet) Territories() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, c := range cs {
		add(c.Territory)
		add(c.To)
	}
	return names
}

// ApplyChanges applies cs to snapshots of territories and units, keyed by
// name and ID. Destroyed units are deleted from units. Nothing is modified
// when an error is returned.
func ApplyChanges(territories map[string]*Territory, units map[string]*UnitState, cs ChangeSet) error {
	removed := make(map[string]bool)
	for _, c := range cs {
		for _, id := range c.UnitIDs {
			if _, ok := units[id]; !ok {
				return defect(ErrInconsistentState, "%s change references unknown unit %s", c.Kind, id)
			}
			if removed[id] {
				return defect(ErrInconsistentState, "%s change references removed unit %s", c.Kind, id)
			}
			if c.Kind == ChangeRemove {
				removed[id] = true
			}
		}
		switch c.Kind {
		case ChangeOwnership, ChangeBombing:
			if territories[c.Territory] == nil {
				return defect(ErrInconsistentState, "%s change references unknown territory %s", c.Kind, c.Territory)
			}
		case ChangeRetreat:
			if territories[c.To] == nil {
				return defect(ErrInconsistentState, "retreat to unknown territory %s", c.To)
			}
		}
	}

	for _, c := range cs {
		switch c.Kind {
		case ChangeDamage:
			for _, id := range c.UnitIDs {
				units[id].Damage = c.Damage
			}
		case ChangeRemove:
			for _, id := range c.UnitIDs {
				delete(units, id)
			}
		case ChangeSubmerge:
			for _, id := range c.UnitIDs {
				units[id].Submerged = true
			}
		case ChangeRetreat:
			for _, id := range c.UnitIDs {
				units[id].Territory = c.To
				units[id].Retreated = true
			}
		case ChangeCapture:
			for _, id := range c.UnitIDs {
				units[id].Owner = c.Owner
			}
		case ChangeOwnership:
			territories[c.Territory].Owner = c.Owner
		case ChangeBombing:
			territories[c.Territory].BombingDamage = c.Damage
		}
	}
	return nil
}
