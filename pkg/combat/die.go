package combat

import "fmt"

// DieType is the outcome of a single die.
type DieType int

const (
	Miss DieType = iota
	Hit
	// Ignored marks extra dice that cannot add hits, such as the discarded
	// dice of a keep-best unit.
	Ignored
)

func (t DieType) String() string {
	switch t {
	case Hit:
		return "hit"
	case Ignored:
		return "ignored"
	default:
		return "miss"
	}
}

// MaxDieValue bounds Rolled and HitAt for compression.
const MaxDieValue = 254

// Die is one resolved roll. Values are zero based; the die hit when
// Rolled < HitAt. Dice are values and never change once made.
type Die struct {
	Rolled int     `json:"rolled"`
	HitAt  int     `json:"hit_at"`
	Type   DieType `json:"type"`
}

// NewDie classifies a rolled value against its threshold.
func NewDie(rolled, hitAt int) Die {
	t := Miss
	if rolled < hitAt {
		t = Hit
	}
	return Die{Rolled: rolled, HitAt: hitAt, Type: t}
}

func (d Die) String() string {
	return fmt.Sprintf("%d/%d %s", d.Rolled, d.HitAt, d.Type)
}

// Compress packs the die into one integer: the rolled value in bits 0-7,
// the threshold in bits 8-15 and the outcome in bits 16-23.
func (d Die) Compress() uint32 {
	return uint32(d.Rolled&0xFF) | uint32(d.HitAt&0xFF)<<8 | uint32(d.Type&0xFF)<<16
}

// DecompressDie is the exact inverse of Die.Compress.
func DecompressDie(v uint32) Die {
	return Die{
		Rolled: int(v & 0xFF),
		HitAt:  int(v&0xFF00) >> 8,
		Type:   DieType(v&0xFF0000) >> 16,
	}
}

// DiceRoll is the ordered dice and hit count of one resolution call.
type DiceRoll struct {
	Player     Player `json:"player"`
	Annotation string `json:"annotation"`
	Dice       []Die  `json:"dice"`
	Hits       int    `json:"hits"`
}

// Compressed returns the packed form of every die, in order.
func (r DiceRoll) Compressed() []uint32 {
	out := make([]uint32, len(r.Dice))
	for i, d := range r.Dice {
		out[i] = d.Compress()
	}
	return out
}

// DecompressDiceRoll rebuilds a roll from packed dice. The hit count is
// supplied rather than recounted because low-luck rolls score hits that
// have no die.
func DecompressDiceRoll(player Player, annotation string, packed []uint32, hits int) DiceRoll {
	dice := make([]Die, len(packed))
	for i, v := range packed {
		dice[i] = DecompressDie(v)
	}
	return DiceRoll{Player: player, Annotation: annotation, Dice: dice, Hits: hits}
}
