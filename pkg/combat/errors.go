package combat

import (
	"errors"
	"fmt"
)

// ErrProtocolDefect marks failures that can only come from a programming
// error in the engine or one of its collaborators. A battle that hits one is
// aborted and none of the round's changes are committed.
var ErrProtocolDefect = errors.New("protocol defect")

var (
	ErrDrawCountMismatch = fmt.Errorf("%w: random draw count mismatch", ErrProtocolDefect)
	ErrCasualtyCount     = fmt.Errorf("%w: casualty selection does not match hits", ErrProtocolDefect)
	ErrDuplicateUnit     = fmt.Errorf("%w: unit appears on both sides", ErrProtocolDefect)
	ErrInconsistentState = fmt.Errorf("%w: inconsistent battle state", ErrProtocolDefect)
)

// ErrBattleResolved is returned when a round is requested for a finished battle.
var ErrBattleResolved = errors.New("battle already resolved")

// ErrUnknownUnitType is returned when a unit references a type missing from the ruleset.
var ErrUnknownUnitType = errors.New("unknown unit type")

// IsDefect reports whether err is, or wraps, a protocol defect.
func IsDefect(err error) bool {
	return errors.Is(err, ErrProtocolDefect)
}

func defect(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
