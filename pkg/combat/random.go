package combat

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

// RandomSource supplies dice. Draw returns exactly count values in [0, sides).
// The annotation describes the roll for audit and replay logs. A remote
// implementation may block; it must honour ctx.
type RandomSource interface {
	Draw(ctx context.Context, sides, count int, annotation string) ([]int, error)
}

// Draw records one call made to a SeededSource.
type Draw struct {
	Annotation string `json:"annotation"`
	Sides      int    `json:"sides"`
	Values     []int  `json:"values"`
}

// SeededSource is a deterministic RandomSource. The same seed always
// produces the same sequence, which makes battles replayable.
type SeededSource struct {
	mu      sync.Mutex
	seed    uint64
	rng     *rand.Rand
	history []Draw
}

// NewSeededSource creates a source from a seed.
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Seed returns the seed the source was built from.
func (s *SeededSource) Seed() uint64 { return s.seed }

func (s *SeededSource) Draw(ctx context.Context, sides, count int, annotation string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sides <= 0 {
		return nil, fmt.Errorf("draw %q: sides must be positive, got %d", annotation, sides)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]int, count)
	for i := range values {
		values[i] = s.rng.IntN(sides)
	}
	s.history = append(s.history, Draw{Annotation: annotation, Sides: sides, Values: values})
	return values, nil
}

// History returns every draw made so far.
func (s *SeededSource) History() []Draw {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Draw, len(s.history))
	copy(out, s.history)
	return out
}

// ScriptedSource replays canned values in order. It fails once the script
// runs out, which makes unexpected draws visible in tests and replays.
type ScriptedSource struct {
	mu     sync.Mutex
	values []int
	Calls  []Draw
}

// NewScriptedSource creates a source that returns values in order.
func NewScriptedSource(values ...int) *ScriptedSource {
	return &ScriptedSource{values: values}
}

func (s *ScriptedSource) Draw(_ context.Context, sides, count int, annotation string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count > len(s.values) {
		return nil, fmt.Errorf("draw %q: script has %d values left, %d requested", annotation, len(s.values), count)
	}
	out := make([]int, count)
	copy(out, s.values[:count])
	s.values = s.values[count:]
	for _, v := range out {
		if v < 0 || v >= sides {
			return nil, fmt.Errorf("draw %q: scripted value %d outside [0, %d)", annotation, v, sides)
		}
	}
	s.Calls = append(s.Calls, Draw{Annotation: annotation, Sides: sides, Values: out})
	return out, nil
}

// Draws returns the number of values handed out so far.
func (s *ScriptedSource) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		n += len(c.Values)
	}
	return n
}

// drawExactly calls the source and checks the count it returned.
func drawExactly(ctx context.Context, src RandomSource, sides, count int, annotation string) ([]int, error) {
	if count == 0 {
		return nil, nil
	}
	values, err := src.Draw(ctx, sides, count, annotation)
	if err != nil {
		return nil, fmt.Errorf("draw %q: %w", annotation, err)
	}
	if len(values) != count {
		return nil, defect(ErrDrawCountMismatch, "%q asked for %d values, got %d", annotation, count, len(values))
	}
	return values, nil
}
