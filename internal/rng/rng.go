// Package rng provides the seeded pseudo-random source that drives every
// stochastic decision in a run. State is a single uint32 so it can be
// captured in a snapshot and restored to resume the identical sequence.
package rng

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

const zeroSeedReplacement uint32 = 7

// Deterministic is a xorshift32 generator. It is not safe for concurrent
// use; each engine owns its own instances.
type Deterministic struct {
	state uint32
}

// New seeds a generator. A seed that truncates to zero is remapped since
// xorshift never leaves the zero state.
func New(seed int64) *Deterministic {
	state := uint32(seed)
	if state == 0 {
		state = zeroSeedReplacement
	}
	return &Deterministic{state: state}
}

var _ dice.Roller = (*Deterministic)(nil)

func (r *Deterministic) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// NextFloat returns a value in [0, 1).
func (r *Deterministic) NextFloat() float64 {
	return float64(r.next()) / 4294967296.0
}

// NextInt returns a value in [0, n). It returns 0 when n <= 0.
func (r *Deterministic) NextInt(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.NextFloat() * float64(n))
}

// State returns the internal state for snapshots.
func (r *Deterministic) State() uint32 {
	return r.state
}

// SetState restores a state captured by State.
func (r *Deterministic) SetState(state uint32) {
	if state == 0 {
		state = zeroSeedReplacement
	}
	r.state = state
}

// Roll implements dice.Roller with a result in [1, size].
func (r *Deterministic) Roll(size int) (int, error) {
	if size <= 0 {
		return 0, errors.InvalidArgumentf("die size must be positive, got %d", size)
	}
	return r.NextInt(size) + 1, nil
}

// RollN implements dice.Roller.
func (r *Deterministic) RollN(count, size int) ([]int, error) {
	if count < 0 {
		return nil, errors.InvalidArgumentf("roll count must not be negative, got %d", count)
	}
	out := make([]int, count)
	for i := range out {
		v, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Shuffle returns a permuted copy of items using Fisher-Yates. The input
// slice is left untouched.
func Shuffle[T any](r *Deterministic, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.NextInt(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
