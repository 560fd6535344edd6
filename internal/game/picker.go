// internal/game/picker.go
//
// Candidate selection for the engine.
//
// A Picker chooses the next guess from the half-open interval [lo, hi),
// never returning exclude. Two implementations:
//   - RandomPicker: uniform choice with iterative rejection of exclude.
//   - BisectPicker: midpoint choice, bounded by MaxBisectRounds.

package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// maxDraws bounds the rejection loop. Each draw is rejected with probability
// at most 1/2, so hitting the bound is practically impossible; the fallback
// keeps the loop finite regardless.
const maxDraws = 64

// Picker chooses a guess in [lo, hi) that is not exclude.
type Picker interface {
	Pick(lo, hi, exclude int) (int, error)
}

// Strategy names a Picker implementation.
type Strategy string

const (
	StrategyRandom Strategy = "random"
	StrategyBisect Strategy = "bisect"
)

// RandomPicker draws uniformly from the interval.
type RandomPicker struct {
	rng *rand.Rand
}

// NewRandomPicker returns a RandomPicker with a fixed seed.
// The same seed yields the same guess sequence for the same feedback.
func NewRandomPicker(seed uint64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// newEntropyPicker seeds a RandomPicker from crypto/rand.
func newEntropyPicker() *RandomPicker {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return NewRandomPicker(binary.LittleEndian.Uint64(b[:]))
}

// Pick implements Picker.
func (p *RandomPicker) Pick(lo, hi, exclude int) (int, error) {
	if err := checkInterval(lo, hi, exclude); err != nil {
		return 0, err
	}
	for i := 0; i < maxDraws; i++ {
		n := lo + p.rng.IntN(hi-lo)
		if n != exclude {
			return n, nil
		}
	}
	if lo != exclude {
		return lo, nil
	}
	return lo + 1, nil
}

// BisectPicker always guesses the middle of the interval.
type BisectPicker struct{}

// Pick implements Picker.
func (BisectPicker) Pick(lo, hi, exclude int) (int, error) {
	if err := checkInterval(lo, hi, exclude); err != nil {
		return 0, err
	}
	mid := lo + (hi-lo)/2
	if mid != exclude {
		return mid, nil
	}
	if mid+1 < hi {
		return mid + 1, nil
	}
	return mid - 1, nil
}

// NewPicker builds the Picker for a strategy name.
// An empty name selects StrategyRandom.
func NewPicker(s Strategy) (Picker, error) {
	switch s {
	case "", StrategyRandom:
		return newEntropyPicker(), nil
	case StrategyBisect:
		return BisectPicker{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", s)
	}
}

// checkInterval fails when [lo, hi) holds no value other than exclude.
func checkInterval(lo, hi, exclude int) error {
	if hi <= lo || (hi-lo == 1 && lo == exclude) {
		return fmt.Errorf("%w: [%d, %d) excluding %d", ErrExhaustedInterval, lo, hi, exclude)
	}
	return nil
}
