// internal/game/engine.go
//
// Core guessing engine for a single round.
// Responsibilities:
//   - Start a round on [1, 100) with a first guess that is never the target.
//   - Reject hints that contradict the target without touching state.
//   - Narrow the interval from "lower"/"greater" hints and pick the next guess.
//   - Track state transitions: playing → solved.
//
// Notes:
//   - The engine never stores the target. Callers pass it to New and to every
//     Next call; whoever holds the secret is the trust boundary.
//   - An Engine is not safe for concurrent use. One engine per round.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Engine holds the state of one round.
type Engine struct {
	id      string
	lower   int   // inclusive
	upper   int   // exclusive
	current int   // last guess
	history []int // chronological
	state   State
	picker  Picker
}

// Option configures New.
type Option func(*Engine)

// WithPicker overrides the candidate picker. The default is a RandomPicker
// seeded from crypto/rand.
func WithPicker(p Picker) Option {
	return func(e *Engine) { e.picker = p }
}

// WithSeed uses a RandomPicker with the given seed.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.picker = NewRandomPicker(seed) }
}

// WithID sets the round identifier instead of generating one.
func WithID(id string) Option {
	return func(e *Engine) { e.id = id }
}

// New starts a round for target.
// Returns ErrInvalidTarget if target is outside [MinTarget, MaxTarget].
func New(target int, opts ...Option) (*Engine, error) {
	if err := validTarget(target); err != nil {
		return nil, err
	}
	e := &Engine{
		lower: MinTarget,
		upper: UpperLimit,
		state: StatePlaying,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.id == "" {
		e.id = NewID()
	}
	if e.picker == nil {
		e.picker = newEntropyPicker()
	}

	// Excluding the target keeps the first round from being a free win.
	g, err := e.picker.Pick(e.lower, e.upper, target)
	if err != nil {
		return nil, err
	}
	e.current = g
	e.history = []int{g}
	return e, nil
}

// Next applies a hint and produces the next guess.
//
// Validation order:
//   - Engine must not be solved (ErrSolved).
//   - target must be in range (ErrInvalidTarget) and dir known (ErrInvalidDirection).
//   - dir must agree with target (ErrContradiction).
//
// On any error the engine is unchanged.
func (e *Engine) Next(dir Direction, target int) (Result, error) {
	if e.state == StateSolved {
		return Result{}, ErrSolved
	}
	if err := validTarget(target); err != nil {
		return Result{}, err
	}
	if !dir.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	if contradicts(dir, e.current, target) {
		return Result{}, fmt.Errorf("%w: %s than %d", ErrContradiction, dir, e.current)
	}

	lo, hi := e.lower, e.upper
	if dir == DirectionLower {
		hi = e.current
	} else {
		lo = e.current + 1
	}

	g, err := e.picker.Pick(lo, hi, e.current)
	if err != nil {
		return Result{}, err
	}

	e.lower, e.upper = lo, hi
	e.current = g
	e.history = append(e.history, g)
	if g == target {
		e.state = StateSolved
	}
	return Result{Guess: g, Rounds: len(e.history), Solved: e.state == StateSolved}, nil
}

// contradicts reports whether dir is a lie about target.
// When guess equals target neither hint is true.
func contradicts(dir Direction, guess, target int) bool {
	switch dir {
	case DirectionLower:
		return guess <= target
	case DirectionGreater:
		return guess >= target
	}
	return true
}

func (e *Engine) ID() string                 { return e.id }
func (e *Engine) Current() int               { return e.current }
func (e *Engine) Rounds() int                { return len(e.history) }
func (e *Engine) State() State               { return e.state }
func (e *Engine) Bounds() (lower, upper int) { return e.lower, e.upper }

// History returns the guesses so far, oldest first.
func (e *Engine) History() []int {
	return append([]int(nil), e.history...)
}

// Snapshot copies the observable state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		ID:      e.id,
		Lower:   e.lower,
		Upper:   e.upper,
		Guess:   e.current,
		Rounds:  len(e.history),
		History: e.History(),
		State:   e.state,
	}
}

// ParseTarget converts user text into a target.
// Accepts one or two decimal digits in [MinTarget, MaxTarget], surrounding
// whitespace ignored.
func ParseTarget(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	if err := validTarget(n); err != nil {
		return 0, err
	}
	return n, nil
}

func validTarget(n int) error {
	if n < MinTarget || n > MaxTarget {
		return fmt.Errorf("%w: got %d", ErrInvalidTarget, n)
	}
	return nil
}

// NewID returns a compact 16‑hex‑char round identifier.
func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
