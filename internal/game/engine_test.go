package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// truthful returns the honest hint for guess relative to target.
func truthful(guess, target int) Direction {
	if guess > target {
		return DirectionLower
	}
	return DirectionGreater
}

// play drives e to completion with honest hints and checks the interval
// invariants after every step. It returns the number of rounds needed.
func play(t *testing.T, e *Engine, target int) int {
	t.Helper()
	for e.Current() != target {
		lo, hi := e.Bounds()
		width := hi - lo

		res, err := e.Next(truthful(e.Current(), target), target)
		require.NoError(t, err)

		lo, hi = e.Bounds()
		require.GreaterOrEqual(t, lo, MinTarget)
		require.LessOrEqual(t, hi, UpperLimit)
		require.GreaterOrEqual(t, res.Guess, lo)
		require.Less(t, res.Guess, hi)
		require.Less(t, hi-lo, width, "interval must shrink")
		require.LessOrEqual(t, lo, target)
		require.Greater(t, hi, target)
		require.Equal(t, res.Guess == target, res.Solved)
		require.LessOrEqual(t, res.Rounds, MaxTarget)
	}
	require.Equal(t, StateSolved, e.State())
	return e.Rounds()
}

func requireNoRepeats(t *testing.T, history []int) {
	t.Helper()
	seen := make(map[int]bool, len(history))
	for _, g := range history {
		require.False(t, seen[g], "guess %d repeated in %v", g, history)
		seen[g] = true
	}
}

func TestBisectFindsEveryTargetWithinBound(t *testing.T) {
	for target := MinTarget; target <= MaxTarget; target++ {
		e, err := New(target, WithPicker(BisectPicker{}))
		require.NoError(t, err)
		rounds := play(t, e, target)
		require.LessOrEqual(t, rounds, MaxBisectRounds, "target %d", target)
		requireNoRepeats(t, e.History())
	}
}

func TestRandomFindsEveryTarget(t *testing.T) {
	for seed := uint64(0); seed < 5; seed++ {
		for target := MinTarget; target <= MaxTarget; target++ {
			e, err := New(target, WithSeed(seed*1000+uint64(target)))
			require.NoError(t, err)
			play(t, e, target)
			requireNoRepeats(t, e.History())
		}
	}
}

func TestFirstGuessExcludesTarget(t *testing.T) {
	for i := 0; i < 500; i++ {
		e, err := New(42)
		require.NoError(t, err)
		require.NotEqual(t, 42, e.Current())
		require.Equal(t, []int{e.Current()}, e.History())
		require.Equal(t, StatePlaying, e.State())
	}

	// The midpoint of [1, 100) is 50; bisect must step off it.
	e, err := New(50, WithPicker(BisectPicker{}))
	require.NoError(t, err)
	require.Equal(t, 51, e.Current())
}

func TestContradictionLeavesStateUnchanged(t *testing.T) {
	e, err := New(70, WithPicker(BisectPicker{}))
	require.NoError(t, err)
	require.Equal(t, 50, e.Current())

	before := e.Snapshot()
	_, err = e.Next(DirectionLower, 70)
	require.ErrorIs(t, err, ErrContradiction)
	require.Equal(t, before, e.Snapshot())

	// The retry with the truthful hint goes through.
	res, err := e.Next(DirectionGreater, 70)
	require.NoError(t, err)
	require.Equal(t, 2, res.Rounds)
	lo, hi := e.Bounds()
	require.Equal(t, 51, lo)
	require.Equal(t, 100, hi)
}

func TestContradictionGreater(t *testing.T) {
	e, err := New(10, WithPicker(BisectPicker{}))
	require.NoError(t, err)
	_, err = e.Next(DirectionGreater, 10)
	require.ErrorIs(t, err, ErrContradiction)
	require.Equal(t, 1, e.Rounds())
}

func TestEndToEndTarget60(t *testing.T) {
	const target = 60
	e, err := New(target, WithPicker(BisectPicker{}))
	require.NoError(t, err)
	require.NotEqual(t, target, e.Current())
	require.GreaterOrEqual(t, e.Current(), 1)
	require.Less(t, e.Current(), 100)

	var last Result
	for e.State() != StateSolved {
		last, err = e.Next(truthful(e.Current(), target), target)
		require.NoError(t, err)
		lo, hi := e.Bounds()
		require.LessOrEqual(t, lo, target)
		require.Greater(t, hi, target)
	}
	require.True(t, last.Solved)
	require.Equal(t, target, last.Guess)
	require.LessOrEqual(t, last.Rounds, MaxBisectRounds)
}

func TestNextAfterSolved(t *testing.T) {
	e, err := New(1, WithPicker(BisectPicker{}))
	require.NoError(t, err)
	play(t, e, 1)

	_, err = e.Next(DirectionLower, 1)
	require.ErrorIs(t, err, ErrSolved)
}

func TestNextValidatesInput(t *testing.T) {
	e, err := New(30, WithPicker(BisectPicker{}))
	require.NoError(t, err)

	_, err = e.Next("sideways", 30)
	require.ErrorIs(t, err, ErrInvalidDirection)

	_, err = e.Next(DirectionLower, 0)
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = e.Next(DirectionLower, 100)
	require.ErrorIs(t, err, ErrInvalidTarget)

	require.Equal(t, 1, e.Rounds())
}

func TestNewRejectsInvalidTarget(t *testing.T) {
	for _, n := range []int{-5, 0, 100, 1000} {
		_, err := New(n)
		require.ErrorIs(t, err, ErrInvalidTarget, "target %d", n)
	}
}

func TestEngineOptions(t *testing.T) {
	e, err := New(5, WithID("abc"), WithSeed(7))
	require.NoError(t, err)
	require.Equal(t, "abc", e.ID())

	again, err := New(5, WithID("abc"), WithSeed(7))
	require.NoError(t, err)
	require.Equal(t, e.Current(), again.Current())

	fresh, err := New(5)
	require.NoError(t, err)
	require.Len(t, fresh.ID(), 16)
}

func TestHistoryIsACopy(t *testing.T) {
	e, err := New(80, WithPicker(BisectPicker{}))
	require.NoError(t, err)
	h := e.History()
	h[0] = -1
	require.Equal(t, 50, e.History()[0])
}

// failingPicker lets a test observe the engine's error path on Pick.
type failingPicker struct {
	calls int
}

func (p *failingPicker) Pick(lo, hi, exclude int) (int, error) {
	p.calls++
	if p.calls > 1 {
		return 0, ErrExhaustedInterval
	}
	return 50, nil
}

func TestPickerErrorLeavesStateUnchanged(t *testing.T) {
	e, err := New(20, WithPicker(&failingPicker{}))
	require.NoError(t, err)
	before := e.Snapshot()

	_, err = e.Next(DirectionLower, 20)
	require.True(t, errors.Is(err, ErrExhaustedInterval))
	require.Equal(t, before, e.Snapshot())
}

func TestParseTarget(t *testing.T) {
	for in, want := range map[string]int{"1": 1, "42": 42, " 99 ": 99, "07": 7} {
		got, err := ParseTarget(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	for _, in := range []string{"", "0", "00", "100", "-1", "+5", "abc", "4x", "1.5"} {
		_, err := ParseTarget(in)
		require.ErrorIs(t, err, ErrInvalidTarget, in)
	}
}
