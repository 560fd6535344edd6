package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomPickerStaysInInterval(t *testing.T) {
	p := NewRandomPicker(1)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		n, err := p.Pick(10, 15, 12)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 10)
		require.Less(t, n, 15)
		require.NotEqual(t, 12, n)
		seen[n] = true
	}
	require.Len(t, seen, 4, "every candidate should come up")
}

func TestRandomPickerSingleCandidate(t *testing.T) {
	p := NewRandomPicker(3)
	n, err := p.Pick(7, 8, 6)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	n, err = p.Pick(7, 9, 7)
	require.NoError(t, err)
	require.Equal(t, 8, n)
}

func TestPickersReportExhaustedInterval(t *testing.T) {
	for _, p := range []Picker{NewRandomPicker(9), BisectPicker{}} {
		_, err := p.Pick(5, 5, 0)
		require.ErrorIs(t, err, ErrExhaustedInterval)

		_, err = p.Pick(6, 5, 0)
		require.ErrorIs(t, err, ErrExhaustedInterval)

		_, err = p.Pick(5, 6, 5)
		require.ErrorIs(t, err, ErrExhaustedInterval)
	}
}

func TestBisectPicker(t *testing.T) {
	var p BisectPicker
	cases := []struct {
		lo, hi, exclude, want int
	}{
		{1, 100, 0, 50},
		{1, 100, 50, 51},
		{1, 50, 50, 25},
		{51, 100, 50, 75},
		{4, 6, 5, 4},
		{4, 5, 3, 4},
	}
	for _, c := range cases {
		got, err := p.Pick(c.lo, c.hi, c.exclude)
		require.NoError(t, err)
		require.Equal(t, c.want, got, "Pick(%d, %d, %d)", c.lo, c.hi, c.exclude)
	}
}

func TestNewPicker(t *testing.T) {
	p, err := NewPicker("")
	require.NoError(t, err)
	require.IsType(t, &RandomPicker{}, p)

	p, err = NewPicker(StrategyBisect)
	require.NoError(t, err)
	require.IsType(t, BisectPicker{}, p)

	_, err = NewPicker("psychic")
	require.Error(t, err)
}
