// internal/game/types.go
//
// Core type definitions for the guessing engine.
// Defines:
//   - Direction: the human's hint relative to the current guess.
//   - State: lifecycle of a single round (playing → solved).
//   - Result: what a feedback step hands back to the caller.
//   - Snapshot: a value copy of the engine for JSON and logging.

package game

// Numeric domain of the game. Targets live in [MinTarget, MaxTarget];
// the candidate interval is half-open and never reaches past UpperLimit.
const (
	MinTarget  = 1
	MaxTarget  = 99
	UpperLimit = 100

	// MaxBisectRounds is ⌈log2(99)⌉, the worst case for BisectPicker.
	MaxBisectRounds = 7
)

// Direction is the human's claim about where the target lies
// relative to the current guess.
//   - "lower":   the target is smaller than the current guess.
//   - "greater": the target is larger than the current guess.
type Direction string

const (
	DirectionLower   Direction = "lower"
	DirectionGreater Direction = "greater"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionLower || d == DirectionGreater
}

// State is the coarse lifecycle of an engine.
type State string

const (
	StatePlaying State = "playing"
	StateSolved  State = "solved"
)

// Result is returned by Engine.Next.
type Result struct {
	Guess  int  // The newly produced guess.
	Rounds int  // len(history) after this step.
	Solved bool // True if Guess equals the target.
}

// Snapshot is a copy of the engine's observable state.
type Snapshot struct {
	ID      string `json:"roundId"`
	Lower   int    `json:"lower"`
	Upper   int    `json:"upper"`
	Guess   int    `json:"guess"`
	Rounds  int    `json:"rounds"`
	History []int  `json:"history"`
	State   State  `json:"state"`
}
