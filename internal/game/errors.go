package game

import "errors"

var (
	// ErrInvalidTarget is returned for a target outside [MinTarget, MaxTarget].
	ErrInvalidTarget = errors.New("target must be a number between 1 and 99")

	// ErrContradiction means the hint does not agree with the target.
	// Engine state is left untouched; the caller may retry with a truthful hint.
	ErrContradiction = errors.New("feedback contradicts the target")

	// ErrExhaustedInterval means no candidate is left to guess.
	// Truthful feedback can never produce it.
	ErrExhaustedInterval = errors.New("candidate interval exhausted")

	ErrSolved           = errors.New("round already solved")
	ErrInvalidDirection = errors.New("direction must be lower or greater")
)
