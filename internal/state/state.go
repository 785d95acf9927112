// Package state persists checkpoint records for exponentiation tasks.
//
// A task maintains up to two parallel streams: the working stream, written on
// the normal checkpoint cadence, and the recovery stream, written only after
// an error-check verification certifies the residue. Each record on disk is
// self-describing (magic, version, kind) so a loader can reject files written
// by a different scheme instead of resuming from garbage.
package state

import (
	"math/big"
)

// Record kinds. A reader encountering an unexpected kind treats the file as
// absent rather than failing the run.
const (
	KindState      = 1 // iteration + residue
	KindCheckState = 2 // iteration + residue + check accumulator
)

// State is the residue X at a committed iteration. Unchecked tasks write it
// at scheduled points and on the checkpoint cadence; a Gerbicz task uses it
// as the recovery record, whose iteration is the end of the last verified
// block (or 0).
type State struct {
	Iteration uint64
	X         *big.Int
}

// NewState creates a recovery record.
func NewState(iteration uint64, x *big.Int) *State {
	return &State{Iteration: iteration, X: new(big.Int).Set(x)}
}

// CheckState is a working record for Gerbicz-checked runs, carrying both the
// main residue X and the check accumulator D.
type CheckState struct {
	Iteration uint64
	X         *big.Int
	D         *big.Int
}

// NewCheckState creates a working record.
func NewCheckState(iteration uint64, x, d *big.Int) *CheckState {
	return &CheckState{
		Iteration: iteration,
		X:         new(big.Int).Set(x),
		D:         new(big.Int).Set(d),
	}
}

// TaskState is an iteration-only cursor separating "definitively proven"
// progress from provisionally computed work. It is never persisted; crash
// recovery derives it from the recovery stream.
type TaskState struct {
	Iteration uint64
}
