// Package exp implements the exponentiation core: iterated modular squarings
// and multiplications of a residue, orchestrated across checkpoints and
// protected against transient hardware errors by the Gerbicz–Li protocol.
// This file contains configuration options for exponentiation tasks.
package exp

// Options configures an exponentiation task.
type Options struct {
	// StateUpdatePeriod is the number of iterations between checkpoint
	// commits. If 0, MulsPerStateUpdate is used. Tasks whose iterations cost
	// more than one multiplication scale this down internally.
	StateUpdatePeriod uint64
	// ErrorCheckNear enables the per-multiplication roundoff check when the
	// backend reports the transform is near its reliability limit.
	// ErrorCheckForced takes precedence over it.
	ErrorCheckNear bool
	// ErrorCheckForced unconditionally enables the per-multiplication
	// roundoff check.
	ErrorCheckForced bool
	// Window caps the sliding-window width W. If 0, the width is chosen
	// purely by the cost model.
	Window int
	// MaxTableSize caps the odd-power table: the chosen W satisfies
	// 2^(W+1) ≤ MaxTableSize. If 0, no cap applies.
	MaxTableSize int
	// MaxRestarts is the number of consecutive restarts tolerated before the
	// arithmetic context is re-initialized. If 0, DefaultMaxRestarts is used.
	MaxRestarts int
}

// normalizeOptions returns a copy of opts with default values filled in for
// zero values, ensuring consistent handling across all task implementations.
func normalizeOptions(opts Options) Options {
	normalized := opts
	if normalized.StateUpdatePeriod == 0 {
		normalized.StateUpdatePeriod = MulsPerStateUpdate
	}
	if normalized.MaxRestarts == 0 {
		normalized.MaxRestarts = DefaultMaxRestarts
	}
	return normalized
}
