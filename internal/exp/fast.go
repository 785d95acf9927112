package exp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/stream1972/prst/internal/arithmetic"
	"github.com/stream1972/prst/internal/input"
	"github.com/stream1972/prst/internal/logging"
	"github.com/stream1972/prst/internal/state"
)

// FastExp raises a small integer base to a large exponent by left-to-right
// binary exponentiation. The multiplication by the base on set exponent bits
// is fused into the squaring through the backend's mul-by-const slot, so
// every iteration costs a single transform round-trip.
type FastExp struct {
	baseTask

	x0   uint64
	exp  *big.Int
	file state.Store
	st   *state.State
}

// NewFastExp creates the task computing x0^exponent modulo the input. The
// base must fit the backend's mul-by-const slot.
//
// Parameters:
//   - in: The number under test; its value is the modulus.
//   - gw: The arithmetic context set up for in.
//   - file: Checkpoint store, or nil to run without persistence.
//   - logger: Destination for progress and diagnostics.
//   - x0: The small base.
//   - exponent: The exponent, at least 1.
//   - opts: Tuning options.
func NewFastExp(in *input.Number, gw arithmetic.Context, file state.Store, logger logging.Logger, x0 uint64, exponent *big.Int, opts Options) (*FastExp, error) {
	if x0 > gw.MaxMulByConst() {
		return nil, fmt.Errorf("exp: base %d exceeds mul-by-const limit %d", x0, gw.MaxMulByConst())
	}
	if exponent == nil || exponent.Sign() <= 0 {
		return nil, fmt.Errorf("exp: exponent must be positive")
	}
	t := &FastExp{x0: x0, exp: new(big.Int).Set(exponent), file: file}
	t.initBase(in, gw, logger, uint64(exponent.BitLen()-1), opts)
	if file != nil {
		st, err := file.ReadState()
		if err != nil {
			return nil, err
		}
		t.st = st
	}
	if t.st != nil {
		t.log.Info("restarting", logging.Float64("pct", t.percent(t.st.Iteration)))
	}
	if t.errorCheck {
		t.log.Info("max roundoff check enabled")
	}
	return t, nil
}

// Ensure FastExp implements the Task interface.
var _ Task = (*FastExp)(nil)

// Name identifies the strategy.
func (t *FastExp) Name() string { return "fast" }

// State returns the last committed state; after a successful Execute it
// holds the final residue.
func (t *FastExp) State() *state.State { return t.st }

// Execute runs the binary exponentiation loop from the last committed state.
func (t *FastExp) Execute(ctx context.Context) error {
	X := t.gw.New()
	var i uint64
	if t.st == nil {
		X.SetUint64(t.x0)
		t.gw.SetCarefulCount(startupCarefulMuls)
	} else {
		i = t.st.Iteration
		X.SetBig(t.st.X)
	}
	t.gw.SetMulByConst(t.x0)

	n := t.iterations
	for ; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("exp: canceled at iteration %d/%d: %w", i, n, err)
		}
		flags := arithmetic.MulByConstIf(t.exp.Bit(int(n-i-1)) == 1) |
			arithmetic.StartNextFFTIf(!t.isLast(i))
		if err := t.gw.Square(X, X, flags); err != nil {
			return fmt.Errorf("exp: squaring at iteration %d: %w", i, err)
		}
		if err := t.commit(i+1, X); err != nil {
			return err
		}
	}
	if t.st == nil || t.st.Iteration != n {
		if err := t.commit(n, X); err != nil {
			return err
		}
	}

	t.doneBase()
	return nil
}

// commit records the state at the checkpoint cadence and on the final
// iteration.
func (t *FastExp) commit(iter uint64, X arithmetic.Num) error {
	if iter%t.stateUpdatePeriod == 0 || iter == t.iterations {
		t.st = state.NewState(iter, X.Big())
		if t.file != nil {
			if err := t.file.WriteState(t.st); err != nil {
				return err
			}
			checkpointsTotal.WithLabelValues("working").Inc()
		}
	}
	t.reportProgress(iter)
	return nil
}

// Release frees the residues owned by the task. FastExp keeps its working
// residue local to Execute, so only the committed state remains.
func (t *FastExp) Release() {}
