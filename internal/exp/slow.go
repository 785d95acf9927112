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

// SlowExp raises an arbitrary residue base to a large exponent by
// left-to-right binary exponentiation. The base does not fit the
// mul-by-const slot, so set exponent bits cost an explicit extra
// multiplication; each bit averages 1.5 transform round-trips and the
// checkpoint cadence is scaled accordingly.
type SlowExp struct {
	baseTask

	x0   *big.Int
	exp  *big.Int
	file state.Store
	st   *state.State
}

// NewSlowExp creates the task computing x0^exponent modulo the input.
func NewSlowExp(in *input.Number, gw arithmetic.Context, file state.Store, logger logging.Logger, x0 *big.Int, exponent *big.Int, opts Options) (*SlowExp, error) {
	if x0 == nil || x0.Sign() <= 0 {
		return nil, fmt.Errorf("exp: base must be positive")
	}
	if exponent == nil || exponent.Sign() <= 0 {
		return nil, fmt.Errorf("exp: exponent must be positive")
	}
	t := &SlowExp{x0: new(big.Int).Set(x0), exp: new(big.Int).Set(exponent), file: file}
	t.initBase(in, gw, logger, uint64(exponent.BitLen()-1), opts)
	t.stateUpdatePeriod = uint64(float64(t.stateUpdatePeriod) / 1.5)
	if t.stateUpdatePeriod == 0 {
		t.stateUpdatePeriod = 1
	}
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
	return t, nil
}

// Ensure SlowExp implements the Task interface.
var _ Task = (*SlowExp)(nil)

// Name identifies the strategy.
func (t *SlowExp) Name() string { return "slow" }

// State returns the last committed state; after a successful Execute it
// holds the final residue.
func (t *SlowExp) State() *state.State { return t.st }

// Execute runs the binary exponentiation loop from the last committed state.
func (t *SlowExp) Execute(ctx context.Context) error {
	X := t.gw.New()
	X0 := t.gw.New()
	X0.SetBig(t.x0)
	var i uint64
	if t.st == nil {
		X.Set(X0)
		t.gw.SetCarefulCount(startupCarefulMuls)
	} else {
		i = t.st.Iteration
		X.SetBig(t.st.X)
	}

	n := t.iterations
	for ; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("exp: canceled at iteration %d/%d: %w", i, n, err)
		}
		bit := t.exp.Bit(int(n-i-1)) == 1
		if err := t.gw.Square(X, X, arithmetic.StartNextFFTIf(!t.isLast(i) || bit)); err != nil {
			return fmt.Errorf("exp: squaring at iteration %d: %w", i, err)
		}
		if bit {
			if err := t.gw.Mul(X, X, X0, arithmetic.StartNextFFTIf(!t.isLast(i))); err != nil {
				return fmt.Errorf("exp: multiplying at iteration %d: %w", i, err)
			}
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

func (t *SlowExp) commit(iter uint64, X arithmetic.Num) error {
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

// Release frees the residues owned by the task.
func (t *SlowExp) Release() {}
