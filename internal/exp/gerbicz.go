package exp

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/stream1972/prst/internal/arithmetic"
	"github.com/stream1972/prst/internal/input"
	"github.com/stream1972/prst/internal/logging"
	"github.com/stream1972/prst/internal/state"
)

// ChecksPerPoint is the number of Gerbicz verifications scheduled per point
// when planning schedules externally.
const ChecksPerPoint = 1

// GerbiczParams picks the block parameters for n iterations: L is the
// snapshot stride, L2 = m·L the block length, maximizing L2 ≤ n over
// candidate strides up to sqrt(2n). The per-iteration cost weight log2(b) is
// normalized to 1 regardless of the base, equalizing L across bases.
func GerbiczParams(n uint64) (L, L2 uint64) {
	L = uint64(math.Sqrt(float64(n)))
	if L < 1 {
		L = 1
	}
	L2 = n - n%L
	for i := L + 1; i*i < 2*n; i++ {
		if L2 < n-n%i {
			L = i
			L2 = n - n%i
		}
	}
	return L, L2
}

// GerbiczCheckMultipointExp runs the multipoint schedule under the
// Gerbicz–Li error-checking protocol. Alongside the working residue X it
// maintains a check accumulator D that folds a snapshot of X every L
// iterations; at the end of each L2-iteration block the pair is reconciled
// against the recovery residue R through the careful arithmetic path. On a
// mismatch the task rolls back to R and signals a restart; on success R
// advances and becomes the new fallback.
//
// Two state streams are persisted: the recovery stream holds the last
// verified residue, the working stream the provisional (X, D) pair. On load,
// a working record outside [recovery, recovery+L2) is discarded; a record at
// exactly recovery+L2 is discarded too and that block is recomputed.
type GerbiczCheckMultipointExp struct {
	MultipointExp

	L  uint64
	L2 uint64

	fileRecovery  state.Store
	recovery      *state.State
	check         *state.CheckState
	cursor        uint64
	recoveryDirty bool

	R arithmetic.Num
	D arithmetic.Num

	// transform-count snapshot taken at the last verified state; the restart
	// path resets only the iteration cursor and does not roll the backend
	// back to it
	recoveryOp float64
}

// NewGerbiczCheckMultipointExp creates the checked task over the given point
// schedule, loading both state streams.
func NewGerbiczCheckMultipointExp(in *input.Number, gw arithmetic.Context, file, fileRecovery state.Store, logger logging.Logger, b uint64, points []uint64, x0 *big.Int, onPoint OnPoint, opts Options) (*GerbiczCheckMultipointExp, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if b < 2 {
		return nil, fmt.Errorf("exp: base must be at least 2, got %d", b)
	}
	if x0 == nil || x0.Sign() <= 0 {
		return nil, fmt.Errorf("exp: starting residue must be positive")
	}
	t := &GerbiczCheckMultipointExp{fileRecovery: fileRecovery}
	t.b = b
	t.points = append([]uint64(nil), points...)
	t.x0 = new(big.Int).Set(x0)
	t.file = file
	t.onPoint = onPoint
	t.initBase(in, gw, logger, points[len(points)-1], opts)
	t.L, t.L2 = GerbiczParams(t.iterations)
	// each iteration costs ~log2(b) multiplications
	t.stateUpdatePeriod = uint64(float64(t.stateUpdatePeriod) / math.Log2(float64(b)))
	if t.stateUpdatePeriod == 0 {
		t.stateUpdatePeriod = 1
	}

	if file != nil {
		check, err := file.ReadCheckState()
		if err != nil {
			return nil, err
		}
		t.check = check
	}
	var rec *state.State
	if fileRecovery != nil {
		var err error
		if rec, err = fileRecovery.ReadState(); err != nil {
			return nil, err
		}
	}
	if rec == nil {
		rec = state.NewState(0, t.x0)
	}
	t.initState(rec)
	return t, nil
}

// initState installs the recovery state and validates the working record
// against it, discarding the working record when it falls outside the
// current block.
func (t *GerbiczCheckMultipointExp) initState(rec *state.State) {
	if t.recovery == nil {
		t.log.Info("Gerbicz check enabled",
			logging.Uint64("L", t.L),
			logging.Uint64("m", t.L2/t.L),
		)
		if t.errorCheck {
			t.log.Info("max roundoff check enabled")
		}
	}
	t.recovery = rec
	if t.check == nil || t.check.Iteration < rec.Iteration || t.check.Iteration >= rec.Iteration+t.L2 {
		t.check = nil
		t.cursor = rec.Iteration
	} else {
		t.cursor = t.check.Iteration
	}
	if t.cursor > 0 {
		t.log.Info("restarting", logging.Float64("pct", t.percent(t.cursor)))
	}
}

// Ensure GerbiczCheckMultipointExp implements the Task interface.
var _ Task = (*GerbiczCheckMultipointExp)(nil)

// Name identifies the strategy.
func (t *GerbiczCheckMultipointExp) Name() string { return "gerbicz" }

// State returns the recovery state: the last residue certified by a
// verification. After a successful Execute it holds the final residue.
func (t *GerbiczCheckMultipointExp) State() *state.State { return t.recovery }

// Params returns the block parameters (L, L2).
func (t *GerbiczCheckMultipointExp) Params() (uint64, uint64) { return t.L, t.L2 }

// Cost estimates the total multiplication count for the schedule, including
// snapshot folds and verification blocks.
func (t *GerbiczCheckMultipointExp) Cost() float64 {
	n := float64(t.iterations)
	L, L2 := float64(t.L), float64(t.L2)
	if t.b == 2 {
		return n + n/L + n/L2*L
	}
	log2b := math.Log2(float64(t.b))
	W := windowWidth(int(log2b*L), t.opts.Window, t.opts.MaxTableSize)
	table := float64(int(1) << (W - 1))
	perStep := table + log2b*L*(1+1/float64(W+1))
	return n/L + (n/L+n/L2)*perStep
}

// Release frees the residues owned by the task.
func (t *GerbiczCheckMultipointExp) Release() {
	t.recoveryOp = 0
	t.R = nil
	t.D = nil
	t.MultipointExp.Release()
}

// writeState persists the recovery stream when dirty.
func (t *GerbiczCheckMultipointExp) writeState() error {
	if t.fileRecovery != nil && t.recoveryDirty {
		if err := t.fileRecovery.WriteState(t.recovery); err != nil {
			return err
		}
		t.recoveryDirty = false
		checkpointsTotal.WithLabelValues("recovery").Inc()
	}
	return nil
}

// setCheckState commits the working (X, D) pair at iter unconditionally.
func (t *GerbiczCheckMultipointExp) setCheckState(iter uint64) error {
	t.check = state.NewCheckState(iter, t.X.Big(), t.D.Big())
	t.cursor = iter
	if err := t.writeState(); err != nil {
		return err
	}
	if t.file != nil {
		if err := t.file.WriteCheckState(t.check); err != nil {
			return err
		}
		checkpointsTotal.WithLabelValues("working").Inc()
	}
	return nil
}

// commitCheck records the working pair at the checkpoint cadence.
func (t *GerbiczCheckMultipointExp) commitCheck(ctx context.Context, iter uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("exp: canceled at iteration %d/%d: %w", iter, t.iterations, err)
	}
	t.cursor = iter
	if iter%t.stateUpdatePeriod == 0 {
		if err := t.setCheckState(iter); err != nil {
			return err
		}
	}
	t.reportProgress(iter)
	return nil
}

// setup lazily materializes the recovery residue.
func (t *GerbiczCheckMultipointExp) setup() {
	if t.R == nil {
		t.R = t.gw.New()
		t.R.SetBig(t.recovery.X)
	}
}

// Execute advances the residue through the point schedule in verified
// blocks. It returns an error matching ErrRestart when a verification fails;
// the in-memory state is already rolled back to the recovery residue.
func (t *GerbiczCheckMultipointExp) Execute(ctx context.Context) error {
	t.setup()
	t.X = t.gw.New()
	t.D = t.gw.New()

	var i uint64
	if t.check == nil {
		i = t.recovery.Iteration
		t.X.Set(t.R)
		t.D.Set(t.R)
	} else {
		i = t.check.Iteration
		t.X.SetBig(t.check.X)
		t.D.SetBig(t.check.D)
	}
	next := t.nextPointAfter(i)
	if i < startupCarefulMuls {
		t.gw.SetCarefulCount(int(startupCarefulMuls - i))
	}

	var exp *big.Int
	lastPower := uint64(0)
	for ; next < len(t.points); next++ {
		L := t.L
		L2 := t.L2
		for t.point(next)-t.recovery.Iteration < L2 && L > 1 {
			L /= 2
			L2 = L * L
			lastPower = 0
		}
		if i-t.recovery.Iteration > L2 {
			return fmt.Errorf("exp: working iteration %d ahead of block [%d, %d]", i, t.recovery.Iteration, t.recovery.Iteration+L2)
		}

		if t.b == 2 {
			for j := i - t.recovery.Iteration; j < L2; {
				flags := arithmetic.StartNextFFTIf(!t.isLast(i) && i+1 != t.point(next) && j+1 != L2)
				if err := t.gw.Square(t.X, t.X, flags); err != nil {
					return fmt.Errorf("exp: squaring at iteration %d: %w", i, err)
				}
				if j+1 != L2 && i+1 == t.point(next) {
					if err := t.setCheckState(i + 1); err != nil {
						return err
					}
					if t.onPoint != nil {
						t.onPoint(i + 1)
					}
					next++
				}
				if j+1 != L2 && (j+1)%L == 0 {
					if err := t.gw.Mul(t.D, t.X, t.D, arithmetic.FFTSource1|arithmetic.StartNextFFTIf(j+1+L != L2)); err != nil {
						return fmt.Errorf("exp: check fold at iteration %d: %w", i, err)
					}
				}
				j++
				i++
				if err := t.commitCheck(ctx, i); err != nil {
					return err
				}
			}
		} else {
			if (i-t.recovery.Iteration)%L != 0 {
				return fmt.Errorf("exp: working iteration %d not aligned to stride %d", i, L)
			}
			for j := i - t.recovery.Iteration; j < L2; {
				if lastPower != L {
					lastPower = L
					exp = powUint(t.b, L)
				}
				if err := t.slidingWindow(t.gw, exp); err != nil {
					return err
				}
				if j+L != L2 && i+L == t.point(next) {
					if err := t.setCheckState(i + L); err != nil {
						return err
					}
					if t.onPoint != nil {
						t.onPoint(i + L)
					}
					next++
				}
				if j+L != L2 {
					if err := t.gw.Mul(t.D, t.X, t.D, arithmetic.FFTSource1|arithmetic.StartNextFFTIf(j+L+L != L2)); err != nil {
						return fmt.Errorf("exp: check fold at iteration %d: %w", i, err)
					}
				}
				j += L
				i += L
				if err := t.commitCheck(ctx, i); err != nil {
					return err
				}
			}
		}

		ok, err := t.verifyBlock(i, L, &lastPower, &exp)
		if err != nil {
			return err
		}
		if !ok {
			gerbiczChecksTotal.WithLabelValues("failed").Inc()
			t.log.Error("Gerbicz check failed", nil, logging.Float64("pct", t.percent(i)))
			t.check = nil
			t.cursor = t.recovery.Iteration
			return fmt.Errorf("exp: gerbicz check failed at %.1f%%: %w", t.percent(i), ErrRestart)
		}

		gerbiczChecksTotal.WithLabelValues("verified").Inc()
		t.R.Set(t.X)
		t.D.Set(t.X)
		t.recovery = state.NewState(i, t.X.Big())
		t.recoveryDirty = true
		t.check = nil
		t.cursor = i
		if err := t.writeState(); err != nil {
			return err
		}
		t.recoveryOp = t.gw.FFTCount()
		t.restartCount = 0
		if i != t.point(next) {
			next--
			continue
		}

		if t.onPoint != nil {
			t.onPoint(i)
			t.lastWrite = time.Now()
		}
	}

	t.doneBase()
	return nil
}

// verifyBlock reconciles the block ending at iteration i: it recomputes
// D_pre^(b^L)·R through the careful arithmetic path and compares it against
// D_new = X·D_pre. On return, X again holds the block-end residue and D
// holds D_new.
func (t *GerbiczCheckMultipointExp) verifyBlock(i, L uint64, lastPower *uint64, exp **big.Int) (bool, error) {
	t.log.Debug("performing Gerbicz check", logging.Uint64("iteration", i))
	cg := t.gw.Carefully()

	T := t.gw.New()
	T.Set(t.D)
	// D becomes D_new = X_end · D_pre
	if err := cg.Mul(t.D, t.X, t.D, 0); err != nil {
		return false, fmt.Errorf("exp: gerbicz verify: %w", err)
	}
	// X takes the saved D_pre, T keeps the block-end residue
	T, t.X = t.X, T
	if t.b == 2 {
		for j := uint64(0); j < L; j++ {
			if err := cg.Square(t.X, t.X, 0); err != nil {
				return false, fmt.Errorf("exp: gerbicz verify: %w", err)
			}
		}
	} else {
		if *lastPower != L {
			*lastPower = L
			*exp = powUint(t.b, L)
		}
		if err := t.slidingWindow(cg, *exp); err != nil {
			return false, err
		}
	}
	if err := cg.Mul(t.X, t.R, t.X, 0); err != nil {
		return false, fmt.Errorf("exp: gerbicz verify: %w", err)
	}
	if err := cg.Sub(t.X, t.X, t.D); err != nil {
		return false, fmt.Errorf("exp: gerbicz verify: %w", err)
	}
	// X back to the block-end residue, T holds the difference
	T, t.X = t.X, T
	return T.IsZero() && !t.D.IsZero(), nil
}
