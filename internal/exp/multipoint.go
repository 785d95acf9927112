package exp

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/stream1972/prst/internal/arithmetic"
	"github.com/stream1972/prst/internal/input"
	"github.com/stream1972/prst/internal/logging"
	"github.com/stream1972/prst/internal/state"
)

// OnPoint is invoked at each scheduled point with the iteration just
// committed. Callers use it for residue reporting or proof-stream emission.
type OnPoint func(iteration uint64)

// MultipointExp iterates X ← X^b between a strictly increasing schedule of
// iteration indices ("points"), committing a checkpoint and invoking a
// callback at each. For b = 2 each iteration is a single squaring; for other
// bases the distance to the next point is covered by one sliding-window
// exponentiation by b^distance.
type MultipointExp struct {
	baseTask

	b      uint64
	points []uint64
	x0     *big.Int
	file   state.Store
	st     *state.State

	onPoint   OnPoint
	lastWrite time.Time

	// residues owned during execute
	X arithmetic.Num
	U []arithmetic.Num
}

// NewMultipointExp creates the task advancing the starting residue x0 by
// points[len-1] iterations of exponentiation by b, stopping at each point.
func NewMultipointExp(in *input.Number, gw arithmetic.Context, file state.Store, logger logging.Logger, b uint64, points []uint64, x0 *big.Int, onPoint OnPoint, opts Options) (*MultipointExp, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if b < 2 {
		return nil, fmt.Errorf("exp: base must be at least 2, got %d", b)
	}
	if x0 == nil || x0.Sign() <= 0 {
		return nil, fmt.Errorf("exp: starting residue must be positive")
	}
	t := &MultipointExp{
		b:       b,
		points:  append([]uint64(nil), points...),
		x0:      new(big.Int).Set(x0),
		file:    file,
		onPoint: onPoint,
	}
	t.initBase(in, gw, logger, points[len(points)-1], opts)
	if file != nil {
		st, err := file.ReadState()
		if err != nil {
			return nil, err
		}
		t.st = st
	}
	if t.st != nil && t.st.Iteration > 0 {
		t.log.Info("restarting", logging.Float64("pct", t.percent(t.st.Iteration)))
	}
	if t.errorCheck {
		t.log.Info("max roundoff check enabled")
	}
	return t, nil
}

func validatePoints(points []uint64) error {
	if len(points) == 0 {
		return fmt.Errorf("exp: point schedule is empty")
	}
	prev := uint64(0)
	for i, p := range points {
		if p == 0 || (i > 0 && p <= prev) {
			return fmt.Errorf("exp: point schedule must be strictly increasing, got %v", points)
		}
		prev = p
	}
	return nil
}

// Ensure MultipointExp implements the Task interface.
var _ Task = (*MultipointExp)(nil)

// Name identifies the strategy.
func (t *MultipointExp) Name() string { return "multipoint" }

// State returns the last committed state; after a successful Execute it
// holds the residue at the final point.
func (t *MultipointExp) State() *state.State { return t.st }

// InitState seeds the task with an explicit state, overriding anything read
// from the checkpoint file.
func (t *MultipointExp) InitState(st *state.State) {
	t.st = st
	if st != nil && st.Iteration > 0 {
		t.log.Info("restarting", logging.Float64("pct", t.percent(st.Iteration)))
	}
}

// Release frees the residues owned by the task.
func (t *MultipointExp) Release() {
	t.X = nil
	t.U = nil
}

// point returns the point at idx, or a sentinel beyond the schedule when idx
// is out of range.
func (t *MultipointExp) point(idx int) uint64 {
	if idx < len(t.points) {
		return t.points[idx]
	}
	return t.iterations + 1
}

// nextPointAfter returns the index of the first point beyond iteration i.
func (t *MultipointExp) nextPointAfter(i uint64) int {
	next := 0
	for next < len(t.points) && i >= t.points[next] {
		next++
	}
	return next
}

// Execute advances the residue through the point schedule.
func (t *MultipointExp) Execute(ctx context.Context) error {
	t.X = t.gw.New()
	if t.st == nil {
		t.st = state.NewState(0, t.x0)
	}
	i := t.st.Iteration
	t.X.SetBig(t.st.X)
	next := t.nextPointAfter(i)
	if i < startupCarefulMuls {
		t.gw.SetCarefulCount(int(startupCarefulMuls - i))
	}

	var exp *big.Int
	lastPower := uint64(0)
	for ; next < len(t.points); next++ {
		if t.b == 2 {
			for ; i < t.points[next]; i++ {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("exp: canceled at iteration %d/%d: %w", i, t.iterations, err)
				}
				flags := arithmetic.StartNextFFTIf(!t.isLast(i) && i+1 != t.points[next])
				if err := t.gw.Square(t.X, t.X, flags); err != nil {
					return fmt.Errorf("exp: squaring at iteration %d: %w", i, err)
				}
				if err := t.commit(i + 1); err != nil {
					return err
				}
			}
		} else {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("exp: canceled at iteration %d/%d: %w", i, t.iterations, err)
			}
			if lastPower != t.points[next]-i {
				lastPower = t.points[next] - i
				exp = powUint(t.b, lastPower)
			}
			if err := t.slidingWindow(t.gw, exp); err != nil {
				return err
			}
			i = t.points[next]
		}

		if t.st == nil || t.st.Iteration != i {
			if err := t.setState(i); err != nil {
				return err
			}
		}
		if t.onPoint != nil {
			t.onPoint(i)
			t.lastWrite = time.Now()
		}
	}

	t.doneBase()
	return nil
}

// commit records the working state at the checkpoint cadence.
func (t *MultipointExp) commit(iter uint64) error {
	if iter%t.stateUpdatePeriod == 0 {
		if err := t.setState(iter); err != nil {
			return err
		}
	}
	t.reportProgress(iter)
	return nil
}

// setState commits the residue at iter unconditionally. The residue must not
// be in transform domain.
func (t *MultipointExp) setState(iter uint64) error {
	t.st = state.NewState(iter, t.X.Big())
	if t.file != nil {
		if err := t.file.WriteState(t.st); err != nil {
			return err
		}
		checkpointsTotal.WithLabelValues("working").Inc()
	}
	t.reportProgress(iter)
	return nil
}

// powUint returns b^k as an arbitrary-precision integer.
func powUint(b, k uint64) *big.Int {
	return new(big.Int).Exp(new(big.Int).SetUint64(b), new(big.Int).SetUint64(k), nil)
}

// windowWidth picks the smallest width W ≥ 2 at which widening the window no
// longer pays for the larger precomputed table, per the cost model
// 2^(W−1) + len·(1 + 1/(W+1)), subject to the configured caps.
func windowWidth(length, maxW, maxSize int) int {
	W := 2
	for (maxW == 0 || W < maxW) &&
		(maxSize == 0 || 1<<(W+2) <= maxSize) &&
		float64(int(1)<<(W-1))+float64(length)*(1+1/float64(W+1)) >
			float64(int(1)<<W)+float64(length)*(1+1/float64(W+2)) {
		W++
	}
	return W
}

// slidingWindow replaces X by X^exp using sliding-window exponentiation over
// the supplied arithmetic façade. The odd-power table is retained across
// calls and grows on demand; entry k holds X^(2k+1) in transform domain.
func (t *MultipointExp) slidingWindow(gw arithmetic.Context, exp *big.Int) error {
	length := exp.BitLen() - 1
	W := windowWidth(length, t.opts.Window, t.opts.MaxTableSize)

	if len(t.U) == 0 {
		t.U = append(t.U, t.gw.New())
	}
	t.U[0], t.X = t.X, t.U[0]
	if err := gw.Square(t.X, t.U[0], arithmetic.StartNextFFT); err != nil {
		return fmt.Errorf("exp: window table: %w", err)
	}
	for k := 1; k < 1<<(W-1); k++ {
		if len(t.U) <= k {
			t.U = append(t.U, t.gw.New())
		}
		if err := gw.Mul(t.U[k], t.X, t.U[k-1], arithmetic.FFTSource1|arithmetic.FFTSource2|arithmetic.StartNextFFT); err != nil {
			return fmt.Errorf("exp: window table: %w", err)
		}
	}

	i := length
	for i >= 0 {
		if exp.Bit(i) == 0 {
			if err := gw.Square(t.X, t.X, arithmetic.StartNextFFTIf(i > 0)); err != nil {
				return fmt.Errorf("exp: window squaring: %w", err)
			}
			i--
			continue
		}

		j := i - W + 1
		if j < 0 {
			j = 0
		}
		for exp.Bit(j) == 0 {
			j++
		}
		u := 0
		if i == length {
			// Top of the exponent: the window value replaces X outright.
			for i >= j {
				u = u<<1 + int(exp.Bit(i))
				i--
			}
			t.X.Set(t.U[u/2])
			continue
		}
		for i >= j {
			if err := gw.Square(t.X, t.X, arithmetic.StartNextFFT); err != nil {
				return fmt.Errorf("exp: window squaring: %w", err)
			}
			u = u<<1 + int(exp.Bit(i))
			i--
		}
		if err := gw.Mul(t.X, t.U[u/2], t.X, arithmetic.FFTSource1|arithmetic.StartNextFFTIf(i > 0)); err != nil {
			return fmt.Errorf("exp: window multiply: %w", err)
		}
	}
	return nil
}
