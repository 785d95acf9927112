// Package prp orchestrates Fermat probable-prime tests over the
// exponentiation core: a^(N−1) ≡ 1 (mod N) for the number N under test.
// Inputs of the form k·2^n+1 run through the Gerbicz-checked multipoint task
// so the verdict is protected against transient hardware errors; general
// inputs fall back to plain binary exponentiation.
package prp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/stream1972/prst/internal/exp"
	"github.com/stream1972/prst/internal/input"
	"github.com/stream1972/prst/internal/logging"
	"github.com/stream1972/prst/internal/state"
)

// Config tunes a PRP test.
type Config struct {
	// Base is the Fermat base a, at least 2.
	Base uint64
	// Points is the number of checkpoint points scheduled across the run.
	Points int
	// Working and Recovery are the two checkpoint streams; nil disables
	// persistence.
	Working  state.Store
	Recovery state.Store
	// Options passes through task tuning.
	Options exp.Options
	// NoGerbicz disables the error-checked path even for supported shapes.
	NoGerbicz bool
	// Observer, when set, receives progress updates.
	Observer exp.ProgressObserver
}

// Result is the outcome of a PRP test.
type Result struct {
	// ProbablePrime reports whether N passed the Fermat test.
	ProbablePrime bool
	// Res64 is the low 64 bits of the final residue, in hex, for
	// cross-checking against other programs.
	Res64 string
	// Task names the strategy that produced the result.
	Task string
	// Checked reports whether the run was Gerbicz-protected.
	Checked bool
}

// res64 formats the canonical 64-bit residue of x.
func res64(x *big.Int) string {
	mask := new(big.Int).Lsh(big.NewInt(1), 64)
	mask.Sub(mask, big.NewInt(1))
	return fmt.Sprintf("%016X", new(big.Int).And(x, mask).Uint64())
}

// pointSchedule splits n iterations into count evenly spaced points ending
// exactly at n.
func pointSchedule(n uint64, count int) []uint64 {
	if count < 1 {
		count = 1
	}
	points := make([]uint64, 0, count)
	var prev uint64
	for i := 1; i <= count; i++ {
		p := n * uint64(i) / uint64(count)
		if p > prev {
			points = append(points, p)
			prev = p
		}
	}
	return points
}

// Test runs the Fermat PRP test for the given input.
func Test(ctx context.Context, in *input.Number, logger logging.Logger, cfg Config) (*Result, error) {
	if cfg.Base < 2 {
		return nil, fmt.Errorf("prp: base must be at least 2, got %d", cfg.Base)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	N := in.Value()
	gw, err := in.Setup()
	if err != nil {
		return nil, err
	}

	onPoint := func(iteration uint64) {
		logger.Debug("point reached", logging.Uint64("iteration", iteration))
	}

	var final *big.Int
	checked := false
	taskName := ""

	if !cfg.NoGerbicz && in.IsStructured() && in.B() == 2 && in.C() == 1 {
		// N−1 = k·2^n: raise the base to k, then n checked squarings.
		x0 := new(big.Int).Exp(new(big.Int).SetUint64(cfg.Base), big.NewInt(in.K()), N)
		points := pointSchedule(in.N(), cfg.Points)
		task, err := exp.NewGerbiczCheckMultipointExp(in, gw, cfg.Working, cfg.Recovery, logger, 2, points, x0, onPoint, cfg.Options)
		if err != nil {
			return nil, err
		}
		if cfg.Observer != nil {
			task.Subscribe(cfg.Observer)
		}
		if err := exp.Run(ctx, task, logger); err != nil {
			return nil, err
		}
		final = task.State().X
		checked = true
		taskName = task.Name()
	} else if cfg.Base <= gw.MaxMulByConst() {
		exponent := new(big.Int).Sub(N, big.NewInt(1))
		task, err := exp.NewFastExp(in, gw, cfg.Working, logger, cfg.Base, exponent, cfg.Options)
		if err != nil {
			return nil, err
		}
		if cfg.Observer != nil {
			task.Subscribe(cfg.Observer)
		}
		if err := exp.Run(ctx, task, logger); err != nil {
			return nil, err
		}
		final = task.State().X
		taskName = task.Name()
	} else {
		// Bases beyond the mul-by-const slot pay for an explicit
		// multiplication per set exponent bit.
		exponent := new(big.Int).Sub(N, big.NewInt(1))
		task, err := exp.NewSlowExp(in, gw, cfg.Working, logger, new(big.Int).SetUint64(cfg.Base), exponent, cfg.Options)
		if err != nil {
			return nil, err
		}
		if cfg.Observer != nil {
			task.Subscribe(cfg.Observer)
		}
		if err := exp.Run(ctx, task, logger); err != nil {
			return nil, err
		}
		final = task.State().X
		taskName = task.Name()
	}

	res := &Result{
		ProbablePrime: final.Cmp(big.NewInt(1)) == 0,
		Res64:         res64(final),
		Task:          taskName,
		Checked:       checked,
	}
	logger.Info("PRP test finished",
		logging.String("res64", res.Res64),
		logging.String("verdict", verdict(res.ProbablePrime)),
	)
	return res, nil
}

func verdict(prp bool) string {
	if prp {
		return "probable prime"
	}
	return "composite"
}
