// Package config centralizes command-line configuration for the prst binary
// and its conversion into task options.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/stream1972/prst/internal/exp"
)

// AppConfig aggregates every user-facing setting.
type AppConfig struct {
	// Input is the number under test, in k*b^n+c or decimal form.
	Input string
	// Base is the Fermat-PRP base.
	Base uint64
	// Points is the number of checkpoint points to schedule.
	Points int
	// StateFile is the working checkpoint path; empty disables persistence.
	StateFile string
	// RecoveryFile is the recovery checkpoint path. Defaults to
	// StateFile + ".r" when a state file is set.
	RecoveryFile string
	// StateUpdatePeriod overrides the checkpoint cadence in multiplications.
	StateUpdatePeriod uint64
	// Window caps the sliding-window width.
	Window int
	// MaxRestarts bounds consecutive restarts before the transform is rebuilt.
	MaxRestarts int
	// ErrorCheckNear enables roundoff checking near the transform limit.
	ErrorCheckNear bool
	// ErrorCheckForced always enables roundoff checking.
	ErrorCheckForced bool
	// NoGerbicz disables the Gerbicz protocol even when the input shape
	// supports it.
	NoGerbicz bool
	// Verbose enables debug logging.
	Verbose bool
}

// ParseFlags builds an AppConfig from command-line arguments.
func ParseFlags(name string, args []string) (*AppConfig, error) {
	cfg := &AppConfig{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.Input, "input", "", "number under test, k*b^n+c or decimal")
	fs.Uint64Var(&cfg.Base, "base", 3, "Fermat-PRP base")
	fs.IntVar(&cfg.Points, "points", 8, "number of checkpoint points")
	fs.StringVar(&cfg.StateFile, "state", "", "checkpoint file path (empty disables persistence)")
	fs.StringVar(&cfg.RecoveryFile, "recovery", "", "recovery file path (default <state>.r)")
	fs.Uint64Var(&cfg.StateUpdatePeriod, "update-period", 0, "multiplications between checkpoints")
	fs.IntVar(&cfg.Window, "window", 0, "maximum sliding-window width (0 = auto)")
	fs.IntVar(&cfg.MaxRestarts, "max-restarts", 0, "consecutive restarts before transform rebuild")
	fs.BoolVar(&cfg.ErrorCheckNear, "error-check-near", true, "roundoff check near the transform limit")
	fs.BoolVar(&cfg.ErrorCheckForced, "error-check", false, "force the roundoff check on")
	fs.BoolVar(&cfg.NoGerbicz, "no-gerbicz", false, "disable the Gerbicz error check")
	fs.BoolVar(&cfg.Verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		fs.Usage()
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency and fills derived defaults.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return fmt.Errorf("config: -input is required")
	}
	if c.Base < 2 {
		return fmt.Errorf("config: -base must be at least 2")
	}
	if c.Points < 1 {
		return fmt.Errorf("config: -points must be at least 1")
	}
	if c.RecoveryFile == "" && c.StateFile != "" {
		c.RecoveryFile = c.StateFile + ".r"
	}
	return nil
}

// ToTaskOptions converts the configuration into exp.Options.
func (c *AppConfig) ToTaskOptions() exp.Options {
	return exp.Options{
		StateUpdatePeriod: c.StateUpdatePeriod,
		ErrorCheckNear:    c.ErrorCheckNear,
		ErrorCheckForced:  c.ErrorCheckForced,
		Window:            c.Window,
		MaxRestarts:       c.MaxRestarts,
	}
}
