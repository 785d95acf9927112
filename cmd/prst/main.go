// Command prst runs Fermat probable-prime tests on large candidates using
// the checkpointed, Gerbicz-protected exponentiation core.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stream1972/prst/internal/config"
	"github.com/stream1972/prst/internal/exp"
	"github.com/stream1972/prst/internal/input"
	"github.com/stream1972/prst/internal/logging"
	"github.com/stream1972/prst/internal/prp"
	"github.com/stream1972/prst/internal/state"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "prst:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := config.ParseFlags("prst", args)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	logger := logging.NewZerologAdapter(zl)

	in, err := input.Parse(cfg.Input)
	if err != nil {
		return err
	}

	var working, recovery state.Store
	if cfg.StateFile != "" {
		working = state.NewFile(cfg.StateFile)
		recovery = state.NewFile(cfg.RecoveryFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressCh := make(chan exp.ProgressUpdate, 64)
	prpCfg := prp.Config{
		Base:      cfg.Base,
		Points:    cfg.Points,
		Working:   working,
		Recovery:  recovery,
		Options:   cfg.ToTaskOptions(),
		NoGerbicz: cfg.NoGerbicz,
		Observer:  exp.NewChannelObserver(progressCh),
	}

	var result *prp.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Prefix = in.DisplayText() + " "
		s.Start()
		defer s.Stop()
		for u := range progressCh {
			s.Suffix = fmt.Sprintf(" %.1f%% (%.0f muls)", 100*u.Value, u.FFTCount)
		}
		return nil
	})
	g.Go(func() error {
		defer close(progressCh)
		var err error
		result, err = prp.Test(gctx, in, logger, prpCfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	verdict := "is composite"
	if result.ProbablePrime {
		verdict = fmt.Sprintf("is a probable prime (base %d)", cfg.Base)
	}
	fmt.Fprintf(out, "%s %s, res64 %s\n", in.DisplayText(), verdict, result.Res64)
	return nil
}
