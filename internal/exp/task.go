package exp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/stream1972/prst/internal/arithmetic"
	"github.com/stream1972/prst/internal/input"
	"github.com/stream1972/prst/internal/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Tuning Constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	// MulsPerStateUpdate is the default number of multiplications between
	// checkpoint commits. At typical throughput this keeps the replay window
	// after a crash to a few minutes of work.
	MulsPerStateUpdate = 120_000

	// startupCarefulMuls is the number of multiplications performed through
	// the careful path at the start of a fresh run, before the residue has
	// accumulated enough entropy for the roundoff check to be meaningful.
	startupCarefulMuls = 30

	// DefaultMaxRestarts is the number of consecutive restarts tolerated
	// before the arithmetic context is rebuilt with a fresh transform.
	DefaultMaxRestarts = 3

	// progressReportThreshold is the minimum progress change (0.0 to 1.0)
	// required before observers are notified again.
	progressReportThreshold = 0.01
)

// ErrRestart signals that the working state is unreliable and execution must
// resume from the last verified recovery state. The Run loop consumes it; it
// never escapes to callers.
var ErrRestart = errors.New("exp: restart from last recovery state")

var (
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prst_tasks_total",
			Help: "The total number of exponentiation tasks executed",
		},
		[]string{"task", "status"},
	)
	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prst_task_duration_seconds",
			Help:    "The duration of exponentiation tasks in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 12),
		},
		[]string{"task"},
	)
	restartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prst_restarts_total",
			Help: "The total number of restarts from the recovery state",
		},
		[]string{"task"},
	)
	checkpointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prst_checkpoints_total",
			Help: "The total number of checkpoint records committed",
		},
		[]string{"stream"},
	)
	gerbiczChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prst_gerbicz_checks_total",
			Help: "The total number of Gerbicz verifications performed",
		},
		[]string{"status"},
	)
)

// Task is the contract shared by all exponentiation strategies. A task is
// constructed with its inputs and collaborators, executed (possibly several
// times, when restarts occur) and released.
type Task interface {
	// Name identifies the strategy for logs and metrics.
	Name() string

	// Execute advances the computation to completion or to the first error.
	// Returning an error matching Restartable means the in-memory state has
	// been rolled back to the last recovery point and Execute may be called
	// again.
	Execute(ctx context.Context) error

	// OnRestart accounts a restart, rebuilding the arithmetic context after
	// too many consecutive failures. A non-nil return is fatal.
	OnRestart() error

	// Release frees the residue buffers owned by the task.
	Release()
}

// Restartable reports whether err indicates a transient failure that the Run
// loop should handle by re-executing from the recovery state.
func Restartable(err error) bool {
	return errors.Is(err, ErrRestart) || errors.Is(err, arithmetic.ErrRoundoff)
}

// Run drives a task to completion, consuming restart signals. It is the
// idiomatic rendering of the restart-exception control flow: Execute returns
// a distinguished error instead of throwing, and the framework loops.
func Run(ctx context.Context, t Task, logger logging.Logger) (err error) {
	if logger == nil {
		logger = logging.Nop()
	}
	tracer := otel.Tracer("exp")
	ctx, span := tracer.Start(ctx, t.Name())
	defer span.End()

	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil {
			status = "error"
		}
		tasksTotal.WithLabelValues(t.Name(), status).Inc()
		taskDuration.WithLabelValues(t.Name()).Observe(duration)

		log.Debug().
			Str("task", t.Name()).
			Float64("duration", duration).
			Str("status", status).
			Msg("task completed")
	}()
	defer t.Release()

	for {
		err = t.Execute(ctx)
		if err == nil || !Restartable(err) {
			return err
		}
		restartsTotal.WithLabelValues(t.Name()).Inc()
		logger.Error("restarting from recovery state", err)
		if rerr := t.OnRestart(); rerr != nil {
			return rerr
		}
	}
}

// baseTask carries the lifecycle shared by every strategy: timing, transform
// accounting, the error-check decision, checkpoint cadence and progress
// notification.
type baseTask struct {
	input    *input.Number
	gw       arithmetic.Context
	log      logging.Logger
	progress *ProgressSubject

	iterations uint64
	opts       Options

	startTime         time.Time
	transforms        float64
	errorCheck        bool
	stateUpdatePeriod uint64

	restartCount int
	lastProgress float64
}

// initBase records the start timestamp, snapshots the backend's transform
// count and decides whether per-multiplication roundoff checking is needed.
func (t *baseTask) initBase(in *input.Number, gw arithmetic.Context, logger logging.Logger, iterations uint64, opts Options) {
	t.input = in
	t.gw = gw
	t.opts = normalizeOptions(opts)
	t.iterations = iterations
	t.startTime = time.Now()
	t.transforms = -gw.FFTCount()
	t.stateUpdatePeriod = t.opts.StateUpdatePeriod
	t.lastProgress = -1
	if logger == nil {
		logger = logging.Nop()
	}
	t.log = logger.WithPrefix(in.DisplayText())
	t.decideErrorCheck()
}

// decideErrorCheck selects the roundoff-check mode: the forced flag turns it
// on; otherwise near-limit probing decides when requested; otherwise it is off.
func (t *baseTask) decideErrorCheck() {
	if t.opts.ErrorCheckForced {
		t.errorCheck = true
	} else if t.opts.ErrorCheckNear {
		t.errorCheck = t.gw.NearFFTLimit()
	} else {
		t.errorCheck = false
	}
}

// doneBase reports elapsed time and the transform-count delta.
func (t *baseTask) doneBase() {
	elapsed := time.Since(t.startTime).Seconds()
	t.transforms += t.gw.FFTCount()
	t.notifyProgress(1)
	t.log.Info("task done",
		logging.Float64("elapsed", elapsed),
		logging.Float64("transforms", t.transforms),
	)
}

// OnRestart accounts a consecutive restart and rebuilds the arithmetic
// context once the tolerance is exhausted.
func (t *baseTask) OnRestart() error {
	t.restartCount++
	if t.restartCount > 2*t.opts.MaxRestarts {
		return fmt.Errorf("exp: giving up after %d consecutive restarts", t.restartCount)
	}
	if t.restartCount >= t.opts.MaxRestarts {
		return t.reinitContext()
	}
	return nil
}

// reinitContext tears down and rebuilds the transform state, preserving the
// transform counter, then re-decides the error-check flag.
func (t *baseTask) reinitContext() error {
	if err := t.gw.Reinit(); err != nil {
		return fmt.Errorf("exp: rebuilding arithmetic context: %w", err)
	}
	t.log.Error("restarting with rebuilt transform", nil,
		logging.String("fft_desc", t.gw.FFTDescription()),
	)
	t.log.ReportParam("fft_desc", t.gw.FFTDescription())
	t.log.ReportParam("fft_len", t.gw.FFTLength())
	t.decideErrorCheck()
	return nil
}

// Subscribe registers a progress observer for this task.
func (t *baseTask) Subscribe(observer ProgressObserver) {
	if t.progress == nil {
		t.progress = NewProgressSubject()
	}
	t.progress.Register(observer)
}

// isLast reports whether iteration index i is the final one.
func (t *baseTask) isLast(i uint64) bool {
	return i+1 >= t.iterations
}

func (t *baseTask) notifyProgress(p float64) {
	if t.progress == nil {
		return
	}
	t.progress.Notify(p, t.gw.FFTCount()/2)
	t.lastProgress = p
}

// reportProgress notifies observers when enough progress accumulated since
// the last report.
func (t *baseTask) reportProgress(iter uint64) {
	if t.progress == nil || t.iterations == 0 {
		return
	}
	p := float64(iter) / float64(t.iterations)
	if p-t.lastProgress >= progressReportThreshold || iter == t.iterations {
		t.notifyProgress(p)
	}
}

func (t *baseTask) percent(iter uint64) float64 {
	if t.iterations == 0 {
		return 100
	}
	return 100 * float64(iter) / float64(t.iterations)
}
