package bench

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/jayteealao/lockbench/internal/compose"
)

const (
	// DefaultPollInterval is the sleep between log scans.
	DefaultPollInterval = time.Second

	// DefaultTrialTimeout is the wall-clock budget for the polling loop,
	// measured from when polling begins, not from environment start.
	DefaultTrialTimeout = 60 * time.Second
)

// totalTimePattern matches the completion marker each variant's service
// must print when its workload finishes.
var totalTimePattern = regexp.MustCompile(`TOTAL_TIME_MS: (\d+)`)

// Runner executes a single trial end to end: reset, start, poll for the
// completion marker, extract the metric, tear down.
type Runner struct {
	controller compose.Operations
	interval   time.Duration
	timeout    time.Duration
	out        io.Writer
}

// NewRunner creates a Runner with the default polling parameters,
// writing progress and diagnostics to stderr.
func NewRunner(controller compose.Operations) *Runner {
	return &Runner{
		controller: controller,
		interval:   DefaultPollInterval,
		timeout:    DefaultTrialTimeout,
		out:        os.Stderr,
	}
}

// SetPolling overrides the poll interval and the per-trial timeout.
func (r *Runner) SetPolling(interval, timeout time.Duration) {
	if interval > 0 {
		r.interval = interval
	}
	if timeout > 0 {
		r.timeout = timeout
	}
}

// SetOutput sets the diagnostic output stream.
func (r *Runner) SetOutput(out io.Writer) {
	r.out = out
}

// RunTrial executes one trial and always returns a result: environment
// failures surface as a timed-out trial, never as an error. The
// environment is torn down on every exit path.
func (r *Runner) RunTrial(ctx context.Context, cfg TrialConfig) TrialResult {
	profile := cfg.Variant.Profile()
	service := cfg.Variant.Service()
	env := cfg.Environ()

	fmt.Fprintf(r.out, "Running benchmark for %s with %d consumers and %dms work...\n",
		profile, cfg.Consumers, cfg.WorkDuration.Milliseconds())

	// Defensive cleanup: teardown from a previous crashed or timed-out
	// run is not otherwise guaranteed complete.
	if err := r.controller.Reset(ctx, profile, env); err != nil {
		fmt.Fprintf(r.out, "reset %s: %v\n", profile, err)
	}

	if err := r.controller.Start(ctx, profile, env); err != nil {
		fmt.Fprintf(r.out, "start %s: %v\n", profile, err)
	}

	defer func() {
		// Unconditional, and immune to caller cancellation: a cancelled
		// sweep must still release the environment.
		if err := r.controller.Teardown(context.WithoutCancel(ctx), profile, env); err != nil {
			fmt.Fprintf(r.out, "teardown %s: %v\n", profile, err)
		}
	}()

	ms, ok := r.pollForCompletion(ctx, service)
	if !ok {
		fmt.Fprintf(r.out, "Timeout waiting for %s\n", profile)
		return TrialResult{Config: cfg, TimedOut: true}
	}

	return TrialResult{Config: cfg, TimeMs: ms}
}

// pollForCompletion repeatedly fetches the service's logs and scans for
// the completion marker until it appears or the trial budget elapses.
func (r *Runner) pollForCompletion(ctx context.Context, service string) (int64, bool) {
	start := time.Now()

	for {
		// The backend does not guarantee incremental delivery, so every
		// poll rescans the full accumulated text.
		logs, err := r.controller.Logs(ctx, service)
		if err == nil {
			if ms, ok := ExtractTotalTime(logs); ok {
				return ms, true
			}
		}

		if time.Since(start) > r.timeout {
			return 0, false
		}

		select {
		case <-ctx.Done():
			return 0, false
		case <-time.After(r.interval):
		}
	}
}

// ExtractTotalTime scans log text for the first completion marker of the
// form "TOTAL_TIME_MS: <integer>" and returns its value. A marker whose
// integer does not fit an int64 is treated as not found, so it degrades
// to a timeout like any other missing marker.
func ExtractTotalTime(text string) (int64, bool) {
	m := totalTimePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}

	return ms, true
}
