package bench

import (
	"context"
	"io"
	"time"

	"github.com/jayteealao/lockbench/internal/report"
)

// DefaultConsumerCounts is the concurrency grid a bare invocation sweeps.
var DefaultConsumerCounts = []int{5, 10, 100, 200}

// DefaultWorkDuration is the simulated work per consumer. Short, to keep
// the full sweep quick.
const DefaultWorkDuration = 50 * time.Millisecond

// Sweep iterates the concurrency grid across both variants and renders
// one report row per concurrency level.
type Sweep struct {
	runner *Runner
	out    io.Writer
}

// NewSweep creates a Sweep writing its table to out.
func NewSweep(runner *Runner, out io.Writer) *Sweep {
	return &Sweep{runner: runner, out: out}
}

// Run executes both variants at each concurrency level, printing the
// header up front and each row as soon as both of its trials complete.
// A timed-out trial degrades its row to a zero value; it never aborts
// the sweep. The returned rows are in grid order.
func (s *Sweep) Run(ctx context.Context, consumerCounts []int, workDuration time.Duration) []report.Row {
	report.WriteHeader(s.out)

	rows := make([]report.Row, 0, len(consumerCounts))

	for _, count := range consumerCounts {
		lua := s.runner.RunTrial(ctx, TrialConfig{
			Variant:      VariantLua,
			Consumers:    count,
			WorkDuration: workDuration,
		})
		redlock := s.runner.RunTrial(ctx, TrialConfig{
			Variant:      VariantRedlock,
			Consumers:    count,
			WorkDuration: workDuration,
		})

		row := report.Row{
			Consumers:       count,
			LuaMs:           lua.TimeMs,
			RedlockMs:       redlock.TimeMs,
			PercentDiff:     report.PercentDiff(lua.TimeMs, redlock.TimeMs),
			LuaTimedOut:     lua.TimedOut,
			RedlockTimedOut: redlock.TimedOut,
		}

		report.WriteRow(s.out, row)
		rows = append(rows, row)
	}

	return rows
}
