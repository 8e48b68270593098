package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jayteealao/lockbench/internal/bench"
	"github.com/jayteealao/lockbench/internal/compose"
	apperrors "github.com/jayteealao/lockbench/internal/errors"
	"github.com/jayteealao/lockbench/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark sweep",
	Long: `Run both lock variants through the full concurrency grid and print a
side-by-side comparison table.

Each trial brings up one variant's compose profile in isolation, polls the
app service's logs for its completion marker (TOTAL_TIME_MS: <n>) under a
timeout, tears the environment down, and records the reported time. A trial
that never reports degrades to a zero row; it never aborts the sweep.

Examples:
  lockbench run
  lockbench run --consumers 5,50 --work-duration 100ms
  lockbench run --compose-file ./docker-compose.yml --json`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	consumersFlag    []int
	workDurationFlag time.Duration
	trialTimeoutFlag time.Duration
	pollIntervalFlag time.Duration
	composeFileFlag  string
	composeDirFlag   string
	jsonFlag         bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntSliceVar(&consumersFlag, "consumers", bench.DefaultConsumerCounts, "consumer counts to sweep")
	runCmd.Flags().DurationVar(&workDurationFlag, "work-duration", bench.DefaultWorkDuration, "simulated work per consumer")
	runCmd.Flags().DurationVar(&trialTimeoutFlag, "timeout", bench.DefaultTrialTimeout, "per-trial completion timeout")
	runCmd.Flags().DurationVar(&pollIntervalFlag, "interval", bench.DefaultPollInterval, "log polling interval")
	runCmd.Flags().StringVar(&composeDirFlag, "compose-dir", ".", "working directory for compose invocations")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "print results as JSON after the table")

	viper.BindPFlag("timeout", runCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("interval", runCmd.Flags().Lookup("interval"))
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	for _, count := range consumersFlag {
		if count <= 0 {
			return fmt.Errorf("invalid consumer count %d: must be positive", count)
		}
	}

	if err := compose.CheckDockerCompose(ctx); err != nil {
		return err
	}

	// One sweep at a time per host: trials need exclusive use of the
	// docker network and ports.
	lockManager, err := initLockManager()
	if err != nil {
		return err
	}

	runLock, err := lockManager.Acquire()
	if err != nil {
		if errors.Is(err, apperrors.ErrRunLocked) {
			return fmt.Errorf("%w - wait for it to finish or remove stale locks under the data directory", err)
		}
		return err
	}
	defer runLock.Release()

	runID := uuid.NewString()[:8]
	projectName := compose.ProjectName("lockbench", runID)
	printVerbose("Run %s using project %s", runID, projectName)

	controller := compose.NewController(
		composeDirFlag, viper.GetString("compose-file"), projectName,
	)
	if !isVerbose() {
		// The compose CLI is chatty during builds; keep the table readable.
		controller.SetOutputStreams(io.Discard, io.Discard)
	}

	runner := bench.NewRunner(controller)
	runner.SetPolling(viper.GetDuration("interval"), viper.GetDuration("timeout"))
	runner.SetOutput(os.Stderr)

	sweep := bench.NewSweep(runner, os.Stdout)
	rows := sweep.Run(ctx, consumersFlag, workDurationFlag)

	if jsonFlag {
		if err := report.WriteJSON(os.Stdout, rows); err != nil {
			return fmt.Errorf("write JSON results: %w", err)
		}
	}

	return nil
}
