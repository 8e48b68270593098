package cmd

import (
	"fmt"
	"os"

	"github.com/jayteealao/lockbench/internal/bench"
	"github.com/jayteealao/lockbench/internal/compose"
	apperrors "github.com/jayteealao/lockbench/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the benchmark environment",
	Long: `Check that docker compose is available and that the compose file
declares the variant services and references the variables the harness
injects (NUM_CONSUMERS, WORK_DURATION).`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// harnessVariables are the runtime configuration keys every variant
// profile must consume.
var harnessVariables = []string{"NUM_CONSUMERS", "WORK_DURATION"}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	composeFile := viper.GetString("compose-file")

	if err := compose.CheckDockerCompose(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "docker compose: ok")

	refs, err := compose.ParseEnvVars(composeFile)
	if err != nil {
		return err
	}

	for _, name := range harnessVariables {
		if !compose.HasReference(refs, name) {
			return fmt.Errorf("%w: %s", apperrors.ErrMissingEnvRef, name)
		}
		fmt.Fprintf(os.Stdout, "compose references %s: ok\n", name)
	}

	services, err := compose.ServiceNames(composeFile)
	if err != nil {
		return err
	}

	for _, variant := range bench.Variants() {
		found := false
		for _, service := range services {
			if service == variant.Service() {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("compose file does not declare service %q for variant %q",
				variant.Service(), variant)
		}
		fmt.Fprintf(os.Stdout, "service %s: ok\n", variant.Service())
	}

	// Let docker compose itself resolve the file, with a representative
	// trial's variables injected, so interpolation or schema problems
	// fail here rather than mid-sweep.
	controller := compose.NewController(".", composeFile, "lockbench-check")
	sample := bench.TrialConfig{
		Consumers:    bench.DefaultConsumerCounts[0],
		WorkDuration: bench.DefaultWorkDuration,
	}
	if err := controller.Validate(ctx, sample.Environ()); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "compose config: ok")

	if isVerbose() {
		printVerbose("Environment variables referenced by %s:", composeFile)
		for _, ref := range refs {
			printVerbose("  %s (default=%q, required=%v, occurrences=%d)",
				ref.Name, ref.DefaultValue, ref.IsRequired, ref.Occurrences)
		}
	}

	return nil
}
