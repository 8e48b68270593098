// Package compose drives benchmark environments via the docker compose CLI.
package compose

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jayteealao/lockbench/internal/errors"
)

// Controller manages the lifecycle of a profiled set of compose services.
//
// Lifecycle failures (daemon unreachable, non-zero exit) are soft at this
// layer: Reset, Start and Teardown report them on the error stream but the
// benchmark runner judges trial outcome solely from the log contents.
type Controller struct {
	workingDir  string
	composeFile string
	projectName string
	stdout      io.Writer // If nil, uses os.Stdout
	stderr      io.Writer // If nil, uses os.Stderr
}

// NewController creates a compose controller for the given project.
func NewController(workingDir, composeFile, projectName string) *Controller {
	return &Controller{
		workingDir:  workingDir,
		composeFile: composeFile,
		projectName: projectName,
	}
}

// ProjectName returns the compose project name.
func (c *Controller) ProjectName() string {
	return c.projectName
}

// ComposeFilePath returns the full path to the compose file.
func (c *Controller) ComposeFilePath() string {
	if filepath.IsAbs(c.composeFile) {
		return c.composeFile
	}
	return filepath.Join(c.workingDir, c.composeFile)
}

// SetOutputStreams sets custom output streams for testing.
func (c *Controller) SetOutputStreams(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
}

func (c *Controller) getStdout() io.Writer {
	if c.stdout != nil {
		return c.stdout
	}
	return os.Stdout
}

func (c *Controller) getStderr() io.Writer {
	if c.stderr != nil {
		return c.stderr
	}
	return os.Stderr
}

// Reset ensures no prior instance of the profile is running. It is
// idempotent: a "nothing to remove" outcome is not a failure.
func (c *Controller) Reset(ctx context.Context, profile string, env []string) error {
	args := c.baseArgs(profile)
	args = append(args, "down", "--remove-orphans")

	return c.runLifecycle(ctx, args, env)
}

// Start builds (if needed) and launches all services tagged with the
// profile, with env applied as runtime configuration. It returns once the
// compose CLI acknowledges the start; it does not wait for the workload
// to be ready.
func (c *Controller) Start(ctx context.Context, profile string, env []string) error {
	args := c.baseArgs(profile)
	args = append(args, "up", "--build", "-d")

	return c.runLifecycle(ctx, args, env)
}

// Teardown stops and removes all resources associated with the profile.
// Best-effort: callers invoke it on every trial exit path.
func (c *Controller) Teardown(ctx context.Context, profile string, env []string) error {
	args := c.baseArgs(profile)
	args = append(args, "down", "--remove-orphans")

	return c.runLifecycle(ctx, args, env)
}

// Logs returns the full accumulated log text for a service. Side-effect
// free and safe to call repeatedly; successive calls return supersets of
// earlier output.
func (c *Controller) Logs(ctx context.Context, service string) (string, error) {
	args := c.baseArgs("")
	args = append(args, "logs", "--no-color", service)

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = c.workingDir

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("compose logs failed: %w", err)
	}
	return string(output), nil
}

// Validate validates the compose file, resolving variables from env.
func (c *Controller) Validate(ctx context.Context, env []string) error {
	args := c.baseArgs("")
	args = append(args, "config", "--quiet")

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = c.workingDir
	cmd.Env = append(os.Environ(), env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrComposeInvalid, string(output))
	}
	return nil
}

// runLifecycle executes a compose lifecycle command with env appended to
// a copy of the process environment for ${VAR} interpolation. The ambient
// process environment is never mutated.
func (c *Controller) runLifecycle(ctx context.Context, args, env []string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = c.workingDir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = c.getStdout()
	cmd.Stderr = c.getStderr()

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("compose %s cancelled: %w", args[len(args)-1], ctx.Err())
		}
		return fmt.Errorf("docker compose %s failed: %w", strings.Join(args, " "), err)
	}
	return nil
}

// baseArgs returns the base docker compose arguments. An empty profile
// selects only untagged services, which is what log and status queries want.
func (c *Controller) baseArgs(profile string) []string {
	args := []string{"compose"}

	// Project name isolates this run from anything else on the host.
	args = append(args, "-p", c.projectName)
	args = append(args, "-f", c.composeFile)

	if profile != "" {
		args = append(args, "--profile", profile)
	}

	return args
}

// CheckDockerCompose verifies docker compose is available.
func CheckDockerCompose(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "compose", "version")
	if err := cmd.Run(); err != nil {
		return errors.ErrComposeNotFound
	}
	return nil
}

// ProjectName creates an isolated compose project name from a base name
// and a per-run identifier.
func ProjectName(base, runID string) string {
	return fmt.Sprintf("%s-%s", base, runID)
}
