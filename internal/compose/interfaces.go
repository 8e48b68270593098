package compose

import "context"

// Operations defines the environment lifecycle surface the benchmark
// runner consumes.
type Operations interface {
	Reset(ctx context.Context, profile string, env []string) error
	Start(ctx context.Context, profile string, env []string) error
	Logs(ctx context.Context, service string) (string, error)
	Teardown(ctx context.Context, profile string, env []string) error
}

// Ensure Controller implements Operations
var _ Operations = (*Controller)(nil)
