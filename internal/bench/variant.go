// Package bench implements the benchmark orchestration loop: it drives
// one lock variant at a time through an isolated compose environment,
// detects workload completion by scanning service logs, and sweeps a grid
// of concurrency levels across both variants.
package bench

import (
	"fmt"
	"time"
)

// Variant identifies one of the competing lock implementations.
type Variant string

const (
	// VariantLua is the single-node lock released via an atomic Lua script.
	VariantLua Variant = "lua"

	// VariantRedlock is the multi-node quorum lock.
	VariantRedlock Variant = "redlock"
)

// Variants returns both variants in benchmark order.
func Variants() []Variant {
	return []Variant{VariantLua, VariantRedlock}
}

// Profile returns the compose profile tag for the variant. The profile
// name is the binding contract between the harness and each variant's
// service package.
func (v Variant) Profile() string {
	return string(v)
}

// Service returns the compose service name whose logs carry the
// completion marker.
func (v Variant) Service() string {
	return "app-" + string(v)
}

// TrialConfig fully determines one trial. Immutable once constructed.
type TrialConfig struct {
	Variant      Variant
	Consumers    int
	WorkDuration time.Duration
}

// Environ returns the runtime configuration for the trial's environment
// as explicit KEY=VALUE pairs. Nothing here touches the ambient process
// environment.
func (c TrialConfig) Environ() []string {
	return []string{
		fmt.Sprintf("NUM_CONSUMERS=%d", c.Consumers),
		fmt.Sprintf("WORK_DURATION=%d", c.WorkDuration.Milliseconds()),
	}
}

// TrialResult is produced exactly once per trial. A timed-out trial
// carries TimedOut=true and a zero TimeMs; the two are kept distinct so a
// legitimately instant workload is not mistaken for a failure.
type TrialResult struct {
	Config   TrialConfig
	TimeMs   int64
	TimedOut bool
}
