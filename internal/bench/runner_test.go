package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController scripts an environment backend for runner tests.
type fakeController struct {
	logs      map[string]string // service -> accumulated log text
	logsAfter int               // polls before logs become visible
	logsErr   error
	resetErr  error
	startErr  error

	polls     int
	resets    int
	starts    int
	teardowns int
	startEnv  []string
}

func newFakeController() *fakeController {
	return &fakeController{logs: make(map[string]string)}
}

func (f *fakeController) Reset(_ context.Context, _ string, _ []string) error {
	f.resets++
	return f.resetErr
}

func (f *fakeController) Start(_ context.Context, _ string, env []string) error {
	f.starts++
	f.startEnv = env
	return f.startErr
}

func (f *fakeController) Logs(_ context.Context, service string) (string, error) {
	f.polls++
	if f.logsErr != nil {
		return "", f.logsErr
	}
	if f.polls <= f.logsAfter {
		return "", nil
	}
	return f.logs[service], nil
}

func (f *fakeController) Teardown(_ context.Context, _ string, _ []string) error {
	f.teardowns++
	return nil
}

func fastRunner(controller *fakeController) *Runner {
	r := NewRunner(controller)
	r.SetPolling(time.Millisecond, 50*time.Millisecond)
	r.SetOutput(&bytes.Buffer{})
	return r
}

func TestExtractTotalTime(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   int64
		wantOK bool
	}{
		{"bare marker", "TOTAL_TIME_MS: 1234", 1234, true},
		{"marker amid noise", "noise before\nTOTAL_TIME_MS: 1234 and after\nmore", 1234, true},
		{"zero value", "TOTAL_TIME_MS: 0", 0, true},
		{"first marker wins", "TOTAL_TIME_MS: 5\nTOTAL_TIME_MS: 9", 5, true},
		{"no marker", "Application starting...\nConsumer 0 acquired the lock.", 0, false},
		{"empty text", "", 0, false},
		{"prefix only", "TOTAL_TIME_MS:", 0, false},
		{"negative not matched", "TOTAL_TIME_MS: -10", 0, false},
		{"overflow treated as missing", "TOTAL_TIME_MS: 99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTotalTime(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunTrialSuccess(t *testing.T) {
	controller := newFakeController()
	controller.logs["app-lua"] = "Application finished.\nTOTAL_TIME_MS: 120\n"

	runner := fastRunner(controller)
	result := runner.RunTrial(context.Background(), TrialConfig{
		Variant:      VariantLua,
		Consumers:    5,
		WorkDuration: 50 * time.Millisecond,
	})

	assert.Equal(t, int64(120), result.TimeMs)
	assert.False(t, result.TimedOut)
	assert.Equal(t, 1, controller.resets)
	assert.Equal(t, 1, controller.starts)
	assert.Equal(t, 1, controller.teardowns)
}

func TestRunTrialPassesRuntimeConfig(t *testing.T) {
	controller := newFakeController()
	controller.logs["app-redlock"] = "TOTAL_TIME_MS: 1\n"

	runner := fastRunner(controller)
	runner.RunTrial(context.Background(), TrialConfig{
		Variant:      VariantRedlock,
		Consumers:    100,
		WorkDuration: 50 * time.Millisecond,
	})

	assert.Contains(t, controller.startEnv, "NUM_CONSUMERS=100")
	assert.Contains(t, controller.startEnv, "WORK_DURATION=50")
}

func TestRunTrialMarkerAppearsLater(t *testing.T) {
	controller := newFakeController()
	controller.logs["app-lua"] = "TOTAL_TIME_MS: 77\n"
	controller.logsAfter = 3

	runner := fastRunner(controller)
	result := runner.RunTrial(context.Background(), TrialConfig{Variant: VariantLua, Consumers: 5})

	assert.Equal(t, int64(77), result.TimeMs)
	assert.False(t, result.TimedOut)
	assert.GreaterOrEqual(t, controller.polls, 4)
}

func TestRunTrialTimeout(t *testing.T) {
	controller := newFakeController()
	// No marker ever appears.
	controller.logs["app-lua"] = "Application starting...\n"

	var diag bytes.Buffer
	runner := NewRunner(controller)
	runner.SetPolling(time.Millisecond, 20*time.Millisecond)
	runner.SetOutput(&diag)

	start := time.Now()
	result := runner.RunTrial(context.Background(), TrialConfig{Variant: VariantLua, Consumers: 5})
	elapsed := time.Since(start)

	assert.True(t, result.TimedOut)
	assert.Equal(t, int64(0), result.TimeMs)
	assert.Contains(t, diag.String(), "Timeout waiting for lua")

	// The loop must stop within roughly timeout + one poll interval,
	// never run indefinitely.
	assert.Less(t, elapsed, time.Second)

	// Teardown runs on the timeout path too.
	assert.Equal(t, 1, controller.teardowns)
}

func TestRunTrialToleratesLifecycleFailures(t *testing.T) {
	controller := newFakeController()
	controller.resetErr = errors.New("no such project")
	controller.startErr = errors.New("build failed")
	controller.logs["app-lua"] = "TOTAL_TIME_MS: 42\n"

	var diag bytes.Buffer
	runner := fastRunner(controller)
	runner.SetOutput(&diag)

	// Lifecycle errors are soft: the verdict comes from the logs alone.
	result := runner.RunTrial(context.Background(), TrialConfig{Variant: VariantLua, Consumers: 5})

	assert.False(t, result.TimedOut)
	assert.Equal(t, int64(42), result.TimeMs)
	assert.Contains(t, diag.String(), "no such project")
	assert.Contains(t, diag.String(), "build failed")
}

func TestRunTrialTeardownOnLogFailure(t *testing.T) {
	controller := newFakeController()
	controller.logsErr = errors.New("daemon unreachable")

	runner := fastRunner(controller)
	result := runner.RunTrial(context.Background(), TrialConfig{Variant: VariantRedlock, Consumers: 10})

	assert.True(t, result.TimedOut)
	assert.Equal(t, 1, controller.teardowns)
}

func TestRunTrialTeardownOnCancel(t *testing.T) {
	controller := newFakeController()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(controller)
	runner.SetPolling(time.Millisecond, time.Minute)
	runner.SetOutput(&bytes.Buffer{})

	result := runner.RunTrial(ctx, TrialConfig{Variant: VariantLua, Consumers: 5})

	assert.True(t, result.TimedOut)
	assert.Equal(t, 1, controller.teardowns)
}

func TestTrialConfigEnviron(t *testing.T) {
	cfg := TrialConfig{
		Variant:      VariantLua,
		Consumers:    200,
		WorkDuration: 950 * time.Millisecond,
	}

	env := cfg.Environ()
	require.Len(t, env, 2)
	assert.Equal(t, "NUM_CONSUMERS=200", env[0])
	assert.Equal(t, "WORK_DURATION=950", env[1])
}

func TestVariantNaming(t *testing.T) {
	for _, v := range Variants() {
		assert.Equal(t, string(v), v.Profile())
		assert.Equal(t, fmt.Sprintf("app-%s", v), v.Service())
	}
}
