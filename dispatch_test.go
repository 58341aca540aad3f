package assay

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func failingTranscript(name string) string {
	return fmt.Sprintf("=== RUN   %s\n    x_test.go:1: boom\n--- FAIL: %s (0.00s)\nFAIL\n", name, name)
}

func passingTranscript(name string) string {
	return fmt.Sprintf("=== RUN   %s\n--- PASS: %s (0.00s)\nPASS\n", name, name)
}

func TestRunLoop_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	spawn := func(plan Plan, runID string) (runResult, error) {
		calls++
		return runResult{output: passingTranscript(plan.Name)}, nil
	}

	failure, err := runLoop(Plan{Name: "TestOnce", Retries: 5}, spawn)
	require.NoError(t, err)
	require.Nil(t, failure)
	require.Equal(t, 1, calls, "a passing run must not be retried")
}

func TestRunLoop_SucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	spawn := func(plan Plan, runID string) (runResult, error) {
		calls++
		if calls < 3 {
			return runResult{output: failingTranscript(plan.Name), failed: true}, nil
		}
		return runResult{output: passingTranscript(plan.Name)}, nil
	}

	failure, err := runLoop(Plan{Name: "TestFlaky", Retries: 3}, spawn)
	require.NoError(t, err)
	require.Nil(t, failure, "a late success clears earlier failures")
	require.Equal(t, 3, calls)
}

func TestRunLoop_ExhaustsRetries(t *testing.T) {
	calls := 0
	spawn := func(plan Plan, runID string) (runResult, error) {
		calls++
		return runResult{output: failingTranscript(plan.Name), failed: true}, nil
	}

	failure, err := runLoop(Plan{Name: "TestBroken", Retries: 3}, spawn)
	require.NoError(t, err)
	require.NotNil(t, failure)
	require.Contains(t, failure.excerpt, "x_test.go:1: boom")
	require.Equal(t, 3, calls)
}

func TestRunLoop_ZeroRetriesRunsOnce(t *testing.T) {
	calls := 0
	spawn := func(plan Plan, runID string) (runResult, error) {
		calls++
		return runResult{output: passingTranscript(plan.Name)}, nil
	}

	_, err := runLoop(Plan{Name: "TestPlain"}, spawn)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestRunLoop_NonZeroExitWithCleanOutput(t *testing.T) {
	// The exit code alone marks the run failed even when the transcript
	// carries no FAIL line, such as an os.Exit(1) mid-test.
	spawn := func(plan Plan, runID string) (runResult, error) {
		return runResult{output: "partial output\n", failed: true}, nil
	}

	failure, err := runLoop(Plan{Name: "TestExits", Retries: 1}, spawn)
	require.NoError(t, err)
	require.NotNil(t, failure)
	require.Contains(t, failure.excerpt, "partial output")
}

func TestRunLoop_SpawnErrorStopsImmediately(t *testing.T) {
	boom := errors.New("fork failed")
	calls := 0
	spawn := func(plan Plan, runID string) (runResult, error) {
		calls++
		return runResult{}, boom
	}

	_, err := runLoop(Plan{Name: "TestNope", Retries: 3}, spawn)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls, "environment malfunction must not be retried")
}

func TestRunLoop_RunIDReachesSpawnAndFailure(t *testing.T) {
	var seen []string
	spawn := func(plan Plan, runID string) (runResult, error) {
		seen = append(seen, runID)
		return runResult{output: failingTranscript(plan.Name), failed: true}, nil
	}

	failure, err := runLoop(Plan{Name: "TestTagged", Retries: 2}, spawn)
	require.NoError(t, err)
	require.NotNil(t, failure)
	require.Len(t, seen, 2)
	require.NotEqual(t, seen[0], seen[1], "every attempt gets its own id")
	for _, id := range seen {
		require.NoError(t, uuid.Validate(id))
	}
	require.Equal(t, seen[1], failure.runID, "the report names the attempt that produced the excerpt")
}

func TestDispatch_WorkerMarkerRunsBodyDirectly(t *testing.T) {
	t.Setenv(EnvWorker, "1")

	ran := false
	Dispatch(t, Plan{Name: t.Name()}, func(t *testing.T) { ran = true })
	require.True(t, ran)
}

func TestDispatch_ExternalIsolationRunsBodyDirectly(t *testing.T) {
	t.Setenv(EnvIsolated, "process-per-test")

	ran := false
	Dispatch(t, Plan{Name: t.Name(), Retries: 3}, func(t *testing.T) { ran = true })
	require.True(t, ran)
}

// The *Worker tests below are inert in the normal run; they only do their
// work when this binary is re-invoked by spawnWorker with the worker marker
// set. The TestSpawnWorker_* tests drive those re-invocations against the
// real child process.

func TestQuietWorker(t *testing.T) {
	if os.Getenv(EnvWorker) != "1" {
		t.Skip("runs only as a spawned worker")
	}
	if os.Getenv(EnvRunID) == "" {
		t.Fatal("worker started without a run id")
	}
}

func TestGrumpyWorker(t *testing.T) {
	if os.Getenv(EnvWorker) != "1" {
		t.Skip("runs only as a spawned worker")
	}
	t.Errorf("deliberate failure, run %s", os.Getenv(EnvRunID))
}

func TestSleepyWorker(t *testing.T) {
	if os.Getenv(EnvWorker) != "1" {
		t.Skip("runs only as a spawned worker")
	}
	time.Sleep(10 * time.Second)
}

func TestSpawnWorker_RunsSelectedInstance(t *testing.T) {
	res, err := spawnWorker(Plan{Name: "TestQuietWorker", Timeout: time.Minute}, uuid.NewString())
	require.NoError(t, err)
	require.False(t, res.failed)

	_, failed := ScanOutput(res.output, "TestQuietWorker")
	require.False(t, failed)
}

func TestSpawnWorker_CapturesFailureAcrossProcess(t *testing.T) {
	runID := uuid.NewString()
	res, err := spawnWorker(Plan{Name: "TestGrumpyWorker", Timeout: time.Minute}, runID)
	require.NoError(t, err)
	require.True(t, res.failed, "a failing worker exits non-zero")

	excerpt, failed := ScanOutput(res.output, "TestGrumpyWorker")
	require.True(t, failed)
	require.Contains(t, excerpt, "deliberate failure, run "+runID)
}

func TestSpawnWorker_TimeoutKillsWorker(t *testing.T) {
	start := time.Now()
	_, err := spawnWorker(Plan{Name: "TestSleepyWorker", Timeout: 500 * time.Millisecond}, uuid.NewString())
	require.Error(t, err)
	require.Contains(t, err.Error(), "test timed out after 500ms")
	require.Less(t, time.Since(start), 5*time.Second, "the worker must be killed, not waited out")
}
