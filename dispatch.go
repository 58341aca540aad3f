package assay

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mgattozzi/assay/internal/duration"
)

// Plan is the per-instance dispatch configuration. It is produced by the
// code generator; all instances expanded from one annotation share the same
// timeout and retry settings.
type Plan struct {
	// Name is the generated wrapper's exact test name, used both to select
	// the instance in the child process and to scan its output.
	Name string

	// Timeout bounds one worker run. Zero means wait forever.
	Timeout time.Duration

	// Retries is the total number of attempts (1 = run once). Zero is
	// treated as 1.
	Retries int
}

// Dispatch implements the dispatcher/worker state machine around a worker
// body. The body runs directly when an external harness already isolates
// per test, or when this process is itself the spawned worker; otherwise the
// current test binary is re-invoked with only this instance selected, and
// its output is inspected for failure.
func Dispatch(t *testing.T, plan Plan, worker func(*testing.T)) {
	t.Helper()

	if os.Getenv(EnvIsolated) != "" {
		worker(t)
		return
	}
	if os.Getenv(EnvWorker) == "1" {
		worker(t)
		return
	}

	failure, err := runLoop(plan, spawnWorker)
	if err != nil {
		// Timeouts are instance failures; anything else is environment
		// malfunction and equally fatal, just with its own message.
		t.Fatal(err)
	}
	if failure != nil {
		reportFailure(t, plan.Name, failure.runID, failure.excerpt)
	}
}

// runResult is one worker run as seen by the dispatcher: the combined output
// and whether the process exited non-zero.
type runResult struct {
	output string
	failed bool
}

// spawnFunc runs one worker attempt under the given run id. Implementations
// return an error only for environment malfunction (spawn/wait/kill failure)
// or timeout; a test failure is a normal result.
type spawnFunc func(plan Plan, runID string) (runResult, error)

// runFailure is the remembered outcome of the last failing attempt: the
// captured excerpt and the id of the run that produced it.
type runFailure struct {
	excerpt string
	runID   string
}

// runLoop is the dispatcher's retry loop: run, inspect, remember the last
// failure, stop early the moment an attempt succeeds. Each attempt gets a
// fresh run id, handed to the worker and carried into the failure report.
// Returns nil on success.
func runLoop(plan Plan, spawn spawnFunc) (*runFailure, error) {
	retries := plan.Retries
	if retries < 1 {
		retries = 1
	}

	var lastFailure *runFailure
	for attempt := 1; attempt <= retries; attempt++ {
		runID := uuid.NewString()
		slog.Debug("assay: spawning worker process",
			"instance", plan.Name, "attempt", attempt, "run_id", runID)

		res, err := spawn(plan, runID)
		if err != nil {
			return nil, err
		}

		excerpt, failed := ScanOutput(res.output, plan.Name)
		if failed || res.failed {
			if excerpt == "" {
				// A non-zero exit without any recognizable marker, such as
				// os.Exit mid-test. The raw transcript is all there is.
				excerpt = strings.TrimSpace(res.output)
			}
			if excerpt == "" {
				excerpt = fmt.Sprintf("%s failed in the worker process with no captured output", plan.Name)
			}
			lastFailure = &runFailure{excerpt: excerpt, runID: runID}
			continue
		}
		lastFailure = nil
		break
	}
	return lastFailure, nil
}

// spawnWorker re-invokes the current test binary selecting exactly one
// instance, marks the child as the worker, and applies the timeout bound.
func spawnWorker(plan Plan, runID string) (runResult, error) {
	binary := os.Args[0]

	cmd := exec.Command(binary, "-test.run=^"+plan.Name+"$", "-test.v=true")
	cmd.Env = append(os.Environ(), EnvWorker+"=1", EnvRunID+"="+runID)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return runResult{}, fmt.Errorf("failed to spawn worker process for %s: %w", plan.Name, err)
	}

	if plan.Timeout <= 0 {
		err := cmd.Wait()
		return waitResult(out.String(), err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(plan.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return waitResult(out.String(), err)
	case <-timer.C:
		// Kill unconditionally, then reap so no zombie is left behind.
		if err := cmd.Process.Kill(); err != nil {
			return runResult{}, fmt.Errorf("failed to kill timed-out worker for %s: %w", plan.Name, err)
		}
		<-done
		millis := int64(plan.Timeout / time.Millisecond)
		return runResult{}, fmt.Errorf("test timed out after %s", duration.Format(millis))
	}
}

// waitResult classifies a Wait error: a non-zero exit is the structured
// "worker failed" signal, anything else is environment malfunction.
func waitResult(output string, err error) (runResult, error) {
	if err == nil {
		return runResult{output: output}, nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return runResult{output: output, failed: true}, nil
	}
	return runResult{}, fmt.Errorf("failed to wait on worker process: %w", err)
}
