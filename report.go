package assay

import (
	"sync"
	"sync/atomic"
	"testing"
)

// FailureReporter surfaces a worker failure on the dispatcher's *testing.T.
// The excerpt is the worker's own diagnostic text, captured across the
// process boundary; runID identifies the failing attempt and matches the
// ASSAY_RUN_ID the worker saw in its environment.
type FailureReporter func(t *testing.T, instance, runID, excerpt string)

var (
	reporterOnce sync.Once
	reporterVal  atomic.Pointer[FailureReporter]
)

// SetFailureReporter installs a process-wide replacement for the default
// failure-reporting path. Only the first call in the process has any effect;
// later calls are ignored and the installed reporter is never reverted. It
// is safe to call from concurrently running instances.
func SetFailureReporter(fn FailureReporter) {
	reporterOnce.Do(func() {
		reporterVal.Store(&fn)
	})
}

// reportFailure hands the captured excerpt to the installed reporter, or to
// the default one, which reproduces the worker's diagnostic verbatim as the
// instance's failure message.
func reportFailure(t *testing.T, instance, runID, excerpt string) {
	t.Helper()
	if fn := reporterVal.Load(); fn != nil {
		(*fn)(t, instance, runID, excerpt)
		return
	}
	t.Fatalf("%s failed in worker process (run %s):\n%s", instance, runID, excerpt)
}
