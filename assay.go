// Package assay is the runtime half of the assay test framework. Generated
// wrapper tests (written by cmd/assay from //assay: annotations) call into
// this package to re-execute themselves in an isolated child process with
// optional timeout and retry semantics, and to stage fixtures into a private
// working directory.
//
// Nothing here is useful without the generator, but everything here is plain
// Go: a wrapper test is an ordinary test function and runs under the stock
// go test harness.
package assay

// Environment markers shared between the dispatcher and worker processes.
const (
	// EnvWorker is set by the dispatcher before spawning the worker child.
	// A process that sees it knows it is the re-invoked worker and must run
	// the test body directly.
	EnvWorker = "ASSAY_SPLIT"

	// EnvIsolated is set externally by a harness that already isolates each
	// test into its own process. When present, dispatching would be
	// redundant and the body runs directly.
	EnvIsolated = "ASSAY_ISOLATED"

	// EnvRunID carries the attempt's unique id into the worker child. The
	// same id appears in the dispatcher's failure report, so worker-side
	// logs and artifacts tagged with it can be matched to the attempt that
	// produced them.
	EnvRunID = "ASSAY_RUN_ID"
)
