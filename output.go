package assay

import "strings"

// Worker-output markers. The child is a stock go test binary run with
// -test.v, so its transcript has a stable, matchable shape: a "=== RUN"
// section header per test, the test's own output indented beneath it, then a
// "--- PASS"/"--- FAIL" result line and a final summary.
const (
	runHeaderPrefix  = "=== "
	resultPrefix     = "--- "
	failResultPrefix = "--- FAIL: "
	panicPrefix      = "panic: "
)

// summaryPrefixes end a test's output section in a -test.v transcript.
var summaryPrefixes = []string{"FAIL", "PASS", "ok "}

// ScanOutput inspects a worker transcript for the named instance's failure.
// It reports failed=true when the instance's FAIL result line is present or
// the process died with a raw panic, and returns the portion of output
// between the instance's section header and the next section or summary
// marker — the test's own diagnostic, reproduced verbatim.
func ScanOutput(output, name string) (excerpt string, failed bool) {
	if !strings.Contains(output, failResultPrefix+name) && !hasRawPanic(output) {
		return "", false
	}
	return extractSection(output, name), true
}

// hasRawPanic looks for an unindented runtime panic line. Test-printed text
// is indented by the harness, so a column-zero "panic: " means the worker
// process itself blew up.
func hasRawPanic(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, panicPrefix) {
			return true
		}
	}
	return false
}

// extractSection pulls the lines the instance printed: everything after its
// "=== RUN" header up to the next header, result line, or summary. When the
// header is missing (the process crashed before the harness printed it), the
// whole transcript is the best available diagnostic.
func extractSection(output, name string) string {
	lines := strings.Split(output, "\n")
	header := "=== RUN   " + name

	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, " \t") == header {
			start = i + 1
			break
		}
	}
	if start == -1 {
		return strings.TrimSpace(output)
	}

	var section []string
	for _, line := range lines[start:] {
		if strings.HasPrefix(line, runHeaderPrefix) || strings.HasPrefix(line, resultPrefix) || isSummary(line) {
			break
		}
		section = append(section, line)
	}
	return strings.TrimSpace(strings.Join(section, "\n"))
}

func isSummary(line string) bool {
	for _, prefix := range summaryPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
