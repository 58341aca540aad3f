package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const annotatedSource = `package demo

import "testing"

//assay:
// retries = 2
func flaky(t *testing.T) {}
`

const plainSource = `package demo

import "testing"

func TestOrdinary(t *testing.T) {}
`

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRun_GeneratesCompanionFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "flaky_test.go", annotatedSource)

	testApp, _ := SetupAppTest(t, Config{Paths: []string{dir}})
	require.NoError(t, testApp.Run(context.Background()))

	generated, err := os.ReadFile(filepath.Join(dir, "flaky_assay_test.go"))
	require.NoError(t, err)
	require.Contains(t, string(generated), "func TestFlaky(t *testing.T) {")
	require.Contains(t, string(generated), "Retries: 2,")
}

func TestRun_UnannotatedFileProducesNothing(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ordinary_test.go", plainSource)

	testApp, _ := SetupAppTest(t, Config{Paths: []string{dir}})
	require.NoError(t, testApp.Run(context.Background()))

	require.NoFileExists(t, filepath.Join(dir, "ordinary_assay_test.go"))
}

func TestRun_RemovesOrphanedCompanion(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ordinary_test.go", plainSource)
	orphan := writeSource(t, dir, "ordinary_assay_test.go", "package demo\n")

	testApp, _ := SetupAppTest(t, Config{Paths: []string{dir}})
	require.NoError(t, testApp.Run(context.Background()))

	require.NoFileExists(t, orphan)
}

func TestRun_CheckModeFlagsMissingCompanion(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "flaky_test.go", annotatedSource)

	testApp, buffer := SetupAppTest(t, Config{Paths: []string{dir}, Check: true})
	err := testApp.Run(context.Background())
	require.ErrorContains(t, err, "stale")
	require.Contains(t, buffer.String(), "missing")
}

func TestRun_CheckModePassesWhenCurrent(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "flaky_test.go", annotatedSource)

	generate, _ := SetupAppTest(t, Config{Paths: []string{dir}})
	require.NoError(t, generate.Run(context.Background()))

	check, _ := SetupAppTest(t, Config{Paths: []string{dir}, Check: true})
	require.NoError(t, check.Run(context.Background()))
}

func TestRun_CheckModeFlagsDrift(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "flaky_test.go", annotatedSource)

	generate, _ := SetupAppTest(t, Config{Paths: []string{dir}})
	require.NoError(t, generate.Run(context.Background()))

	// Edit the annotation; the companion on disk is now out of date.
	writeSource(t, dir, "flaky_test.go", `package demo

import "testing"

//assay:
// retries = 5
func flaky(t *testing.T) {}
`)

	check, buffer := SetupAppTest(t, Config{Paths: []string{dir}, Check: true})
	err := check.Run(context.Background())
	require.ErrorContains(t, err, "stale")
	require.Contains(t, buffer.String(), "out of date")
}

func TestRun_ListModePrintsInstances(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "signs_test.go", `package demo

import "testing"

//assay:
// timeout = "1s"
// cases = {
//   positive = [1]
//   negative = [-1]
// }
func signs(t *testing.T, n int) {}
`)

	testApp, buffer := SetupAppTest(t, Config{Paths: []string{dir}, List: true})
	require.NoError(t, testApp.Run(context.Background()))

	out := buffer.String()
	require.Contains(t, out, "TestSigns_positive")
	require.Contains(t, out, "TestSigns_negative")
	require.Contains(t, out, "1s")
	require.NoFileExists(t, filepath.Join(dir, "signs_assay_test.go"), "list mode must not write files")
}

func TestRun_DiagnosticsAbortWithSourceContext(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "broken_test.go", `package demo

import "testing"

// broken restarts a flaky worker.
// The extra comment lines push the annotation deep enough into the file
// that a snippet quoting the wrong line is easy to tell apart.
//assay:
// retries = 0
func broken(t *testing.T) {}
`)

	testApp, buffer := SetupAppTest(t, Config{Paths: []string{dir}})
	err := testApp.Run(context.Background())
	require.ErrorContains(t, err, "annotations contain errors")

	out := buffer.String()
	require.Contains(t, out, "Retries cannot be zero")
	// The quoted snippet must be the line that carries the bad value, not
	// some earlier line of the file.
	require.Contains(t, out, "broken_test.go line 9")
	require.Contains(t, out, "9: // retries = ")
	require.NoFileExists(t, filepath.Join(dir, "broken_assay_test.go"))
}

func TestNewConfig_Validation(t *testing.T) {
	_, err := NewConfig(Config{Workers: 4})
	require.ErrorContains(t, err, "Paths")

	_, err = NewConfig(Config{Paths: []string{"."}, Workers: 0})
	require.ErrorContains(t, err, "Workers")

	_, err = NewConfig(Config{Paths: []string{"."}, Workers: 1, Check: true, Watch: true})
	require.ErrorContains(t, err, "mutually exclusive")
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".assay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  - ./pkg\nworkers: 4\nlog_level: debug\n"), 0o644))

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)
	require.Equal(t, []string{"./pkg"}, fc.Paths)
	require.Equal(t, 4, fc.Workers)
	require.Equal(t, "debug", fc.LogLevel)
}

func TestLoadFileConfig_MissingFileIsZero(t *testing.T) {
	fc, err := LoadFileConfig(filepath.Join(t.TempDir(), ".assay.yaml"))
	require.NoError(t, err)
	require.Empty(t, fc.Paths)
}
