package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mgattozzi/assay/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("assay", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
assay - generates isolated, retryable test wrappers from //assay: annotations.

Usage:
  assay [options] [PATH ...]

Arguments:
  PATH
    Files or directories to scan for annotated _test.go files.
    Defaults to the current directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", ".assay.yaml", "Path to the optional project configuration file.")
	checkFlag := flagSet.Bool("check", false, "Verify generated files are up to date instead of writing them.")
	listFlag := flagSet.Bool("list", false, "Print the expanded test instances without generating code.")
	watchFlag := flagSet.Bool("watch", false, "Keep running, regenerating whenever a source file changes.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of files processed concurrently.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	fileConfig, err := app.LoadFileConfig(*configFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	paths := flagSet.Args()
	if len(paths) == 0 {
		paths = fileConfig.Paths
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	slog.Debug("Scan paths determined.", "paths", paths)

	logFormat, err := app.ParseFormat(firstOf(*logFormatFlag, fileConfig.LogFormat))
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logLevel := strings.ToLower(firstOf(*logLevelFlag, fileConfig.LogLevel, "info"))
	if _, err := app.ParseLevel(logLevel); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	workers := *workersFlag
	if workers == 0 {
		workers = fileConfig.Workers
	}
	if workers == 0 {
		workers = 8
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Paths:     paths,
		Check:     *checkFlag,
		List:      *listFlag,
		Watch:     *watchFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
		Workers:   workers,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// firstOf returns the first non-empty value.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
