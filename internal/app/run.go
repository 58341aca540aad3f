package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/hashicorp/hcl/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mgattozzi/assay/internal/codegen"
	"github.com/mgattozzi/assay/internal/ctxlog"
	"github.com/mgattozzi/assay/internal/directive"
	"github.com/mgattozzi/assay/internal/fsutil"
)

// fileOutcome is the result of processing one annotated source file.
// generated is nil when the file holds no annotations.
type fileOutcome struct {
	path      string
	generated []byte
	summaries []codegen.TestSummary
	diags     hcl.Diagnostics
}

// Run executes the main application logic based on the provided
// configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Watch {
		return a.watch(ctx)
	}
	return a.runOnce(ctx)
}

// runOnce performs one full scan-expand-generate pass over every configured
// path and applies the selected mode to the results.
func (a *App) runOnce(ctx context.Context) error {
	files, err := a.collectFiles()
	if err != nil {
		return err
	}
	a.logger.Debug("Test files collected.", "count", len(files))

	outcomes, err := a.processAll(ctx, files)
	if err != nil {
		return err
	}

	if a.printDiagnostics(outcomes) {
		return fmt.Errorf("annotations contain errors")
	}

	switch {
	case a.config.List:
		return a.renderList(outcomes)
	case a.config.Check:
		return a.checkOutcomes(outcomes)
	default:
		return a.writeOutcomes(outcomes)
	}
}

// collectFiles resolves every configured path and de-duplicates the union.
func (a *App) collectFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range a.config.Paths {
		found, err := fsutil.FindTestFiles(root, codegen.Suffix)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// processAll runs the per-file pipeline concurrently, bounded by the
// configured worker count. Outcomes keep the input order.
func (a *App) processAll(ctx context.Context, files []string) ([]fileOutcome, error) {
	outcomes := make([]fileOutcome, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome, err := a.processOne(path)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (a *App) processOne(path string) (fileOutcome, error) {
	a.logger.Debug("Processing file.", "path", path)

	file, diags, err := directive.ScanFile(path)
	if err != nil {
		return fileOutcome{}, err
	}
	outcome := fileOutcome{path: path, diags: diags}
	if diags.HasErrors() {
		return outcome, nil
	}

	generated, genDiags, err := codegen.Generate(file)
	outcome.diags = append(outcome.diags, genDiags...)
	if err != nil {
		return fileOutcome{}, err
	}
	if outcome.diags.HasErrors() {
		return outcome, nil
	}
	outcome.generated = generated

	if a.config.List {
		summaries, _ := codegen.Tests(file)
		outcome.summaries = summaries
	}
	return outcome, nil
}

// printDiagnostics renders every collected diagnostic with its source
// snippet and reports whether any of them is an error.
func (a *App) printDiagnostics(outcomes []fileOutcome) bool {
	var all hcl.Diagnostics
	sources := make(map[string]*hcl.File)

	for _, o := range outcomes {
		if len(o.diags) == 0 {
			continue
		}
		all = append(all, o.diags...)
		if _, ok := sources[o.path]; !ok {
			if data, err := os.ReadFile(o.path); err == nil {
				sources[o.path] = &hcl.File{Bytes: data}
			}
		}
	}
	if len(all) == 0 {
		return false
	}

	writer := hcl.NewDiagnosticTextWriter(a.outW, sources, 100, !color.NoColor)
	if err := writer.WriteDiagnostics(all); err != nil {
		a.logger.Error("Failed to render diagnostics.", "error", err)
	}
	return all.HasErrors()
}

// checkOutcomes verifies every companion file on disk matches what would be
// generated now. Used by CI; any drift is an error.
func (a *App) checkOutcomes(outcomes []fileOutcome) error {
	var stale []string

	for _, o := range outcomes {
		target := codegen.OutputPath(o.path)
		existing, err := os.ReadFile(target)
		exists := err == nil

		switch {
		case o.generated == nil && exists:
			stale = append(stale, target+" (orphaned, source has no annotations)")
		case o.generated != nil && !exists:
			stale = append(stale, target+" (missing)")
		case o.generated != nil && !bytes.Equal(existing, o.generated):
			stale = append(stale, target+" (out of date)")
		}
	}

	if len(stale) > 0 {
		for _, s := range stale {
			fmt.Fprintln(a.outW, color.RedString("✗ %s", s))
		}
		return fmt.Errorf("%d generated file(s) are stale, run assay to refresh them", len(stale))
	}

	fmt.Fprintln(a.outW, color.GreenString("✓ all generated files are up to date"))
	return nil
}

// writeOutcomes materializes the generation results: write changed
// companions, remove orphaned ones, leave identical ones untouched.
func (a *App) writeOutcomes(outcomes []fileOutcome) error {
	var written, removed, unchanged int

	for _, o := range outcomes {
		target := codegen.OutputPath(o.path)
		existing, err := os.ReadFile(target)
		exists := err == nil

		switch {
		case o.generated == nil && exists:
			if err := os.Remove(target); err != nil {
				return fmt.Errorf("failed to remove orphaned %s: %w", target, err)
			}
			a.logger.Info("Removed orphaned file.", "path", target)
			removed++
		case o.generated == nil:
			// Nothing annotated, nothing on disk.
		case exists && bytes.Equal(existing, o.generated):
			unchanged++
		default:
			if err := os.WriteFile(target, o.generated, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", target, err)
			}
			a.logger.Debug("Wrote generated file.", "path", target)
			written++
		}
	}

	fmt.Fprintln(a.outW, color.GreenString("✓ %d file(s) written, %d removed, %d unchanged", written, removed, unchanged))
	return nil
}
