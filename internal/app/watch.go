package app

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mgattozzi/assay/internal/codegen"
	"github.com/mgattozzi/assay/internal/fsutil"
)

// debounceInterval coalesces bursts of filesystem events (editors write,
// rename and chmod in quick succession) into one regeneration pass.
const debounceInterval = 300 * time.Millisecond

// watch runs one pass immediately, then keeps regenerating whenever an
// annotated source file changes, until the context is cancelled. A failing
// pass is reported and watched through; only watcher breakage ends the loop.
func (a *App) watch(ctx context.Context) error {
	if err := a.runOnce(ctx); err != nil {
		a.logger.Error("Initial generation pass failed.", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range a.config.Paths {
		dirs, err := fsutil.FindDirs(root)
		if err != nil {
			return err
		}
		for _, dir := range dirs {
			if err := watcher.Add(dir); err != nil {
				return err
			}
			a.logger.Debug("Watching directory.", "dir", dir)
		}
	}
	a.logger.Info("👀 Watching for changes. Press Ctrl+C to stop.")

	debounce := time.NewTimer(debounceInterval)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			a.logger.Debug("Source change detected.", "path", event.Name, "op", event.Op.String())
			debounce.Reset(debounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("Watcher error.", "error", err)

		case <-debounce.C:
			if err := a.runOnce(ctx); err != nil {
				a.logger.Error("Generation pass failed.", "error", err)
			}
		}
	}
}

// relevantEvent filters for annotated source files: _test.go files that are
// not the generator's own output, on operations that change content.
func relevantEvent(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	if !strings.HasSuffix(event.Name, "_test.go") {
		return false
	}
	return !codegen.IsGenerated(event.Name)
}
