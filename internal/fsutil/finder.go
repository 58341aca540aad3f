// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// skippedDirs are never descended into when walking a tree: dependency
// vendoring, fixtures, and anything the Go toolchain itself ignores.
var skippedDirs = map[string]bool{
	"vendor":   true,
	"testdata": true,
	".git":     true,
}

// FindTestFiles resolves root to the list of candidate _test.go files. A
// root naming a file is returned as-is when it qualifies; a directory is
// walked recursively. Files matching skipSuffix (the generator's own output)
// are excluded so a scan never consumes what it produced.
func FindTestFiles(root string, skipSuffix string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", root, err)
	}

	if !info.IsDir() {
		if !isCandidate(filepath.Base(root), skipSuffix) {
			return nil, fmt.Errorf("%s is not a _test.go file", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skippedDirs[name] || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if isCandidate(d.Name(), skipSuffix) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// FindDirs returns every directory a test-file walk of root would visit,
// including root itself. A root naming a file yields its parent directory.
func FindDirs(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{filepath.Dir(root)}, nil
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (skippedDirs[name] || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return dirs, nil
}

func isCandidate(name, skipSuffix string) bool {
	if !strings.HasSuffix(name, "_test.go") {
		return false
	}
	return skipSuffix == "" || !strings.HasSuffix(name, skipSuffix)
}
