package assay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Fixture-staging error kinds, distinguishable with errors.Is.
var (
	ErrMissingSource  = errors.New("include source does not exist")
	ErrNotRegularFile = errors.New("include source is not a regular file")
)

// PrivateFS is a fresh, exclusively owned working directory for one worker
// process. Creating it changes the process working directory into the new
// temp dir; Close restores the original directory and removes the tree.
type PrivateFS struct {
	ranFrom string
	dir     string
}

// NewPrivateFS creates the isolated directory and makes it current.
func NewPrivateFS() (*PrivateFS, error) {
	ranFrom, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve the original working directory: %w", err)
	}
	dir, err := os.MkdirTemp("", "private")
	if err != nil {
		return nil, fmt.Errorf("failed to create the isolated directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to enter the isolated directory: %w", err)
	}
	return &PrivateFS{ranFrom: ranFrom, dir: dir}, nil
}

// Dir returns the isolated directory's path.
func (p *PrivateFS) Dir() string { return p.dir }

// Include copies a file from the original working directory into the
// isolated root, keeping only its base filename.
func (p *PrivateFS) Include(source string) error {
	return p.copyIn(source, filepath.Base(source))
}

// IncludeAs copies a file to an explicit relative destination inside the
// isolated directory, creating intermediate directories as needed.
func (p *PrivateFS) IncludeAs(source, dest string) error {
	return p.copyIn(source, dest)
}

func (p *PrivateFS) copyIn(source, dest string) error {
	resolved := source
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(p.ranFrom, source)
	}

	info, err := os.Stat(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("include %q (resolved %q): %w", source, resolved, ErrMissingSource)
	case err != nil:
		return fmt.Errorf("include %q (resolved %q): %w", source, resolved, err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("include %q (resolved %q): %w", source, resolved, ErrNotRegularFile)
	}

	target := filepath.Join(p.dir, dest)
	if parent := filepath.Dir(target); parent != p.dir {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("include %q: failed to create %q: %w", source, parent, err)
		}
	}

	in, err := os.Open(resolved)
	if err != nil {
		return fmt.Errorf("include %q (resolved %q): %w", source, resolved, err)
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("include %q: failed to create %q: %w", source, target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("include %q: failed to copy to %q: %w", source, target, err)
	}
	return out.Close()
}

// Close leaves and removes the isolated directory. It is safe to call via
// defer even when the test body has already failed.
func (p *PrivateFS) Close() error {
	if err := os.Chdir(p.ranFrom); err != nil {
		return fmt.Errorf("failed to restore the working directory: %w", err)
	}
	return os.RemoveAll(p.dir)
}
