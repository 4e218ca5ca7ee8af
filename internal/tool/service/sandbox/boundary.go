// Package sandbox confines tool paths to a fixed set of directory roots.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const maxSymlinkHops = 64

// fileSystem is the subset of filesystem calls needed to resolve paths.
type fileSystem interface {
	Lstat(path string) (os.FileInfo, error)
	Readlink(path string) (string, error)
	UserHomeDir() (string, error)
}

type osFileSystem struct{}

func (osFileSystem) Lstat(path string) (os.FileInfo, error) { return os.Lstat(path) }
func (osFileSystem) Readlink(path string) (string, error)   { return os.Readlink(path) }
func (osFileSystem) UserHomeDir() (string, error)           { return os.UserHomeDir() }

// Boundary is the set of directories tools may touch: the working directory
// plus any extra roots such as the system temp directory. It is immutable
// after construction and safe for concurrent use.
type Boundary struct {
	workingDir string
	extraRoots []string
	fs         fileSystem
}

// New builds a Boundary on the real filesystem.
func New(workingDir string, extraRoots ...string) (*Boundary, error) {
	return NewWithFS(osFileSystem{}, workingDir, extraRoots...)
}

// NewWithFS builds a Boundary that resolves symlinks through fsys.
// All roots are canonicalised against the real filesystem first.
func NewWithFS(fsys fileSystem, workingDir string, extraRoots ...string) (*Boundary, error) {
	wd, err := CanonicaliseRoot(workingDir)
	if err != nil {
		return nil, err
	}
	b := &Boundary{workingDir: wd, fs: fsys}
	for _, r := range extraRoots {
		root, err := CanonicaliseRoot(r)
		if err != nil {
			return nil, err
		}
		if root == wd || containsPath(b.extraRoots, root) {
			continue
		}
		b.extraRoots = append(b.extraRoots, root)
	}
	return b, nil
}

// CanonicaliseRoot makes root absolute, resolves its symlinks and checks that it is a directory.
func CanonicaliseRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &RootError{Root: root, Cause: err}
	}
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", &RootError{Root: absRoot, Cause: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &RootError{Root: resolved, Cause: err}
	}
	if !info.IsDir() {
		return "", &RootError{Root: resolved, Cause: ErrNotADirectory}
	}
	return resolved, nil
}

// WorkingDir returns the canonical working directory.
func (b *Boundary) WorkingDir() string {
	return b.workingDir
}

// Roots returns a copy of every allowed root, working directory first.
func (b *Boundary) Roots() []string {
	roots := make([]string, 0, len(b.extraRoots)+1)
	roots = append(roots, b.workingDir)
	return append(roots, b.extraRoots...)
}

// Contains reports whether an already-resolved absolute path lies within a root.
func (b *Boundary) Contains(abs string) bool {
	return b.rootOf(abs) != ""
}

// Resolve turns a tool-supplied path into an absolute, symlink-free path
// inside the boundary. Relative paths are taken from the working directory.
// Components that do not exist yet are kept as-is so writes can create them.
// No file is opened; only Lstat and Readlink are used.
func (b *Boundary) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := b.fs.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(b.workingDir, abs)
	}
	abs = filepath.Clean(abs)

	resolved, err := b.realpath(path, abs)
	if err != nil {
		return "", err
	}
	if !b.Contains(resolved) {
		return "", &OutsideError{Path: path, Resolved: resolved}
	}
	return resolved, nil
}

// Rel renders a resolved path for display: relative to the working directory
// when inside it, absolute otherwise.
func (b *Boundary) Rel(abs string) string {
	if abs == b.workingDir {
		return "."
	}
	if within(abs, b.workingDir) {
		rel, err := filepath.Rel(b.workingDir, abs)
		if err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return abs
}

// realpath walks abs one component at a time from the filesystem root,
// following symlinks. A symlink living inside a root must point inside a
// root; links above the roots (e.g. /var -> /private/var) are followed freely
// and judged by the final containment check.
func (b *Boundary) realpath(orig, abs string) (string, error) {
	vol := filepath.VolumeName(abs)
	rootDir := vol + string(filepath.Separator)
	pending := splitComponents(strings.TrimPrefix(abs, vol))
	current := rootDir
	hops := 0

	for len(pending) > 0 {
		part := pending[0]
		pending = pending[1:]

		next := filepath.Join(current, part)
		info, err := b.fs.Lstat(next)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.Join(append([]string{next}, pending...)...), nil
			}
			return "", fmt.Errorf("lstat %s: %w", next, err)
		}

		if info.Mode()&os.ModeSymlink == 0 {
			current = next
			continue
		}

		hops++
		if hops > maxSymlinkHops {
			return "", &SymlinkLoopError{Path: orig, Hops: maxSymlinkHops}
		}
		target, err := b.fs.Readlink(next)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", next, err)
		}

		targetAbs := target
		if !filepath.IsAbs(targetAbs) {
			targetAbs = filepath.Join(current, targetAbs)
		}
		targetAbs = filepath.Clean(targetAbs)
		if b.Contains(next) && !b.Contains(targetAbs) {
			return "", &OutsideError{Path: orig, Resolved: targetAbs}
		}

		targetVol := filepath.VolumeName(targetAbs)
		current = targetVol + string(filepath.Separator)
		pending = append(splitComponents(strings.TrimPrefix(targetAbs, targetVol)), pending...)
	}
	return current, nil
}

func (b *Boundary) rootOf(abs string) string {
	if within(abs, b.workingDir) {
		return b.workingDir
	}
	for _, r := range b.extraRoots {
		if within(abs, r) {
			return r
		}
	}
	return ""
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func splitComponents(p string) []string {
	parts := strings.Split(filepath.ToSlash(p), "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

func containsPath(list []string, p string) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
