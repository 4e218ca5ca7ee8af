package search

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/tool/service/git"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
)

// errStopWalk ends a walk early without reporting an error.
var errStopWalk = errors.New("stop walk")

// loadIgnore returns the .gitignore rules under root, or a matcher that
// ignores nothing when they cannot be read.
func loadIgnore(root string) ignoreMatcher {
	m, err := git.NewIgnoreMatcher(root)
	if err != nil {
		return git.NoOpMatcher{}
	}
	return m
}

// resolveRoot resolves an optional directory argument against the sandbox.
func resolveRoot(fsys fileSystem, sb *sandbox.Boundary, path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := sb.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := fsys.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &FileMissingError{Path: sb.Rel(abs)}
		}
		return "", &StatError{Path: sb.Rel(abs), Cause: err}
	}
	if !info.IsDir() {
		return "", &NotDirectoryError{Path: sb.Rel(abs)}
	}
	return abs, nil
}

// walkFiles calls visit for every non-directory entry below root in
// lexical order. The .git directory and ignored paths are skipped, as are
// dot-entries unless showHidden is set. Unreadable subdirectories are skipped.
// Returning errStopWalk from visit ends the walk cleanly.
func walkFiles(ctx context.Context, root string, ignore ignoreMatcher, showHidden bool,
	visit func(abs, rel string, d fs.DirEntry) error) error {
	err := filepath.WalkDir(root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			if abs == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if abs == root {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, abs)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		hidden := strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if d.Name() == ".git" || (hidden && !showHidden) || ignore.ShouldIgnore(rel, true) {
				return fs.SkipDir
			}
			return nil
		}
		if (hidden && !showHidden) || ignore.ShouldIgnore(rel, false) {
			return nil
		}
		return visit(abs, rel, d)
	})
	if errors.Is(err, errStopWalk) {
		return nil
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return &WalkError{Path: root, Cause: err}
	}
	return err
}
