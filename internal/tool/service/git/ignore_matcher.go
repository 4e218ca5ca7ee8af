package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// GitignoreReadError is returned when .gitignore files under a root cannot be read.
type GitignoreReadError struct {
	Root  string
	Cause error
}

func (e *GitignoreReadError) Error() string {
	return fmt.Sprintf("failed to read .gitignore files under %s: %v", e.Root, e.Cause)
}
func (e *GitignoreReadError) Unwrap() error { return e.Cause }

// IgnoreMatcher applies the .gitignore files found under a root directory,
// including nested ones. The .git directory itself is always ignored.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// NewIgnoreMatcher loads every .gitignore below root.
// A root without any .gitignore yields a matcher that only skips .git.
func NewIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	if root == "" {
		panic("root is required")
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, &GitignoreReadError{Root: root, Cause: err}
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ShouldIgnore checks a path relative to the matcher's root.
func (m *IgnoreMatcher) ShouldIgnore(relativePath string, isDir bool) bool {
	segments := splitPath(relativePath)
	if len(segments) == 0 {
		return false
	}
	for _, s := range segments {
		if s == ".git" {
			return true
		}
	}
	return m.matcher.Match(segments, isDir)
}

// NoOpMatcher never ignores anything.
type NoOpMatcher struct{}

// ShouldIgnore always returns false for NoOpMatcher.
func (NoOpMatcher) ShouldIgnore(string, bool) bool {
	return false
}

// PathPattern is a glob using gitignore syntax: "*.go" matches at any
// depth, patterns containing a slash are anchored, and "**" spans directories.
type PathPattern struct {
	raw     string
	pattern gitignore.Pattern
}

// CompilePattern validates and compiles a glob.
func CompilePattern(pattern string) (*PathPattern, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	for _, seg := range strings.Split(filepath.ToSlash(pattern), "/") {
		if _, err := filepath.Match(seg, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return &PathPattern{raw: pattern, pattern: gitignore.ParsePattern(pattern, nil)}, nil
}

// Match reports whether a file path relative to the search root matches.
func (p *PathPattern) Match(relativePath string) bool {
	return p.pattern.Match(splitPath(relativePath), false) == gitignore.Exclude
}

func (p *PathPattern) String() string {
	return p.raw
}

// splitPath splits a path into segments for gitignore matching,
// dropping empty and "." segments.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(path), "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
