package search

import "os"

// fileSystem defines the minimal filesystem interface needed by search tools.
type fileSystem interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// ignoreMatcher decides whether a path relative to the search root is skipped.
type ignoreMatcher interface {
	ShouldIgnore(relativePath string, isDir bool) bool
}
