package fs

import (
	"os"
	"path/filepath"
)

// OSFileSystem is the file layer every file tool talks to once a path has
// passed sandbox resolution.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OSFileSystem.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// Stat returns file info for a path (follows symlinks).
func (fs *OSFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Lstat returns file info for a path without following symlinks.
func (fs *OSFileSystem) Lstat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

// Readlink reads the target of a symlink.
func (fs *OSFileSystem) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

// UserHomeDir returns the current user's home directory.
func (fs *OSFileSystem) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// ReadFile reads a whole file.
func (fs *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// EnsureDirs creates a directory and its parents if they don't exist.
func (fs *OSFileSystem) EnsureDirs(path string) error {
	return os.MkdirAll(path, 0o755)
}

// WriteFileAtomic writes content through a temp file in the target directory
// followed by a rename, so readers never observe a half-written file.
func (fs *OSFileSystem) WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".ok-tmp-*")
	if err != nil {
		return &AtomicWriteError{Path: path, Stage: StageCreateTemp, Cause: err}
	}
	tmpPath := tmpFile.Name()

	needsCleanup := true
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if needsCleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return &AtomicWriteError{Path: path, Stage: StageWrite, Cause: err}
	}
	if err := tmpFile.Sync(); err != nil {
		return &AtomicWriteError{Path: path, Stage: StageSync, Cause: err}
	}
	// Some platforms refuse to rename an open file.
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return &AtomicWriteError{Path: path, Stage: StageClose, Cause: err}
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return &AtomicWriteError{Path: path, Stage: StageChmod, Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &AtomicWriteError{Path: path, Stage: StageRename, Cause: err}
	}
	needsCleanup = false
	return nil
}
