package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool/service/fs"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTree(t *testing.T, files map[string]string) (*sandbox.Boundary, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	sb, err := sandbox.New(dir)
	require.NoError(t, err)
	return sb, config.DefaultConfig()
}

func TestGlob(t *testing.T) {
	sb, cfg := setupTree(t, map[string]string{
		"main.go":            "package main\n",
		"a.txt":              "",
		"b.txt":              "",
		"docs/guide.txt":     "",
		"src/pkg/util.go":    "",
		".hidden/secret.txt": "",
		"build/out.txt":      "",
		".gitignore":         "build/\n",
	})
	g := NewGlobTool(fs.NewOSFileSystem(), cfg)
	ctx := context.Background()

	t.Run("any depth and sorted", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GlobRequest{Pattern: "*.txt"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b.txt", "docs/guide.txt"}, resp.Matches)
	})

	t.Run("double star", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GlobRequest{Pattern: "src/**/*.go"})
		require.NoError(t, err)
		assert.Equal(t, []string{"src/pkg/util.go"}, resp.Matches)
	})

	t.Run("hidden opt-in", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GlobRequest{Pattern: "*.txt", ShowHidden: true})
		require.NoError(t, err)
		assert.Contains(t, resp.Matches, ".hidden/secret.txt")
		assert.NotContains(t, resp.Matches, "build/out.txt")
	})

	t.Run("subdirectory root", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GlobRequest{Pattern: "*.txt", Path: "docs"})
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/guide.txt"}, resp.Matches)
	})

	t.Run("zero matches is not an error", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GlobRequest{Pattern: "*.rs"})
		require.NoError(t, err)
		assert.Empty(t, resp.Matches)
		assert.Contains(t, resp.LLMContent(), "No files matched")
	})

	t.Run("max results", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GlobRequest{Pattern: "*.txt", MaxResults: 1})
		require.NoError(t, err)
		assert.Len(t, resp.Matches, 1)
		assert.True(t, resp.Truncated)
		assert.Equal(t, 3, resp.Total)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := g.Run(ctx, sb, &GlobRequest{Pattern: "[a"})
		var invalid *InvalidPatternError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("outside sandbox", func(t *testing.T) {
		_, err := g.Run(ctx, sb, &GlobRequest{Pattern: "*", Path: "/"})
		assert.ErrorIs(t, err, sandbox.ErrOutsideSandbox)
	})

	t.Run("root is a file", func(t *testing.T) {
		_, err := g.Run(ctx, sb, &GlobRequest{Pattern: "*", Path: "main.go"})
		var notDir *NotDirectoryError
		assert.ErrorAs(t, err, &notDir)
	})
}

func TestGrep(t *testing.T) {
	sb, cfg := setupTree(t, map[string]string{
		"a.go":         "package a\n\nfunc Hello() {}\nfunc hello() {}\n",
		"b.txt":        "one\ntwo\nthree\nfour\nfive\n",
		"bin.dat":      "Hello\x00binary",
		"ignored/x.go": "func Hello() {}\n",
		".gitignore":   "ignored/\n",
	})
	g := NewGrepTool(fs.NewOSFileSystem(), cfg)
	ctx := context.Background()

	t.Run("basic match", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GrepRequest{Pattern: `func Hello`})
		require.NoError(t, err)
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, GrepMatch{File: "a.go", LineNumber: 3, Line: "func Hello() {}"}, resp.Matches[0])
		assert.Equal(t, "a.go:3:func Hello() {}\n", resp.Output)
		assert.Equal(t, 1, resp.BinarySkipped)
	})

	t.Run("case insensitive", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GrepRequest{Pattern: `func hello`, CaseInsensitive: true})
		require.NoError(t, err)
		assert.Len(t, resp.Matches, 2)
	})

	t.Run("context lines", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GrepRequest{Pattern: `three`, Path: "b.txt", ContextLines: 1})
		require.NoError(t, err)
		assert.Equal(t, "b.txt-2-two\nb.txt:3:three\nb.txt-4-four\n", resp.Output)
	})

	t.Run("separator between distant groups", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GrepRequest{Pattern: `one|five`, Path: "b.txt"})
		require.NoError(t, err)
		assert.Equal(t, "b.txt:1:one\n--\nb.txt:5:five\n", resp.Output)
	})

	t.Run("include filter", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GrepRequest{Pattern: `o`, Include: "*.txt"})
		require.NoError(t, err)
		for _, m := range resp.Matches {
			assert.True(t, strings.HasSuffix(m.File, ".txt"), m.File)
		}
	})

	t.Run("limit", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GrepRequest{Pattern: `.`, Path: "b.txt", MaxResults: 2})
		require.NoError(t, err)
		assert.Len(t, resp.Matches, 2)
		assert.True(t, resp.Truncated)
	})

	t.Run("no matches", func(t *testing.T) {
		resp, err := g.Run(ctx, sb, &GrepRequest{Pattern: `zzz`})
		require.NoError(t, err)
		assert.Contains(t, resp.LLMContent(), "No matches found")
	})

	t.Run("invalid regexp", func(t *testing.T) {
		_, err := g.Run(ctx, sb, &GrepRequest{Pattern: `(unclosed`})
		var invalid *InvalidPatternError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := g.Run(ctx, sb, &GrepRequest{Pattern: `x`, Path: "nope"})
		var missing *FileMissingError
		assert.ErrorAs(t, err, &missing)
	})
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "h", truncateUTF8("héllo", 2))
	assert.Equal(t, "hé", truncateUTF8("héllo", 3))
	assert.Equal(t, "abc", truncateUTF8("abc", 10))
}
