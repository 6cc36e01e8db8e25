package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreRules_Defaults(t *testing.T) {
	r := NewIgnoreRules(nil)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"main.go", false, false},
		{".git", true, true},
		{".git/config", false, true},
		{"node_modules/pkg/index.js", false, true},
		{"src/node_modules/pkg/index.js", false, true},
		{"vendor/lib/lib.go", false, true},
		{"app.min.js", false, true},
		{"internal/scanner/scanner.go", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Match(tt.path, tt.isDir), "path=%s", tt.path)
	}
}

func TestIgnoreRules_UserRules(t *testing.T) {
	r := NewIgnoreRules([]string{
		"*.log",
		"tmp/",
		"/secrets.env",
		"# a comment",
		"",
	})

	assert.True(t, r.Match("debug.log", false))
	assert.True(t, r.Match("deep/nested/debug.log", false))
	assert.True(t, r.Match("tmp/scratch.go", false))
	assert.True(t, r.Match("secrets.env", false))
	assert.False(t, r.Match("config/secrets.env", false), "anchored rule only matches at root")
	assert.False(t, r.Match("main.go", false))
}

func TestIgnoreRules_NegationWins(t *testing.T) {
	r := NewIgnoreRules([]string{
		"*.gen.go",
		"!keep.gen.go",
	})

	assert.True(t, r.Match("api.gen.go", false))
	assert.False(t, r.Match("keep.gen.go", false), "later negation overrides earlier rule")
}

func TestIgnoreRules_DoubleStar(t *testing.T) {
	r := NewIgnoreRules([]string{"docs/**/draft.md"})

	assert.True(t, r.Match("docs/a/b/draft.md", false))
	assert.False(t, r.Match("docs/final.md", false))
}

func TestIgnoreRules_Filter(t *testing.T) {
	r := NewIgnoreRules([]string{"*.log"})
	root := string(filepath.Separator) + filepath.Join("work", "proj")

	paths := []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "debug.log"),
		filepath.Join(root, "vendor", "dep.go"),
	}
	kept := r.Filter(root, paths)
	assert.Equal(t, []string{filepath.Join(root, "main.go")}, kept)
}

func TestLoadIgnoreRules(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, IgnoreFileName),
		[]byte("*.secret\n# comment\n"),
		0o644,
	))

	r, err := LoadIgnoreRules(root)
	require.NoError(t, err)
	assert.True(t, r.Match("api.secret", false))
	assert.True(t, r.Match(".git/config", false), "defaults still apply")
}

func TestLoadIgnoreRules_MissingFile(t *testing.T) {
	r, err := LoadIgnoreRules(t.TempDir())
	require.NoError(t, err)
	assert.True(t, r.Match("node_modules/x.js", false))
}

func TestWalkLister(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o755))
	for _, p := range []string{"main.go", "pkg/util.go", "node_modules/dep/index.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, p), []byte("x"), 0o644))
	}

	l := &WalkLister{Ignore: NewIgnoreRules(nil)}
	paths, hasMore, err := l.List(root)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "pkg", "util.go"),
	}, paths, "ignored directories are pruned during the walk")
}

func TestWalkLister_Truncation(t *testing.T) {
	root := writeTree(t, 5)

	l := &WalkLister{MaxFiles: 3}
	paths, hasMore, err := l.List(root)
	require.NoError(t, err)
	assert.Len(t, paths, 3)
	assert.True(t, hasMore)
}
