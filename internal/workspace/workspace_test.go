package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func abs(t *testing.T, parts ...string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join(parts...))
	assert.NoError(t, err)
	return p
}

func TestContains(t *testing.T) {
	root := abs(t, "/home/dev/project")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"file inside root", abs(t, "/home/dev/project/main.go"), true},
		{"nested file", abs(t, "/home/dev/project/internal/pool/pool.go"), true},
		{"root contains itself", root, true},
		{"sibling dir", abs(t, "/home/dev/other/main.go"), false},
		{"prefix but not child", abs(t, "/home/dev/project2/main.go"), false},
		{"parent dir", abs(t, "/home/dev"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(root, tt.path))
		})
	}
}

func TestRootForFile_SingleRoot(t *testing.T) {
	roots := []string{abs(t, "/home/dev/project")}

	root, ok := RootForFile(abs(t, "/home/dev/project/pkg/types/task.go"), roots)
	assert.True(t, ok)
	assert.Equal(t, roots[0], root)

	_, ok = RootForFile(abs(t, "/tmp/elsewhere.go"), roots)
	assert.False(t, ok)
}

func TestRootForFile_MultiRootLongestPrefixWins(t *testing.T) {
	outer := abs(t, "/home/dev/mono")
	inner := abs(t, "/home/dev/mono/services/api")
	roots := []string{outer, inner}

	root, ok := RootForFile(abs(t, "/home/dev/mono/services/api/main.go"), roots)
	assert.True(t, ok)
	assert.Equal(t, inner, root, "nested root should shadow its parent")

	root, ok = RootForFile(abs(t, "/home/dev/mono/README.md"), roots)
	assert.True(t, ok)
	assert.Equal(t, outer, root)
}

func TestRootForFile_NoRoots(t *testing.T) {
	_, ok := RootForFile(abs(t, "/home/dev/project/main.go"), nil)
	assert.False(t, ok)
}

func TestRelativeTo(t *testing.T) {
	roots := []string{abs(t, "/home/dev/project")}

	rel := RelativeTo(abs(t, "/home/dev/project/internal/state/manager.go"), roots)
	assert.Equal(t, filepath.Join("internal", "state", "manager.go"), rel)

	orphan := abs(t, "/tmp/orphan.go")
	assert.Equal(t, orphan, RelativeTo(orphan, roots))
}
