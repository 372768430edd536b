package schematic

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// newTestTree returns a tree over an in-memory filesystem seeded with files.
func newTestTree(t *testing.T, files map[string]string) *tree.HostTree {
	t.Helper()

	base := afero.NewMemMapFs()
	for p, content := range files {
		require.NoError(t, base.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(base, p, []byte(content), 0o644))
	}
	return tree.NewHostTree(base)
}

// readString reads p from the tree and fails the test on error.
func readString(t *testing.T, tr tree.Tree, p string) string {
	t.Helper()

	data, err := tr.Read(p)
	require.NoError(t, err)
	return string(data)
}
