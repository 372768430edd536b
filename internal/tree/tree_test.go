package tree

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTree returns a HostTree over an in-memory filesystem seeded with
// the given files.
func newTestTree(t *testing.T, files map[string]string) (*HostTree, afero.Fs) {
	t.Helper()

	base := afero.NewMemMapFs()
	for p, content := range files {
		require.NoError(t, base.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(base, p, []byte(content), 0o644))
	}
	return NewHostTree(base), base
}

// TestNormalize verifies that paths are reduced to the canonical tree form.
func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"package.json", "package.json"},
		{"/package.json", "package.json"},
		{"./libs/ui/../ui/tsconfig.json", "libs/ui/tsconfig.json"},
		{"apps//shell/", "apps/shell"},
		{"", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

// TestHostTree_ReadFromBase verifies that unstaged files are read straight
// from the base filesystem.
func TestHostTree_ReadFromBase(t *testing.T) {
	tr, _ := newTestTree(t, map[string]string{"package.json": `{"name":"ws"}`})

	assert.True(t, tr.Exists("package.json"))
	assert.True(t, tr.Exists("/package.json"), "leading slash should be ignored")

	data, err := tr.Read("package.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ws"}`, string(data))
}

// TestHostTree_ReadMissing verifies the not-found error shape.
func TestHostTree_ReadMissing(t *testing.T) {
	tr, _ := newTestTree(t, nil)

	_, err := tr.Read("missing.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

// TestHostTree_DirectoriesAreNotFiles verifies that Exists only reports files.
func TestHostTree_DirectoriesAreNotFiles(t *testing.T) {
	tr, base := newTestTree(t, nil)
	require.NoError(t, base.MkdirAll("libs/ui", 0o755))

	assert.False(t, tr.Exists("libs/ui"))
	assert.False(t, tr.Exists(""))
}

// TestHostTree_CreateStagesUntilCommit verifies that Create does not touch
// the base filesystem before Commit.
func TestHostTree_CreateStagesUntilCommit(t *testing.T) {
	tr, base := newTestTree(t, nil)

	require.NoError(t, tr.Create("libs/ui/.storybook/config.js", []byte("config")))
	assert.True(t, tr.Exists("libs/ui/.storybook/config.js"))

	onDisk, err := afero.Exists(base, "libs/ui/.storybook/config.js")
	require.NoError(t, err)
	assert.False(t, onDisk, "file must not be written before Commit")

	require.NoError(t, tr.Commit())

	data, err := afero.ReadFile(base, "libs/ui/.storybook/config.js")
	require.NoError(t, err)
	assert.Equal(t, "config", string(data))
	assert.Empty(t, tr.Actions(), "commit should clear the staging area")
}

// TestHostTree_CreateExisting verifies Create refuses to clobber a file.
func TestHostTree_CreateExisting(t *testing.T) {
	tr, _ := newTestTree(t, map[string]string{"main.js": "old"})

	err := tr.Create("main.js", []byte("new"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	data, err := tr.Read("main.js")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

// TestHostTree_OverwriteMissing verifies Overwrite only applies to existing files.
func TestHostTree_OverwriteMissing(t *testing.T) {
	tr, _ := newTestTree(t, nil)

	err := tr.Overwrite("main.js", []byte("new"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

// TestHostTree_DeleteCreatedFile verifies that creating then deleting a
// file in the same run leaves no action behind.
func TestHostTree_DeleteCreatedFile(t *testing.T) {
	tr, _ := newTestTree(t, nil)

	require.NoError(t, tr.Create("tmp.txt", []byte("x")))
	require.NoError(t, tr.Delete("tmp.txt"))

	assert.False(t, tr.Exists("tmp.txt"))
	assert.Empty(t, tr.Actions())
}

// TestHostTree_Actions verifies the action log kinds and their order.
func TestHostTree_Actions(t *testing.T) {
	tr, base := newTestTree(t, map[string]string{
		"package.json": "{}",
		"old.js":       "old",
	})

	require.NoError(t, tr.Create(".storybook/main.js", []byte("main")))
	require.NoError(t, tr.Overwrite("package.json", []byte(`{"name":"ws"}`)))
	require.NoError(t, tr.Delete("old.js"))

	assert.Equal(t, []Action{
		{Kind: ActionCreate, Path: ".storybook/main.js"},
		{Kind: ActionUpdate, Path: "package.json"},
		{Kind: ActionDelete, Path: "old.js"},
	}, tr.Actions())

	require.NoError(t, tr.Commit())

	exists, err := afero.Exists(base, "old.js")
	require.NoError(t, err)
	assert.False(t, exists)

	data, err := afero.ReadFile(base, "package.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ws"}`, string(data))
}

// TestHostTree_ReadReturnsCopy verifies callers cannot mutate staged content
// through the slice returned by Read.
func TestHostTree_ReadReturnsCopy(t *testing.T) {
	tr, _ := newTestTree(t, nil)
	require.NoError(t, tr.Create("a.txt", []byte("abc")))

	data, err := tr.Read("a.txt")
	require.NoError(t, err)
	data[0] = 'z'

	again, err := tr.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
