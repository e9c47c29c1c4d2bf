package os

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mnt")

	created, err := EnsureDir(dir, true)
	require.NoError(t, err)
	require.True(t, created)

	created, err = EnsureDir(dir, true)
	require.NoError(t, err)
	require.False(t, created)

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	require.True(t, FileExists(file))
	require.False(t, FileExists(dir))

	_, err = EnsureDir(dir, true)
	require.Error(t, err)

	created, err = EnsureDir(dir, false)
	require.NoError(t, err)
	require.False(t, created)

	_, err = EnsureDir(file, false)
	require.Error(t, err)
}

func TestIsDirEmpty(t *testing.T) {
	dir := t.TempDir()

	empty, err := IsDirEmpty(dir)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	empty, err = IsDirEmpty(dir)
	require.NoError(t, err)
	require.False(t, empty)

	_, err = IsDirEmpty(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
