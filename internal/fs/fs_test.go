package fs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, int64(len(data)), f.Size())

	buf := make([]byte, 16)
	n, err := f.ReadAt(buf, 1000)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, data[1000:1016], buf)

	sec := Section(f, 4000, 512)
	require.Equal(t, int64(96), sec.Size())

	rest, err := io.ReadAll(sec)
	require.NoError(t, err)
	require.Equal(t, data[4000:], rest)

	_, err = Open(filepath.Join(t.TempDir(), "missing.img"))
	require.Error(t, err)
}
