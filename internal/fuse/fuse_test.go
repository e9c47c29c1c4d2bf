//go:build linux
// +build linux

package fuse

import (
	"bytes"
	"context"
	"testing"

	"bazil.org/fuse"
	"github.com/stretchr/testify/require"
)

func TestPartitionFS(t *testing.T) {
	data := make([]byte, 8192)
	for i := range data {
		data[i] = byte(i % 251)
	}

	pfs := NewPartitionFS(bytes.NewReader(data), []Entry{
		{Name: "p1", Offset: 4096, Size: 2048},
		{Name: "p0", Offset: 512, Size: 1024},
	})

	root, err := pfs.Root()
	require.NoError(t, err)
	dir := root.(*Dir)

	ctx := context.Background()

	dirents, err := dir.ReadDirAll(ctx)
	require.NoError(t, err)
	require.Len(t, dirents, 2)
	require.Equal(t, "p0", dirents[0].Name)
	require.Equal(t, "p1", dirents[1].Name)

	_, err = dir.Lookup(ctx, "p9")
	require.ErrorIs(t, err, fuse.ENOENT)

	node, err := dir.Lookup(ctx, "p1")
	require.NoError(t, err)
	f := node.(*File)

	var attr fuse.Attr
	require.NoError(t, f.Attr(ctx, &attr))
	require.Equal(t, uint64(2048), attr.Size)

	var resp fuse.ReadResponse
	require.NoError(t, f.Read(ctx, &fuse.ReadRequest{Offset: 0, Size: 16}, &resp))
	require.Equal(t, data[4096:4112], resp.Data)

	// reads are clamped at the end of the partition
	require.NoError(t, f.Read(ctx, &fuse.ReadRequest{Offset: 2000, Size: 100}, &resp))
	require.Equal(t, data[6096:6144], resp.Data)

	require.NoError(t, f.Read(ctx, &fuse.ReadRequest{Offset: 4096, Size: 100}, &resp))
	require.Empty(t, resp.Data)
}
