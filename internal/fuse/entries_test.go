package fuse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/partlab/internal/fdisk"
)

func newPart(t *testing.T, tb *fdisk.Table, partno uint32, start, size uint64) *fdisk.Partition {
	t.Helper()

	pa := fdisk.NewPartition()
	if partno != fdisk.NoPartno {
		require.NoError(t, pa.SetPartno(partno))
		pa.SetUsed(true)
	} else {
		pa.SetFreespace(true)
	}
	require.NoError(t, pa.SetStart(start))
	require.NoError(t, pa.SetSize(size))
	require.NoError(t, tb.Add(pa))
	pa.Unref()
	return pa
}

func TestBuildEntries(t *testing.T) {
	parts := fdisk.NewTable()
	defer parts.Unref()

	newPart(t, parts, 0, 2048, 2048)
	newPart(t, parts, 1, 4096, 8192).SetContainer(true)
	newPart(t, parts, 4, 6144, 1024)

	free := fdisk.NewTable()
	defer free.Unref()

	newPart(t, free, fdisk.NoPartno, 8192, 4096)
	newPart(t, free, fdisk.NoPartno, 14336, 2048)

	entries := BuildEntries(parts, free, 512)
	require.Equal(t, []Entry{
		{Name: "p0", Offset: 2048 * 512, Size: 2048 * 512},
		{Name: "p4", Offset: 6144 * 512, Size: 1024 * 512},
		{Name: "free0", Offset: 8192 * 512, Size: 4096 * 512},
		{Name: "free1", Offset: 14336 * 512, Size: 2048 * 512},
	}, entries)

	require.Empty(t, BuildEntries(fdisk.NewTable(), fdisk.NewTable(), 512))
}
