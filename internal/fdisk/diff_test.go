package fdisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tableOf(t *testing.T, parts ...*Partition) *Table {
	t.Helper()

	tb := NewTable()
	for _, pa := range parts {
		addOwned(t, tb, pa)
	}
	return tb
}

type change struct {
	kind   DiffKind
	partno uint32
	start  uint64
	size   uint64
}

func collect(t *testing.T, changes []Change) []change {
	t.Helper()

	res := make([]change, len(changes))
	for i, c := range changes {
		res[i] = change{c.Kind, c.Partition.Partno(), c.Partition.Start(), c.Partition.Size()}
	}
	return res
}

func TestDiff(t *testing.T) {
	free := NewPartition()
	require.NoError(t, free.SetStart(900))
	require.NoError(t, free.SetSize(50))
	free.SetFreespace(true)

	a := tableOf(t,
		newPart(t, 1, 0, 100),
		newPart(t, 2, 200, 100),
		newPart(t, 3, 400, 100),
		newPart(t, 4, 600, 100),
		free,
	)
	b := tableOf(t,
		newPart(t, 3, 400, 150),
		newPart(t, NoPartno, 700, 50),
		newPart(t, 5, 800, 10),
		newPart(t, 2, 250, 100),
		newPart(t, 1, 0, 100),
	)

	changes, err := Diff(a, b)
	require.NoError(t, err)
	require.Equal(t, []change{
		{DiffUnchanged, 1, 0, 100},
		{DiffMoved, 2, 250, 100},
		{DiffResized, 3, 400, 150},
		{DiffRemoved, 4, 600, 100},
		{DiffAdded, 5, 800, 10},
	}, collect(t, changes))

	// moved, resized and added records point into the new table
	require.Same(t, b.GetByPartno(2), changes[1].Partition)
	require.Same(t, b.GetByPartno(3), changes[2].Partition)
	require.Same(t, a.GetByPartno(4), changes[3].Partition)

	// the unnumbered entry of b is skipped without ending the scan
	require.Same(t, b.GetByPartno(5), changes[4].Partition)
	require.Len(t, changes, 5)
}

func TestDiff_MovedTakesPrecedence(t *testing.T) {
	a := tableOf(t, newPart(t, 1, 100, 100))
	b := tableOf(t, newPart(t, 1, 200, 300))

	changes, err := Diff(a, b)
	require.NoError(t, err)
	require.Equal(t, []change{{DiffMoved, 1, 200, 300}}, collect(t, changes))
}

func TestDiff_MissingTables(t *testing.T) {
	tb := tableOf(t, newPart(t, 1, 0, 10), newPart(t, 2, 10, 10))

	changes, err := Diff(nil, tb)
	require.NoError(t, err)
	require.Equal(t, []change{
		{DiffAdded, 1, 0, 10},
		{DiffAdded, 2, 10, 10},
	}, collect(t, changes))

	changes, err = Diff(tb, nil)
	require.NoError(t, err)
	require.Equal(t, []change{
		{DiffRemoved, 1, 0, 10},
		{DiffRemoved, 2, 10, 10},
	}, collect(t, changes))

	changes, err = Diff(nil, nil)
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestDiff_SameTable(t *testing.T) {
	tb := tableOf(t, newPart(t, 1, 0, 10), newPart(t, 2, 10, 10))

	changes, err := Diff(tb, tb)
	require.NoError(t, err)
	require.Equal(t, []change{
		{DiffUnchanged, 1, 0, 10},
		{DiffUnchanged, 2, 10, 10},
	}, collect(t, changes))
}

func TestDiffer_StaysDone(t *testing.T) {
	a := tableOf(t, newPart(t, 1, 0, 10))
	b := tableOf(t, newPart(t, 2, 0, 10))

	d := NewDiffer(a, b)

	c, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, DiffRemoved, c.Kind)

	c, err = d.Next()
	require.NoError(t, err)
	require.Equal(t, DiffAdded, c.Kind)

	for range 3 {
		_, err = d.Next()
		require.ErrorIs(t, err, ErrDone)
	}
}

func TestDiffKind_String(t *testing.T) {
	require.Equal(t, "unchanged", DiffUnchanged.String())
	require.Equal(t, "removed", DiffRemoved.String())
	require.Equal(t, "resized", DiffResized.String())
	require.Equal(t, "moved", DiffMoved.String())
	require.Equal(t, "added", DiffAdded.String())
	require.Equal(t, "DiffKind(42)", DiffKind(42).String())
}
