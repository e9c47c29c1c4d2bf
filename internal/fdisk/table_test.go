package fdisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newPart(t *testing.T, partno uint32, start, size uint64) *Partition {
	t.Helper()

	pa := NewPartition()
	if partno != NoPartno {
		require.NoError(t, pa.SetPartno(partno))
	}
	require.NoError(t, pa.SetStart(start))
	require.NoError(t, pa.SetSize(size))
	pa.SetUsed(true)
	return pa
}

// addOwned adds pa to tb, leaving the table as its only owner.
func addOwned(t *testing.T, tb *Table, pa *Partition) *Partition {
	t.Helper()

	require.NoError(t, tb.Add(pa))
	pa.Unref()
	return pa
}

func walk(t *testing.T, tb *Table) []*Partition {
	t.Helper()

	var (
		itr   Iter
		parts []*Partition
	)
	for {
		pa, err := tb.Next(&itr)
		if err == ErrDone {
			return parts
		}
		require.NoError(t, err)
		parts = append(parts, pa)
	}
}

func starts(parts []*Partition) []uint64 {
	res := make([]uint64, len(parts))
	for i, pa := range parts {
		res[i] = pa.Start()
	}
	return res
}

func TestTable_CountMatchesTraversal(t *testing.T) {
	tb := NewTable()
	require.True(t, tb.IsEmpty())

	for i := 0; i < 10; i++ {
		addOwned(t, tb, newPart(t, uint32(i), uint64(i*100), 10))
		require.Equal(t, i+1, tb.Len())
		require.Len(t, walk(t, tb), tb.Len())
	}

	require.NoError(t, tb.Remove(tb.Get(3)))
	require.NoError(t, tb.Remove(tb.Get(0)))
	require.Equal(t, 8, tb.Len())
	require.Len(t, walk(t, tb), 8)
	require.False(t, tb.IsEmpty())
}

func TestTable_AlreadyLinked(t *testing.T) {
	a, b := NewTable(), NewTable()
	pa := newPart(t, 1, 0, 10)

	require.NoError(t, a.Add(pa))
	require.ErrorIs(t, a.Add(pa), ErrAlreadyLinked)
	require.ErrorIs(t, b.Add(pa), ErrAlreadyLinked)
	require.ErrorIs(t, b.InsertAfter(nil, pa), ErrAlreadyLinked)
	require.Equal(t, 1, a.Len())
	require.Equal(t, 0, b.Len())

	// moving requires an extra reference to survive the removal
	pa.Ref()
	require.NoError(t, a.Remove(pa))
	require.NoError(t, b.Add(pa))
	require.Equal(t, 0, a.Len())
	require.Equal(t, 1, b.Len())
	require.Same(t, pa, b.Get(0))
}

func TestTable_Refcount(t *testing.T) {
	tb := NewTable()
	pa := newPart(t, 7, 2048, 100)
	require.Equal(t, 1, pa.Refcount())

	require.NoError(t, tb.Add(pa))
	require.Equal(t, 2, pa.Refcount())
	require.True(t, pa.IsLinked())

	pa.Unref()
	require.Equal(t, 1, pa.Refcount())

	// an external holder keeps the partition content alive after removal
	pa.Ref()
	require.NoError(t, tb.Remove(pa))
	require.False(t, pa.IsLinked())
	require.Equal(t, 1, pa.Refcount())
	require.Equal(t, uint64(2048), pa.Start())
	require.Equal(t, uint32(7), pa.Partno())

	pa.Unref()
	require.Equal(t, 0, pa.Refcount())
	require.False(t, pa.HasStart())
	require.False(t, pa.HasPartno())
}

func TestTable_ResetIsIdempotent(t *testing.T) {
	tb := NewTable()
	kept := newPart(t, 1, 0, 10)
	require.NoError(t, tb.Add(kept))
	addOwned(t, tb, newPart(t, 2, 10, 10))

	require.NoError(t, tb.Reset())
	require.Equal(t, 0, tb.Len())
	require.NoError(t, tb.Reset())
	require.Equal(t, 0, tb.Len())
	require.True(t, tb.IsEmpty())

	require.Equal(t, 1, kept.Refcount())
	require.False(t, kept.IsLinked())
	require.Equal(t, uint64(0), kept.Start())
}

func TestTable_UnrefReleasesEntries(t *testing.T) {
	tb := NewTable()
	pa := newPart(t, 1, 0, 10)
	require.NoError(t, tb.Add(pa))

	tb.Ref()
	tb.Unref()
	require.Equal(t, 1, tb.Len())

	tb.Unref()
	require.Equal(t, 0, tb.Len())
	require.Equal(t, 1, pa.Refcount())
}

func TestTable_InsertAfter(t *testing.T) {
	tb := NewTable()
	p1 := addOwned(t, tb, newPart(t, 1, 100, 10))
	p3 := addOwned(t, tb, newPart(t, 3, 300, 10))

	p2 := newPart(t, 2, 200, 10)
	require.NoError(t, tb.InsertAfter(p1, p2))
	p2.Unref()

	p0 := newPart(t, 0, 0, 10)
	require.NoError(t, tb.InsertAfter(nil, p0))
	p0.Unref()

	p4 := newPart(t, 4, 400, 10)
	require.NoError(t, tb.InsertAfter(p3, p4))
	p4.Unref()

	require.Equal(t, []uint64{0, 100, 200, 300, 400}, starts(walk(t, tb)))
	require.Equal(t, 5, tb.Len())

	// the anchor must belong to the table
	other := NewTable()
	require.ErrorIs(t, other.InsertAfter(p1, newPart(t, 9, 0, 1)), ErrInvalidArgument)
}

func TestTable_SortIsStable(t *testing.T) {
	tb := NewTable()
	input := []struct {
		partno uint32
		start  uint64
	}{
		{0, 500}, {1, 100}, {2, 500}, {3, 34}, {4, 100}, {5, 500},
	}
	for _, in := range input {
		addOwned(t, tb, newPart(t, in.partno, in.start, 1))
	}
	require.True(t, tb.WrongOrder())

	require.NoError(t, tb.Sort(CmpStart))
	require.False(t, tb.WrongOrder())

	parts := walk(t, tb)
	require.Equal(t, []uint64{34, 100, 100, 500, 500, 500}, starts(parts))

	partnos := make([]uint32, len(parts))
	for i, pa := range parts {
		partnos[i] = pa.Partno()
	}
	require.Equal(t, []uint32{3, 1, 4, 0, 2, 5}, partnos)
	require.Equal(t, 6, tb.Len())
}

func TestTable_Get(t *testing.T) {
	tb := NewTable()
	for i := uint32(0); i < 4; i++ {
		addOwned(t, tb, newPart(t, 10+i, uint64(i), 1))
	}
	synthetic := NewPartition()
	require.NoError(t, synthetic.SetStart(99))
	addOwned(t, tb, synthetic)

	require.Equal(t, uint32(12), tb.Get(2).Partno())
	require.Same(t, synthetic, tb.Get(4))
	require.Nil(t, tb.Get(5))
	require.Nil(t, tb.Get(-1))

	require.Equal(t, uint64(3), tb.GetByPartno(13).Start())
	require.Nil(t, tb.GetByPartno(1))
	require.Nil(t, tb.GetByPartno(NoPartno))
}

func TestIter_Rebind(t *testing.T) {
	a, b := NewTable(), NewTable()
	for i := 0; i < 3; i++ {
		addOwned(t, a, newPart(t, uint32(i), uint64(i), 1))
		addOwned(t, b, newPart(t, uint32(i), uint64(100+i), 1))
	}

	itr := NewIter()
	pa, err := a.Next(itr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pa.Start())
	pa, err = a.Next(itr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pa.Start())

	// switching table restarts from the first entry of b
	pb, err := b.Next(itr)
	require.NoError(t, err)
	require.Equal(t, uint64(100), pb.Start())

	itr.Reset()
	pa, err = a.Next(itr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pa.Start())

	// an exhausted iterator keeps reporting the end
	for range 2 {
		_, err = a.Next(itr)
		require.NoError(t, err)
	}
	_, err = a.Next(itr)
	require.ErrorIs(t, err, ErrDone)
	_, err = a.Next(itr)
	require.ErrorIs(t, err, ErrDone)
}

func TestIter_RemoveDuringTraversal(t *testing.T) {
	tb := NewTable()
	for i := 0; i < 4; i++ {
		addOwned(t, tb, newPart(t, uint32(i), uint64(i*10), 10))
	}

	// dropping the entry just returned keeps the traversal going
	var seen []uint32
	itr := NewIter()
	for pa, err := tb.Next(itr); err == nil; pa, err = tb.Next(itr) {
		seen = append(seen, pa.Partno())
		if pa.Partno()%2 == 0 {
			require.NoError(t, tb.Remove(pa))
		}
	}
	require.Equal(t, []uint32{0, 1, 2, 3}, seen)
	require.Equal(t, 2, tb.Len())

	// dropping the entry ahead of the cursor is reported
	itr.Reset()
	pa, err := tb.Next(itr)
	require.NoError(t, err)
	require.Equal(t, uint32(1), pa.Partno())
	require.NoError(t, tb.Remove(tb.GetByPartno(3)))

	_, err = tb.Next(itr)
	require.ErrorIs(t, err, ErrStaleIter)
	_, err = tb.Next(itr)
	require.ErrorIs(t, err, ErrDone)
}

func TestTable_InvalidArgument(t *testing.T) {
	var tb *Table

	require.ErrorIs(t, tb.Add(NewPartition()), ErrInvalidArgument)
	require.ErrorIs(t, tb.Reset(), ErrInvalidArgument)
	require.ErrorIs(t, tb.Sort(CmpStart), ErrInvalidArgument)
	require.True(t, tb.IsEmpty())
	require.Equal(t, 0, tb.Len())
	require.Nil(t, tb.Get(0))

	_, err := tb.Next(NewIter())
	require.ErrorIs(t, err, ErrInvalidArgument)

	tb = NewTable()
	require.ErrorIs(t, tb.Add(nil), ErrInvalidArgument)
	require.ErrorIs(t, tb.Remove(NewPartition()), ErrInvalidArgument)
	require.ErrorIs(t, tb.Sort(nil), ErrInvalidArgument)

	_, err = tb.Next(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPartition_Fields(t *testing.T) {
	pa := NewPartition()
	require.False(t, pa.HasStart())
	require.False(t, pa.HasSize())
	require.False(t, pa.HasEnd())
	require.False(t, pa.HasPartno())
	require.False(t, pa.HasParentPartno())

	require.ErrorIs(t, pa.SetStart(NoSector), ErrInvalidArgument)
	require.ErrorIs(t, pa.SetPartno(NoPartno), ErrInvalidArgument)

	require.NoError(t, pa.SetStart(2048))
	require.NoError(t, pa.SetSize(0))
	require.False(t, pa.HasEnd())

	require.NoError(t, pa.SetSize(2048))
	require.True(t, pa.HasEnd())
	require.Equal(t, uint64(4095), pa.End())

	inner := newPart(t, 5, 3000, 100)
	require.True(t, pa.Contains(inner))
	require.NoError(t, inner.SetStart(4000))
	require.False(t, pa.Contains(inner))

	pa.SetContainer(true)
	require.Contains(t, pa.String(), "container")
}
