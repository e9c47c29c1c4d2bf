package fdisk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type region struct {
	start, end uint64
}

func regions(t *testing.T, tb *Table) []region {
	t.Helper()

	var res []region
	for _, pa := range walk(t, tb) {
		require.True(t, pa.IsFreespace())
		require.False(t, pa.IsUsed())
		res = append(res, region{pa.Start(), pa.End()})
	}
	return res
}

func freespaces(t *testing.T, l Label) *Table {
	t.Helper()

	cxt, err := NewContext(l)
	require.NoError(t, err)

	tb, err := cxt.GetFreespaces(nil)
	require.NoError(t, err)
	return tb
}

func TestGetFreespaces_SectorGrain(t *testing.T) {
	tb := freespaces(t, &memLabel{
		Topology: sectorTopology(34, 1000),
		entries: []entry{
			{partno: 1, start: 500, size: 100},
			{partno: 0, start: 100, size: 50},
		},
	})

	require.Equal(t, []region{
		{34, 99},
		{150, 499},
		{600, 1000},
	}, regions(t, tb))
}

func TestGetFreespaces_EmptyLabel(t *testing.T) {
	tb := freespaces(t, &memLabel{
		Topology: Topology{Grain: 1 << 20, Sector: 512, First: 2048, Last: 10000},
	})
	require.Equal(t, []region{{2048, 10000}}, regions(t, tb))
}

func TestGetFreespaces_SmallGapsIgnored(t *testing.T) {
	tb := freespaces(t, &memLabel{
		Topology: Topology{Grain: 1 << 20, Sector: 512, First: 2048, Last: 10000},
		entries: []entry{
			{partno: 0, start: 2048, size: 2048},
			{partno: 1, start: 4196, size: 4000},
		},
	})

	// 100 sectors between the partitions and 1805 at the end, both below
	// the grain
	require.True(t, tb.IsEmpty())
}

func TestGetFreespaces_Aligned(t *testing.T) {
	tb := freespaces(t, &memLabel{
		Topology: Topology{Grain: 1 << 20, Sector: 512, First: 34, Last: 10000},
		entries: []entry{
			{partno: 0, start: 4096, size: 4096},
		},
	})

	require.Equal(t, []region{{2048, 4095}}, regions(t, tb))

	tb = freespaces(t, &memLabel{
		Topology: Topology{Grain: 1 << 20, Sector: 512, First: 34, Last: 20000},
		entries: []entry{
			{partno: 0, start: 2048, size: 2048},
		},
	})
	require.Equal(t, []region{{4096, 20000}}, regions(t, tb))
}

func TestGetFreespaces_IgnoredEntries(t *testing.T) {
	tb := freespaces(t, &memLabel{
		Topology: sectorTopology(34, 1000),
		entries: []entry{
			{partno: 0, start: 0, size: 1001, wholedisk: true},
			{partno: 1, start: 100, size: 50, unused: true},
			{partno: 2, start: 200, size: 100},
		},
	})

	require.Equal(t, []region{
		{34, 199},
		{300, 1000},
	}, regions(t, tb))
}

func TestGetFreespaces_Container(t *testing.T) {
	tb := freespaces(t, &memLabel{
		Topology: sectorTopology(1, 999),
		entries: []entry{
			{partno: 0, start: 10, size: 90},
			{partno: 1, start: 100, size: 400, container: true},
			{partno: 4, parent: 1, start: 102, size: 98, nested: true},
			{partno: 5, parent: 1, start: 300, size: 100, nested: true},
		},
	})

	require.Equal(t, []region{
		{1, 9},
		{200, 299},
		{400, 499},
		{500, 999},
	}, regions(t, tb))

	parts := walk(t, tb)
	require.False(t, parts[0].HasParentPartno())
	require.Equal(t, uint32(1), parts[1].ParentPartno())
	require.Equal(t, uint32(1), parts[2].ParentPartno())
	require.False(t, parts[3].HasParentPartno())
}

func TestGetFreespaces_AppendsToTable(t *testing.T) {
	l := &memLabel{
		Topology: sectorTopology(34, 1000),
		entries:  []entry{{partno: 0, start: 100, size: 50}},
	}
	cxt, err := NewContext(l)
	require.NoError(t, err)

	tb, err := cxt.GetPartitions(nil)
	require.NoError(t, err)

	res, err := cxt.GetFreespaces(tb)
	require.NoError(t, err)
	require.Same(t, tb, res)
	require.Equal(t, 3, tb.Len())

	require.NoError(t, tb.Sort(CmpStart))
	require.Equal(t, []uint64{34, 100, 150}, starts(walk(t, tb)))

	l.err = errors.New("read error")
	_, err = cxt.GetFreespaces(nil)
	require.ErrorIs(t, err, l.err)
}
