package disk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func align(grain uint64) func(uint64) uint64 {
	return func(lba uint64) uint64 {
		return (lba + grain - 1) / grain * grain
	}
}

func TestExtentMap(t *testing.T) {
	m := newExtentMap(34, 9999)

	require.NoError(t, m.insert(extent{Start: 2048, End: 4095, Partno: 0}))
	require.NoError(t, m.insert(extent{Start: 6144, End: 8191, Partno: 1}))
	require.Equal(t, 2, m.len())

	require.ErrorIs(t, m.insert(extent{Start: 4000, End: 4100}), ErrOverlap)
	require.ErrorIs(t, m.insert(extent{Start: 8191, End: 8191}), ErrOverlap)
	require.ErrorIs(t, m.insert(extent{Start: 1000, End: 9000}), ErrOverlap)
	require.Error(t, m.insert(extent{Start: 10, End: 5}))

	_, ok := m.overlapping(4096, 6143)
	require.False(t, ok)
	o, ok := m.overlapping(5000, 7000)
	require.True(t, ok)
	require.Equal(t, uint32(1), o.Partno)

	require.Equal(t, uint64(6143), m.gapEnd(4096))
	require.Equal(t, uint64(9999), m.gapEnd(8192))

	require.True(t, m.contains(34, 9999))
	require.False(t, m.contains(0, 100))
	require.False(t, m.contains(9000, 10000))
}

func TestExtentMap_FirstFit(t *testing.T) {
	m := newExtentMap(34, 9999)

	start, ok := m.firstFit(align(2048), 1000)
	require.True(t, ok)
	require.Equal(t, uint64(2048), start)

	require.NoError(t, m.insert(extent{Start: 2048, End: 4095}))
	require.NoError(t, m.insert(extent{Start: 4096, End: 5000}))

	// nothing fits before the allocated ranges once aligned
	start, ok = m.firstFit(align(2048), 2048)
	require.True(t, ok)
	require.Equal(t, uint64(6144), start)

	// any free sector is accepted without a size
	start, ok = m.firstFit(align(1), 0)
	require.True(t, ok)
	require.Equal(t, uint64(34), start)

	_, ok = m.firstFit(align(2048), 5000)
	require.False(t, ok)

	m.reset()
	require.Equal(t, 0, m.len())
}
