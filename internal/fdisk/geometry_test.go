package fdisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopology_Defaults(t *testing.T) {
	var tp Topology

	require.Equal(t, uint64(DefaultGrainSize), tp.GrainSize())
	require.Equal(t, uint64(DefaultSectorSize), tp.SectorSize())
	require.Equal(t, uint64(2048), GrainSectors(&tp))

	tp.Grain = 256
	require.Equal(t, uint64(1), GrainSectors(&tp))
}

func TestTopology_AlignLBA(t *testing.T) {
	tp := &Topology{Grain: 1 << 20, Sector: 512}

	tests := []struct {
		lba  uint64
		dir  AlignDirection
		want uint64
	}{
		{1, AlignUp, 2048},
		{1, AlignDown, 0},
		{1000, AlignNearest, 0},
		{1100, AlignNearest, 2048},
		{4096, AlignUp, 4096},
		{4096, AlignDown, 4096},
		{4097, AlignDown, 4096},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, tp.AlignLBA(tc.lba, tc.dir), "lba=%d dir=%s", tc.lba, tc.dir)
	}

	tp.AlignmentOffset = 7 * 512
	require.Equal(t, uint64(7), tp.AlignLBA(3, AlignUp))
	require.Equal(t, uint64(3), tp.AlignLBA(3, AlignDown))
	require.Equal(t, uint64(2055), tp.AlignLBA(2055, AlignUp))
	require.Equal(t, uint64(4103), tp.AlignLBA(2056, AlignUp))
	require.Equal(t, uint64(2055), tp.AlignLBA(4102, AlignDown))

	sector := &Topology{Grain: 512, Sector: 512}
	require.Equal(t, uint64(12345), sector.AlignLBA(12345, AlignUp))
}

func TestAlignInRange(t *testing.T) {
	tp := &Topology{Grain: 1 << 20, Sector: 512}

	require.Equal(t, uint64(2100), alignInRange(tp, 2100, 2048, 10000))
	require.Equal(t, uint64(2048), alignInRange(tp, 100, 34, 10000))
	require.Equal(t, uint64(8192), alignInRange(tp, 9000, 34, 10000))
	require.Equal(t, uint64(6144), alignInRange(tp, 6000, 34, 10000))
}
