package fdisk

// AlignDirection selects how AlignLBA rounds a sector that is not aligned.
type AlignDirection int

const (
	AlignUp AlignDirection = iota
	AlignDown
	AlignNearest
)

func (d AlignDirection) String() string {
	switch d {
	case AlignUp:
		return "up"
	case AlignDown:
		return "down"
	case AlignNearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// Geometry describes the addressable area of a disk and its alignment rules.
type Geometry interface {
	// GrainSize returns the alignment granularity in bytes.
	GrainSize() uint64
	// SectorSize returns the logical sector size in bytes.
	SectorSize() uint64
	// FirstLBA returns the first usable sector.
	FirstLBA() uint64
	// LastLBA returns the last usable sector.
	LastLBA() uint64
	// AlignLBA rounds lba to an aligned boundary.
	AlignLBA(lba uint64, dir AlignDirection) uint64
}

// GrainSectors returns the grain of g in sectors, never less than one.
func GrainSectors(g Geometry) uint64 {
	grain, ss := g.GrainSize(), g.SectorSize()
	if ss == 0 || grain <= ss {
		return 1
	}
	return grain / ss
}

const (
	DefaultSectorSize = 512
	DefaultGrainSize  = 1 << 20
)

// Topology is a Geometry described by plain values. Labels usually embed it.
type Topology struct {
	Grain  uint64 // bytes
	Sector uint64 // bytes
	First  uint64 // first usable sector
	Last   uint64 // last usable sector

	// AlignmentOffset is the offset in bytes of the first aligned byte, as
	// reported by devices whose physical sectors are not aligned to zero.
	AlignmentOffset uint64
}

var _ Geometry = (*Topology)(nil)

func (t *Topology) GrainSize() uint64 {
	if t.Grain == 0 {
		return DefaultGrainSize
	}
	return t.Grain
}

func (t *Topology) SectorSize() uint64 {
	if t.Sector == 0 {
		return DefaultSectorSize
	}
	return t.Sector
}

func (t *Topology) FirstLBA() uint64 { return t.First }

func (t *Topology) LastLBA() uint64 { return t.Last }

// AlignLBA rounds lba to the grain, shifted by the alignment offset.
func (t *Topology) AlignLBA(lba uint64, dir AlignDirection) uint64 {
	sz := GrainSectors(t)
	if sz <= 1 {
		return lba
	}

	off := (t.AlignmentOffset / t.SectorSize()) % sz
	if lba < off {
		if dir == AlignDown {
			return lba
		}
		return off
	}

	x := lba - off
	if x%sz == 0 {
		return lba
	}

	switch dir {
	case AlignUp:
		x = (x/sz + 1) * sz
	case AlignDown:
		x = (x / sz) * sz
	default:
		x = ((x + sz/2) / sz) * sz
	}
	return x + off
}

// alignInRange aligns lba so that it stays within [start, stop]. Areas smaller
// than a grain are left untouched.
func alignInRange(g Geometry, lba, start, stop uint64) uint64 {
	start = g.AlignLBA(start, AlignUp)
	stop = g.AlignLBA(stop, AlignDown)

	if lba > start && lba < stop && lba-start < GrainSectors(g) {
		return lba
	}

	lba = g.AlignLBA(lba, AlignNearest)
	switch {
	case lba < start:
		return start
	case lba > stop:
		return stop
	default:
		return lba
	}
}
