package format

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	_  = iota
	KB = 1 << (10 * iota)
	MB
	GB
	TB
)

var units = []struct {
	suffix string
	size   uint64
}{
	{"TiB", TB},
	{"GiB", GB},
	{"MiB", MB},
	{"KiB", KB},
}

// FormatBytes renders b using the largest binary unit that fits.
func FormatBytes(b uint64) string {
	for _, u := range units {
		if b < u.size {
			continue
		}

		val := float64(b) / float64(u.size)
		if b%u.size == 0 {
			return fmt.Sprintf("%.0f%s", val, u.suffix)
		}
		return fmt.Sprintf("%.2f%s", val, u.suffix)
	}
	return fmt.Sprintf("%dB", b)
}

// ParseBytes parses sizes such as "512", "4k", "1MiB" or "2G".
// Units are always binary.
func ParseBytes(s string) (uint64, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0, fmt.Errorf("empty size")
	}

	i := 0
	for i < len(str) && str[i] >= '0' && str[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	n, err := strconv.ParseUint(str[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	var mult uint64
	switch strings.ToUpper(strings.TrimSpace(str[i:])) {
	case "", "B":
		mult = 1
	case "K", "KB", "KIB":
		mult = KB
	case "M", "MB", "MIB":
		mult = MB
	case "G", "GB", "GIB":
		mult = GB
	case "T", "TB", "TIB":
		mult = TB
	default:
		return 0, fmt.Errorf("invalid size unit in %q", s)
	}

	if n > ^uint64(0)/mult {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n * mult, nil
}
