package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "0B", FormatBytes(0))
	require.Equal(t, "512B", FormatBytes(512))
	require.Equal(t, "1KiB", FormatBytes(1024))
	require.Equal(t, "1.50KiB", FormatBytes(1536))
	require.Equal(t, "1MiB", FormatBytes(1<<20))
	require.Equal(t, "2GiB", FormatBytes(2<<30))
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"512", 512},
		{"512B", 512},
		{"4k", 4096},
		{"1MiB", 1 << 20},
		{" 2 G ", 2 << 30},
		{"1tb", 1 << 40},
	}
	for _, tc := range tests {
		got, err := ParseBytes(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}

	for _, in := range []string{"", "MiB", "12X", "-1", "99999999999999999999"} {
		_, err := ParseBytes(in)
		require.Error(t, err, in)
	}

	_, err := ParseBytes("17179869184T")
	require.Error(t, err)
}
