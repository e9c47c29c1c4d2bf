package sysinfo

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOSRelease(t *testing.T) {
	data := `NAME="Ubuntu"
VERSION="24.04 LTS (Noble Numbat)"
ID=ubuntu
# comment
VERSION_ID='24.04'
`
	name, version := parseOSRelease(strings.NewReader(data))
	require.Equal(t, "Ubuntu", name)
	require.Equal(t, "24.04 LTS (Noble Numbat)", version)

	name, version = parseOSRelease(strings.NewReader(""))
	require.Empty(t, name)
	require.Empty(t, version)
}

func TestStat(t *testing.T) {
	info, err := Stat()
	require.NoError(t, err)
	require.Equal(t, runtime.GOOS, info.Name)
	require.NotEmpty(t, info.Kernel)
}
