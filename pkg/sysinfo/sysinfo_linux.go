package sysinfo

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func stat(info *SysInfo) error {
	if f, err := os.Open("/etc/os-release"); err == nil {
		name, version := parseOSRelease(f)
		f.Close()

		if name != "" {
			info.Release = name
		}
		if version != "" {
			info.Version = version
		}
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fmt.Errorf("uname failed: %w", err)
	}
	info.Kernel = unix.ByteSliceToString(uts.Release[:])
	return nil
}
