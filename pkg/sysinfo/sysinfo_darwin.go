package sysinfo

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

func stat(info *SysInfo) error {
	info.Release = "macOS"

	if output, err := exec.Command("sw_vers").Output(); err == nil {
		scanner := bufio.NewScanner(bytes.NewReader(output))
		for scanner.Scan() {
			key, value, ok := strings.Cut(scanner.Text(), ":")
			if !ok {
				continue
			}

			switch strings.TrimSpace(key) {
			case "ProductName":
				info.Release = strings.TrimSpace(value)
			case "ProductVersion":
				info.Version = strings.TrimSpace(value)
			}
		}
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fmt.Errorf("uname failed: %w", err)
	}
	info.Kernel = unix.ByteSliceToString(uts.Release[:])
	return nil
}
