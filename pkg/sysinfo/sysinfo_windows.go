package sysinfo

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func stat(info *SysInfo) error {
	v := windows.RtlGetVersion()

	info.Release = "Windows"
	info.Version = fmt.Sprintf("%d.%d", v.MajorVersion, v.MinorVersion)
	info.Kernel = fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
	return nil
}
