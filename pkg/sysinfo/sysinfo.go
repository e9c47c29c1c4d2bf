// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package sysinfo

import (
	"bufio"
	"io"
	"runtime"
	"strings"
)

// SysUnknown is returned when the platform details cannot be determined.
var SysUnknown = SysInfo{
	Name:    runtime.GOOS,
	Release: "unknown",
	Version: "unknown",
	Kernel:  "unknown",
}

// SysInfo holds the basic operating system details.
type SysInfo struct {
	Name    string // runtime.GOOS
	Release string // distribution or product name, e.g. "Ubuntu" or "macOS"
	Version string // distribution or product version
	Kernel  string // kernel release
}

// Stat gathers the operating system details of the running host.
func Stat() (*SysInfo, error) {
	info := SysUnknown
	if err := stat(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// parseOSRelease extracts NAME and VERSION from an os-release file.
func parseOSRelease(r io.Reader) (name, version string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}

		value = strings.Trim(value, `"'`)
		switch key {
		case "NAME":
			name = value
		case "VERSION":
			version = value
		}
	}
	return name, version
}
