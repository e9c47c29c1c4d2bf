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
package report

import (
	"encoding/xml"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"time"

	"github.com/ostafen/partlab/internal/env"
	"github.com/ostafen/partlab/pkg/sysinfo"
)

const FormatVersion = "1.0"

// Document is the root element of a layout snapshot.
type Document struct {
	XMLName     xml.Name `xml:"partlab"`
	Version     string   `xml:"version,attr"`
	Fingerprint string   `xml:"fingerprint,attr"` // xxhash64 of the entries, hex encoded
	Creator     Creator  `xml:"creator"`
	Source      Source   `xml:"source"`
	Geometry    Geometry `xml:"geometry"`
	Partitions  []Entry  `xml:"partitions>partition"`
}

// Creator describes the software and environment that took the snapshot.
type Creator struct {
	Package              string  `xml:"package"`
	Version              string  `xml:"version"`
	ExecutionEnvironment ExecEnv `xml:"execution_environment"`
}

// ExecEnv provides information about the host where the snapshot was taken.
type ExecEnv struct {
	OS      string `xml:"os_sysname"`
	Release string `xml:"os_release"`
	Version string `xml:"os_version"`
	Kernel  string `xml:"kernel"`
	Host    string `xml:"host"`
	Arch    string `xml:"arch"`
	UID     int    `xml:"uid"`
	Start   string `xml:"start_time"`
}

// Source describes the disk the layout was read from.
type Source struct {
	ImageFilename string `xml:"image_filename"`
	ImageSize     uint64 `xml:"image_size"`
	Label         string `xml:"label"` // "mbr" or "gpt"
}

// Geometry holds the addressing parameters of the source disk.
type Geometry struct {
	SectorSize      uint64 `xml:"sectorsize"`
	GrainSize       uint64 `xml:"grainsize"`
	FirstLBA        uint64 `xml:"first_lba"`
	LastLBA         uint64 `xml:"last_lba"`
	AlignmentOffset uint64 `xml:"alignment_offset,omitempty"`
}

// Entry is a single partition of the snapshot. Start and Size are in sectors.
type Entry struct {
	Partno    uint32  `xml:"partno,attr"`
	Parent    *uint32 `xml:"parent,attr,omitempty"`
	Container bool    `xml:"container,attr,omitempty"`
	Nested    bool    `xml:"nested,attr,omitempty"`
	Bootable  bool    `xml:"bootable,attr,omitempty"`
	Start     uint64  `xml:"start"`
	Size      uint64  `xml:"size"`
	Type      string  `xml:"type"`
	Name      string  `xml:"name,omitempty"`
}

func (e *Entry) End() uint64 {
	return e.Start + e.Size - 1
}

// NewCreator describes the running binary and host.
func NewCreator() Creator {
	return Creator{
		Package:              env.AppName,
		Version:              env.Version,
		ExecutionEnvironment: GetExecEnv(),
	}
}

// GetExecEnv retrieves runtime information to populate the ExecEnv struct.
func GetExecEnv() ExecEnv {
	sinfo, err := sysinfo.Stat()
	if err != nil {
		sinfo = &sysinfo.SysUnknown
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown_host"
	}

	uid := 0
	if u, err := user.Current(); err == nil {
		if id, err := strconv.Atoi(u.Uid); err == nil {
			uid = id
		}
	}

	return ExecEnv{
		OS:      sinfo.Name,
		Release: sinfo.Release,
		Version: sinfo.Version,
		Kernel:  sinfo.Kernel,
		Host:    host,
		Arch:    runtime.GOARCH,
		UID:     uid,
		Start:   time.Now().UTC().Format(time.RFC3339),
	}
}
