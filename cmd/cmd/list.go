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
package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/disk"
	"github.com/ostafen/partlab/internal/fdisk"
	"github.com/ostafen/partlab/internal/fs"
	"github.com/ostafen/partlab/pkg/util/format"
)

func DefineListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "list <image|snapshot>",
		Short:        "List the partitions of a disk image, device or snapshot",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunList,
	}
	cmd.Flags().Bool("no-probe", false, "do not probe the partitions for known filesystems")
	return cmd
}

func RunList(cmd *cobra.Command, args []string) error {
	src, err := openSource(cmd, args[0], 0)
	if err != nil {
		return err
	}
	defer src.Close()

	cxt, err := src.context(cmd)
	if err != nil {
		return err
	}

	tb, err := cxt.GetPartitions(nil)
	defer tb.Unref()
	if err != nil {
		return err
	}

	var probe fs.File
	if noProbe, _ := cmd.Flags().GetBool("no-probe"); !noProbe && src.image != nil {
		probe, err = fs.Open(disk.NormalizeVolumePath(src.path))
		if err != nil {
			newLogger(cmd).Warnf("filesystem probing disabled: %v", err)
		} else {
			defer probe.Close()
		}
	}

	label := src.label
	fmt.Fprintf(cmd.OutOrStdout(), "Label: %s, sector size: %d, grain: %s, usable sectors: %d-%d\n\n",
		label.Type(), label.SectorSize(), format.FormatBytes(label.GrainSize()), label.FirstLBA(), label.LastLBA())

	if tb.WrongOrder() {
		fmt.Fprintln(cmd.OutOrStdout(), "Partition table entries are not in disk order.")
	}
	return printPartitions(cmd.OutOrStdout(), tb, label, probe)
}

func printPartitions(out io.Writer, tb *fdisk.Table, label fdisk.Label, probe fs.File) error {
	sectorSize := label.SectorSize()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tStart\tEnd\tSectors\tSize\tType\tFlags\tName\tFS")

	itr := fdisk.NewIter()
	for pa, err := tb.Next(itr); err == nil; pa, err = tb.Next(itr) {
		var fsType string
		if probe != nil && !pa.IsContainer() {
			t, err := disk.ProbeFilesystem(probe, int64(pa.Start()*sectorSize))
			if err != nil {
				t = "?"
			}
			fsType = t
		}

		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			pa.Partno(), pa.Start(), pa.End(), pa.Size(),
			format.FormatBytes(pa.Size()*sectorSize),
			disk.TypeName(label.Type(), pa.Type), partitionFlags(pa), pa.Name, fsType)
	}
	return w.Flush()
}

func partitionFlags(pa *fdisk.Partition) string {
	var flags []string
	if pa.Bootable {
		flags = append(flags, "boot")
	}
	if pa.IsContainer() {
		flags = append(flags, "extended")
	}
	if pa.IsNested() {
		flags = append(flags, "logical")
	}
	return strings.Join(flags, ",")
}
