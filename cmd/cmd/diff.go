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
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ostafen/partlab/internal/fdisk"
)

func DefineDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare the partitions of two disks or snapshots",
		Long: `The 'diff' command reports, partition by partition, how the layout of <new>
differs from the one of <old>. Both arguments can be disk images, devices or
snapshot files. Partitions are matched by number.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunDiff,
	}
	cmd.Flags().BoolP("all", "a", false, "also report unchanged partitions")
	return cmd
}

func RunDiff(cmd *cobra.Command, args []string) error {
	var tables [2]*fdisk.Table
	defer func() {
		for _, tb := range tables {
			tb.Unref()
		}
	}()

	var g errgroup.Group
	for i, path := range args {
		g.Go(func() error {
			tb, err := loadTable(cmd, path)
			tables[i] = tb
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	return printDiff(cmd.OutOrStdout(), tables[0], tables[1], all)
}

// loadTable reads the used partitions of path into a new table.
func loadTable(cmd *cobra.Command, path string) (*fdisk.Table, error) {
	src, err := openSource(cmd, path, 0)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	cxt, err := src.context(cmd)
	if err != nil {
		return nil, err
	}

	tb, err := cxt.GetPartitions(nil)
	if err != nil {
		tb.Unref()
		return nil, err
	}
	return tb, nil
}

func printDiff(out io.Writer, a, b *fdisk.Table, all bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	changes := 0
	d := fdisk.NewDiffer(a, b)
	for c, err := d.Next(); err == nil; c, err = d.Next() {
		if c.Kind == fdisk.DiffUnchanged && !all {
			continue
		}

		pa := c.Partition
		switch c.Kind {
		case fdisk.DiffMoved, fdisk.DiffResized:
			old := a.GetByPartno(pa.Partno())
			fmt.Fprintf(w, "%s\t#%d\t[%d,%d] -> [%d,%d]\n", c.Kind, pa.Partno(), old.Start(), old.End(), pa.Start(), pa.End())
		default:
			fmt.Fprintf(w, "%s\t#%d\t[%d,%d]\n", c.Kind, pa.Partno(), pa.Start(), pa.End())
		}

		if c.Kind != fdisk.DiffUnchanged {
			changes++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if changes == 0 {
		fmt.Fprintln(out, "no differences")
	}
	return nil
}
