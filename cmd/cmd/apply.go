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

	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/disk"
	"github.com/ostafen/partlab/internal/fdisk"
)

func DefineApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <snapshot|image> <target>",
		Short: "Rewrite the partition table of a disk from a snapshot or another disk",
		Long: `The 'apply' command replaces the partition table of <target> with the
partitions read from <snapshot|image>. Only the table is rewritten: partition
content is never touched. A target without a partition table gets a new one,
of the type given by --label or of the source type.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunApply,
	}

	cmd.Flags().Bool("force", false, "replace the partitions already present on the target")
	cmd.Flags().String("label", "", "type of the label to create on a blank target (mbr or gpt)")
	cmd.Flags().Bool("skip-logical", false, "do not apply logical partitions, which cannot be created")
	cmd.Flags().Bool("dry-run", false, "validate the new layout without writing it")
	return cmd
}

func RunApply(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	labelType, _ := cmd.Flags().GetString("label")
	skipLogical, _ := cmd.Flags().GetBool("skip-logical")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	log := newLogger(cmd)

	tb, src, err := loadSource(cmd, args[0])
	if err != nil {
		return err
	}
	defer tb.Unref()

	if labelType == "" {
		labelType = src.Type()
	}

	target, err := disk.OpenLabel(args[1], disk.Options{
		Writable:   !dryRun,
		Grain:      src.GrainSize(),
		CreateType: labelType,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer target.Close()

	cxt, err := fdisk.NewContext(target, fdiskLogger(cmd))
	if err != nil {
		return err
	}

	current, err := cxt.GetPartitions(nil)
	defer current.Unref()
	if err != nil {
		return err
	}
	if !current.IsEmpty() && !force {
		return fmt.Errorf("%s already has %d partitions, use --force to replace them", args[1], current.Len())
	}

	if skipLogical {
		for _, pa := range tb.Partitions() {
			if pa.IsNested() {
				log.Warnf("skipping logical partition %s", pa)
				_ = tb.Remove(pa)
			}
		}
	}

	if dryRun {
		return checkLayout(cmd, target, tb)
	}

	if err := target.ResetPartitions(); err != nil {
		return err
	}
	if err := cxt.ApplyTable(tb); err != nil {
		return err
	}
	if err := target.Write(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d partitions written to %s label\n", args[1], tb.Len(), target.Type())
	return nil
}

// loadSource reads the used partitions of path, returning them along with the
// label they were read from. The label is closed, so only its geometry can be
// used.
func loadSource(cmd *cobra.Command, path string) (*fdisk.Table, fdisk.Label, error) {
	src, err := openSource(cmd, path, 0)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	cxt, err := src.context(cmd)
	if err != nil {
		return nil, nil, err
	}

	tb, err := cxt.GetPartitions(nil)
	if err != nil {
		tb.Unref()
		return nil, nil, err
	}
	return tb, src.label, nil
}

// checkLayout reports the entries of tb not fitting the usable area of the
// target.
func checkLayout(cmd *cobra.Command, target fdisk.Label, tb *fdisk.Table) error {
	bad := 0
	for _, pa := range tb.Partitions() {
		if pa.HasEnd() && (pa.Start() < target.FirstLBA() || pa.End() > target.LastLBA()) {
			fmt.Fprintf(cmd.OutOrStdout(), "partition %s is outside of the usable area [%d,%d]\n",
				pa, target.FirstLBA(), target.LastLBA())
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d partitions do not fit the target", bad)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d partitions fit the %s label of the target\n", tb.Len(), target.Type())
	return nil
}
