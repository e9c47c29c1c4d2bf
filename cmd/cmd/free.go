package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/fdisk"
	"github.com/ostafen/partlab/pkg/util/format"
)

func DefineFreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "free <image|snapshot>",
		Short:        "List the unpartitioned areas of a disk",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunFree,
	}
	addGrainFlag(cmd)
	return cmd
}

func RunFree(cmd *cobra.Command, args []string) error {
	grain, err := getGrain(cmd)
	if err != nil {
		return err
	}

	src, err := openSource(cmd, args[0], grain)
	if err != nil {
		return err
	}
	defer src.Close()

	cxt, err := src.context(cmd)
	if err != nil {
		return err
	}

	free, err := cxt.GetFreespaces(nil)
	defer free.Unref()
	if err != nil {
		return err
	}

	ss := src.label.SectorSize()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Start\tEnd\tSectors\tSize\tParent")

	var total uint64
	itr := fdisk.NewIter()
	for pa, err := free.Next(itr); err == nil; pa, err = free.Next(itr) {
		parent := "-"
		if pa.HasParentPartno() {
			parent = fmt.Sprint(pa.ParentPartno())
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
			pa.Start(), pa.End(), pa.Size(), format.FormatBytes(pa.Size()*ss), parent)

		total += pa.Size()
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d free regions, %s in total\n", free.Len(), format.FormatBytes(total*ss))
	return nil
}
