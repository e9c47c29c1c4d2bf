package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/env"
)

func DefineVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			PrintLogo(cmd)
		},
	}
}

func PrintLogo(cmd *cobra.Command) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "                  _   _       _     ")
	fmt.Fprintln(out, " _ __   __ _ _ __| |_| | __ _| |__  ")
	fmt.Fprintln(out, "| '_ \\ / _` | '__| __| |/ _` | '_ \\ ")
	fmt.Fprintln(out, "| |_) | (_| | |  | |_| | (_| | |_) |")
	fmt.Fprintln(out, "| .__/ \\__,_|_|   \\__|_|\\__,_|_.__/ ")
	fmt.Fprintln(out, "|_|                                 ")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Partition table toolkit")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Version:    %s\n", env.Version)
	fmt.Fprintf(out, "Commit:     %s\n", env.CommitHash)
	fmt.Fprintf(out, "Build Time: %s\n", env.BuildTime)
}
