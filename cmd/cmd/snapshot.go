package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/disk"
	"github.com/ostafen/partlab/pkg/report"
)

func DefineSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <image>",
		Short: "Save the partition layout of a disk to a file",
		Long: `The 'snapshot' command saves the partition layout of a disk image or device
to an XML file. When the output path ends in ".zst" the file is compressed.
Snapshots can be listed, compared and applied like disks.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunSnapshot,
	}
	cmd.Flags().StringP("output", "o", "", "path of the snapshot file (default <image>.xml)")
	return cmd
}

func RunSnapshot(cmd *cobra.Command, args []string) error {
	path := args[0]

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = filepath.Base(path) + ".xml"
	}

	l, err := disk.OpenLabel(path, disk.Options{Logger: newLogger(cmd)})
	if err != nil {
		return err
	}
	defer l.Close()

	doc, err := report.Build(l, report.Source{
		ImageFilename: path,
		ImageSize:     uint64(l.Size()),
	}, fdiskLogger(cmd))
	if err != nil {
		return err
	}

	if err := report.Save(output, doc); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d partitions saved to %s (fingerprint %s)\n",
		len(doc.Partitions), output, doc.Fingerprint)
	return nil
}
