package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/disk"
	"github.com/ostafen/partlab/internal/fdisk"
	"github.com/ostafen/partlab/pkg/report"
	"github.com/ostafen/partlab/pkg/util/format"
)

// source is a label read either from a disk image or from a snapshot file.
type source struct {
	path  string
	label fdisk.Label
	image *disk.ImageLabel // nil for snapshots
}

func (s *source) Close() error {
	if s.image != nil {
		return s.image.Close()
	}
	return nil
}

func isSnapshotPath(path string) bool {
	return report.IsCompressed(path) || strings.EqualFold(filepath.Ext(path), ".xml")
}

// openSource opens path read-only. A non zero grain overrides the alignment
// of the label.
func openSource(cmd *cobra.Command, path string, grain uint64) (*source, error) {
	if isSnapshotPath(path) {
		s, err := report.LoadSnapshot(path)
		if err != nil {
			return nil, err
		}
		if grain > 0 {
			s.Grain = grain
		}
		return &source{path: path, label: s}, nil
	}

	l, err := disk.OpenLabel(path, disk.Options{
		Grain:  grain,
		Logger: newLogger(cmd).Named(filepath.Base(path)),
	})
	if err != nil {
		return nil, err
	}
	return &source{path: path, label: l, image: l}, nil
}

func (s *source) context(cmd *cobra.Command) (*fdisk.Context, error) {
	return fdisk.NewContext(s.label, fdiskLogger(cmd))
}

func fdiskLogger(cmd *cobra.Command) fdisk.Option {
	return fdisk.WithLogger(newLogger(cmd).Named("fdisk"))
}

func getGrain(cmd *cobra.Command) (uint64, error) {
	s, _ := cmd.Flags().GetString("grain")
	if s == "" {
		return 0, nil
	}

	grain, err := format.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --grain: %w", err)
	}
	return grain, nil
}

func addGrainFlag(cmd *cobra.Command) {
	cmd.Flags().String("grain", "", "alignment grain, e.g. 1MiB; guessed from the existing partitions when not set")
}
