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
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/disk"
	"github.com/ostafen/partlab/internal/fdisk"
	"github.com/ostafen/partlab/internal/fs"
	"github.com/ostafen/partlab/internal/fuse"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <image>",
		Short: "Expose the partitions and free areas of a disk as files",
		Long: `The 'mount' command serves a read-only FUSE filesystem holding one file per
partition of the disk (p<N>, N being the partition number) and one file per
unpartitioned area (free<N>). Unmount it by interrupting the command.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunMount,
	}

	cmd.Flags().StringP("mountpoint", "m", "", "directory where the filesystem will be mounted. If not specified, a default will be generated.")
	addGrainFlag(cmd)
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])

	grain, err := getGrain(cmd)
	if err != nil {
		return err
	}

	l, err := disk.OpenLabel(path, disk.Options{Grain: grain, Logger: newLogger(cmd)})
	if err != nil {
		return err
	}
	defer l.Close()

	cxt, err := fdisk.NewContext(l, fdiskLogger(cmd))
	if err != nil {
		return err
	}

	parts, err := cxt.GetPartitions(nil)
	defer parts.Unref()
	if err != nil {
		return err
	}

	free, err := cxt.GetFreespaces(nil)
	defer free.Unref()
	if err != nil {
		return err
	}

	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mountpoint, _ := cmd.Flags().GetString("mountpoint")
	if mountpoint == "" {
		mountpoint = getMountpoint(args[0])
	}

	entries := fuse.BuildEntries(parts, free, l.SectorSize())
	return fuse.Mount(mountpoint, f, entries, newLogger(cmd))
}

// getMountpoint derives a mountpoint name from the image name by replacing
// its extension with "_mnt".
func getMountpoint(imagePath string) string {
	baseName := filepath.Base(imagePath)
	return strings.TrimSuffix(baseName, filepath.Ext(baseName)) + "_mnt"
}
