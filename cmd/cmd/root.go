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
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ostafen/partlab/internal/env"
	"github.com/ostafen/partlab/internal/logger"
)

func Execute() error {
	return NewRootCommand().Execute()
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   env.AppName,
		Short: env.AppName + " - inspect, compare and rewrite disk partition tables",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogrus(getLogLevel(cmd), os.Stderr)
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		DefineListCommand(),
		DefineFreeCommand(),
		DefineDiffCommand(),
		DefineSnapshotCommand(),
		DefineApplyCommand(),
		DefineMountCommand(),
		DefineVersionCommand(),
	)
	return rootCmd
}

func getLogLevel(cmd *cobra.Command) logger.Level {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.ParseLevel(level)
}

func newLogger(cmd *cobra.Command) *logger.Logger {
	return logger.New(os.Stderr, getLogLevel(cmd))
}

// configureLogrus aligns the standard logrus logger, used by the disk
// library, with the level of the command.
func configureLogrus(level logger.Level, w io.Writer) {
	logrus.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.ToLower(level.String()))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	// the disk library is chatty at info level
	if lvl > logrus.WarnLevel && level != logger.DebugLevel {
		lvl = logrus.WarnLevel
	}
	logrus.SetLevel(lvl)
}
