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
//go:build linux
// +build linux

package fuse

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/ostafen/partlab/internal/logger"
	osutil "github.com/ostafen/partlab/pkg/util/os"
)

const maxUnmountRetries = 3

// Mount serves entries at mountpoint until a termination signal unmounts it.
// The mountpoint is created when missing and removed on exit.
func Mount(mountpoint string, r io.ReaderAt, entries []Entry, log *logger.Logger) error {
	created, err := osutil.EnsureDir(mountpoint, true)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	c, err := fuse.Mount(mountpoint, fuse.ReadOnly(), fuse.FSName("partlab"))
	if err != nil {
		return err
	}
	defer c.Close()

	errc := make(chan error, 1)
	go func() {
		errc <- fusefs.Serve(c, NewPartitionFS(r, entries))
	}()

	log.Infof("serving %d files at %s", len(entries), mountpoint)
	return waitForUmount(mountpoint, errc, log)
}

func waitForUmount(mountpoint string, errc <-chan error, log *logger.Logger) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	log.Info("waiting for termination signal...")

	attempts := 0
	for {
		select {
		case err := <-errc:
			return err
		case sig := <-sigc:
			log.Infof("signal received: %v", sig)

			log.Infof("attempting unmount of %s (attempt %d/%d)...", mountpoint, attempts+1, maxUnmountRetries)
			err := fuse.Unmount(mountpoint)
			if err == nil {
				log.Info("unmounted successfully, exiting")
				return <-errc
			}

			attempts++
			if attempts >= maxUnmountRetries {
				return fmt.Errorf("unable to unmount %s after %d attempts: %w", mountpoint, attempts, err)
			}
			log.Warnf("unmount failed: %v. Remaining retries: %d", err, maxUnmountRetries-attempts)
		}
	}
}
