// SteamOS Automount
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of SteamOS Automount.
//
// SteamOS Automount is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SteamOS Automount is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SteamOS Automount.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux

// Package devicelock serializes automount invocations per block device
// using advisory file locks, so concurrent udev events for the same
// device cannot race each other.
package devicelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrLockBusy is returned by Acquire when another process already holds
// the lock for the device.
var ErrLockBusy = errors.New("device lock held by another process")

// Guard holds an acquired device lock until Release is called.
type Guard struct {
	file *os.File
	once sync.Once
}

// Acquire takes an exclusive advisory lock for deviceName under lockDir
// without blocking. The lock file is created if missing but never
// truncated, so every locker contends on the same inode. Returns
// ErrLockBusy when another process holds the lock.
func Acquire(lockDir, deviceName string) (*Guard, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(lockDir, deviceName+".lock")
	//nolint:gosec // Safe: device name is validated before it reaches the lock path
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	return &Guard{file: file}, nil
}

// Path returns the lock file path held by this guard.
func (g *Guard) Path() string {
	return g.file.Name()
}

// Release drops the lock and closes the file. Safe to call more than
// once. The lock file itself is left in place: unlinking it would let a
// later invocation lock a fresh inode while an older holder still owns
// the original, breaking mutual exclusion.
func (g *Guard) Release() {
	g.once.Do(func() {
		_ = unix.Flock(int(g.file.Fd()), unix.LOCK_UN)
		_ = g.file.Close()
	})
}
