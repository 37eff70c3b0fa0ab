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

package devicelock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	t.Parallel()

	t.Run("acquires_and_releases", func(t *testing.T) {
		t.Parallel()

		lockDir := t.TempDir()

		guard, err := Acquire(lockDir, "sdb1")

		require.NoError(t, err)
		require.NotNil(t, guard)
		assert.Equal(t, filepath.Join(lockDir, "sdb1.lock"), guard.Path())
		guard.Release()
	})

	t.Run("creates_lock_directory_when_missing", func(t *testing.T) {
		t.Parallel()

		lockDir := filepath.Join(t.TempDir(), "locks", "nested")

		guard, err := Acquire(lockDir, "sdb1")

		require.NoError(t, err)
		defer guard.Release()

		info, statErr := os.Stat(lockDir)
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	})

	t.Run("second_acquire_for_same_device_is_busy", func(t *testing.T) {
		t.Parallel()

		lockDir := t.TempDir()

		guard, err := Acquire(lockDir, "sdb1")
		require.NoError(t, err)
		defer guard.Release()

		// Separate open file descriptions conflict under flock even
		// within one process, standing in for a second invocation.
		second, err := Acquire(lockDir, "sdb1")

		require.ErrorIs(t, err, ErrLockBusy)
		assert.Nil(t, second)
	})

	t.Run("different_devices_do_not_conflict", func(t *testing.T) {
		t.Parallel()

		lockDir := t.TempDir()

		first, err := Acquire(lockDir, "sdb1")
		require.NoError(t, err)
		defer first.Release()

		second, err := Acquire(lockDir, "sdc1")

		require.NoError(t, err)
		second.Release()
	})

	t.Run("reacquire_after_release_succeeds", func(t *testing.T) {
		t.Parallel()

		lockDir := t.TempDir()

		first, err := Acquire(lockDir, "sdb1")
		require.NoError(t, err)
		first.Release()

		second, err := Acquire(lockDir, "sdb1")

		require.NoError(t, err)
		second.Release()
	})

	t.Run("fails_when_lock_dir_is_a_file", func(t *testing.T) {
		t.Parallel()

		parent := t.TempDir()
		blocker := filepath.Join(parent, "locks")
		require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o600))

		guard, err := Acquire(blocker, "sdb1")

		require.Error(t, err)
		assert.Nil(t, guard)
	})
}

func TestGuardRelease(t *testing.T) {
	t.Parallel()

	t.Run("release_is_idempotent", func(t *testing.T) {
		t.Parallel()

		lockDir := t.TempDir()

		guard, err := Acquire(lockDir, "sdb1")
		require.NoError(t, err)

		guard.Release()
		guard.Release()
	})

	t.Run("lock_file_is_never_removed", func(t *testing.T) {
		t.Parallel()

		lockDir := t.TempDir()

		guard, err := Acquire(lockDir, "sdb1")
		require.NoError(t, err)
		guard.Release()

		_, err = os.Stat(filepath.Join(lockDir, "sdb1.lock"))
		assert.NoError(t, err)
	})
}
