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

package mounter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/steamos-automount/pkg/blockdev"
	"github.com/ZaparooProject/steamos-automount/pkg/config"
	"github.com/ZaparooProject/steamos-automount/pkg/testing/mocks"
	"github.com/ZaparooProject/steamos-automount/pkg/udisks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

func testDevice(t *testing.T) blockdev.Device {
	t.Helper()
	dev, err := blockdev.NewDevice("sdb1")
	require.NoError(t, err)
	return dev
}

func writeFstab(t *testing.T, content string) blockdev.Option {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fstab")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return blockdev.WithFstabPath(path)
}

func TestServiceMount(t *testing.T) {
	t.Parallel()

	t.Run("mounts_and_scaffolds", func(t *testing.T) {
		t.Parallel()

		mountDir := t.TempDir()
		client := &mocks.MockUDisksClient{}
		client.On("BlockInfo", mock.Anything, "sdb1").Return(udisks.BlockInfo{
			UUID:   "ABCD-1234",
			FSType: "ext4",
		}, nil)
		client.On("Mount", mock.Anything, "sdb1", udisks.MountOptions{
			Options:           "rw,noatime",
			AsUser:            "deck",
			NoUserInteraction: true,
		}).Return(mountDir, nil)

		executor := &mocks.MockCommandExecutor{}
		executor.On("Run", mock.Anything, "udevadm", []string{"settle", "--timeout=30"}).
			Return(nil)

		probe := blockdev.NewProbe(client, writeFstab(t, "# empty\n"))
		svc := NewService(testConfig(t), probe, client, executor)

		result, err := svc.Mount(context.Background(), testDevice(t))

		require.NoError(t, err)
		assert.Equal(t, mountDir, result.MountPath)
		assert.False(t, result.SkippedFstab)

		assert.DirExists(t, filepath.Join(mountDir, "steamapps"))
		target, linkErr := os.Readlink(filepath.Join(mountDir, "SteamLibrary"))
		require.NoError(t, linkErr)
		assert.Equal(t, mountDir, target)
		assert.FileExists(t, filepath.Join(mountDir, "libraryfolder.vdf"))

		client.AssertExpectations(t)
		executor.AssertExpectations(t)
	})

	t.Run("fstab_declared_volume_is_skipped", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockUDisksClient{}
		client.On("BlockInfo", mock.Anything, "sdb1").Return(udisks.BlockInfo{
			UUID:   "ABCD-1234",
			FSType: "ext4",
		}, nil)

		executor := &mocks.MockCommandExecutor{}
		probe := blockdev.NewProbe(client,
			writeFstab(t, "UUID=ABCD-1234 /games ext4 defaults 0 2\n"))
		svc := NewService(testConfig(t), probe, client, executor)

		result, err := svc.Mount(context.Background(), testDevice(t))

		require.NoError(t, err)
		assert.True(t, result.SkippedFstab)
		assert.Empty(t, result.MountPath)
		client.AssertNotCalled(t, "Mount", mock.Anything, mock.Anything, mock.Anything)
		executor.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unsupported_filesystem_is_rejected_before_any_call", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockUDisksClient{}
		client.On("BlockInfo", mock.Anything, "sdb1").Return(udisks.BlockInfo{
			UUID:   "ABCD-1234",
			FSType: "ntfs",
		}, nil)

		executor := &mocks.MockCommandExecutor{}
		probe := blockdev.NewProbe(client, writeFstab(t, "# empty\n"))
		svc := NewService(testConfig(t), probe, client, executor)

		_, err := svc.Mount(context.Background(), testDevice(t))

		require.ErrorIs(t, err, ErrUnsupportedFilesystem)
		client.AssertNotCalled(t, "Mount", mock.Anything, mock.Anything, mock.Anything)
		executor.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing_filesystem_type_is_rejected", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockUDisksClient{}
		client.On("BlockInfo", mock.Anything, "sdb1").Return(udisks.BlockInfo{
			UUID: "ABCD-1234",
		}, nil)

		probe := blockdev.NewProbe(client, writeFstab(t, "# empty\n"))
		svc := NewService(testConfig(t), probe, client, &mocks.MockCommandExecutor{})

		_, err := svc.Mount(context.Background(), testDevice(t))

		assert.ErrorIs(t, err, ErrUnsupportedFilesystem)
	})

	t.Run("probe_failure_propagates", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockUDisksClient{}
		client.On("BlockInfo", mock.Anything, "sdb1").
			Return(udisks.BlockInfo{}, errors.New("no such object"))

		probe := blockdev.NewProbe(client, writeFstab(t, "# empty\n"))
		svc := NewService(testConfig(t), probe, client, &mocks.MockCommandExecutor{})

		_, err := svc.Mount(context.Background(), testDevice(t))

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnsupportedFilesystem)
	})

	t.Run("settle_failure_is_fatal", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockUDisksClient{}
		client.On("BlockInfo", mock.Anything, "sdb1").Return(udisks.BlockInfo{
			UUID:   "ABCD-1234",
			FSType: "ext4",
		}, nil)

		executor := &mocks.MockCommandExecutor{}
		executor.On("Run", mock.Anything, "udevadm", mock.Anything).
			Return(errors.New("settle timed out"))

		probe := blockdev.NewProbe(client, writeFstab(t, "# empty\n"))
		svc := NewService(testConfig(t), probe, client, executor)

		_, err := svc.Mount(context.Background(), testDevice(t))

		require.Error(t, err)
		client.AssertNotCalled(t, "Mount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mount_call_failure_propagates", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockUDisksClient{}
		client.On("BlockInfo", mock.Anything, "sdb1").Return(udisks.BlockInfo{
			UUID:   "ABCD-1234",
			FSType: "ext4",
		}, nil)
		client.On("Mount", mock.Anything, "sdb1", mock.Anything).
			Return("", udisks.ErrMalformedReply)

		executor := &mocks.MockCommandExecutor{}
		executor.On("Run", mock.Anything, "udevadm", mock.Anything).Return(nil)

		probe := blockdev.NewProbe(client, writeFstab(t, "# empty\n"))
		svc := NewService(testConfig(t), probe, client, executor)

		_, err := svc.Mount(context.Background(), testDevice(t))

		assert.ErrorIs(t, err, udisks.ErrMalformedReply)
	})
}
