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

package mocks

import (
	"context"

	"github.com/ZaparooProject/steamos-automount/pkg/udisks"
	"github.com/stretchr/testify/mock"
)

// MockUDisksClient is a testify mock standing in for *udisks.Client in
// code that reads block properties or mounts filesystems.
type MockUDisksClient struct {
	mock.Mock
}

// BlockInfo mocks reading the identifying properties of a block device.
func (m *MockUDisksClient) BlockInfo(ctx context.Context, deviceName string) (udisks.BlockInfo, error) {
	called := m.Called(ctx, deviceName)
	info, _ := called.Get(0).(udisks.BlockInfo)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return info, called.Error(1)
}

// MountPoints mocks reading the filesystem's active mount points.
func (m *MockUDisksClient) MountPoints(ctx context.Context, deviceName string) ([]string, error) {
	called := m.Called(ctx, deviceName)
	points, _ := called.Get(0).([]string)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return points, called.Error(1)
}

// Mount mocks a UDisks2 Filesystem.Mount call.
func (m *MockUDisksClient) Mount(ctx context.Context, deviceName string, opts udisks.MountOptions) (string, error) {
	called := m.Called(ctx, deviceName, opts)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.String(0), called.Error(1)
}
