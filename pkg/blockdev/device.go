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

// Package blockdev models block-device partitions and answers questions
// about their volume state from the live mount table, the UDisks2 daemon
// and the static fstab.
package blockdev

import (
	"fmt"
	"regexp"
)

// deviceNamePattern matches short kernel device names like "sdb1",
// "nvme0n1p2" or "dm-0".
var deviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Device identifies a block-device partition by its short kernel name.
// A handle is constructed fresh per invocation and never outlives it.
type Device struct {
	name string
}

// NewDevice validates a short device name and returns a handle for it.
// Path separators and other characters are rejected outright: the name
// is used to build /dev and lock-file paths while running as root.
func NewDevice(name string) (Device, error) {
	if !deviceNamePattern.MatchString(name) {
		return Device{}, fmt.Errorf("invalid device name %q", name)
	}
	return Device{name: name}, nil
}

// Name returns the short device name, e.g. "sdb1".
func (d Device) Name() string {
	return d.name
}

// Node returns the absolute device node path, e.g. "/dev/sdb1".
func (d Device) Node() string {
	return "/dev/" + d.name
}
