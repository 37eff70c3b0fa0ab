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

package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

var AppVersion = "DEVELOPMENT"

const (
	AppName = "steamos-automount"
	LogFile = "automount.log"
	CfgFile = "config.toml"
	CfgEnv  = "AUTOMOUNT_CFG"
)

// DefaultConfigDir returns the directory the config file is read from.
// The tool normally runs as root from a udev rule, in which case system
// paths are used; per-user XDG paths are the fallback for development runs.
func DefaultConfigDir() string {
	if os.Geteuid() == 0 {
		return filepath.Join("/etc", AppName)
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultLogDir returns the directory rotated log files are written to.
func DefaultLogDir() string {
	if os.Geteuid() == 0 {
		return filepath.Join("/var/log", AppName)
	}
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLockDir returns the runtime-state directory holding per-device
// lock files. Lock files must be reachable by every concurrent invocation,
// so this lives on a tmpfs that survives for the whole boot.
func DefaultLockDir() string {
	if os.Geteuid() == 0 {
		return filepath.Join("/run", AppName)
	}
	return filepath.Join(xdg.RuntimeDir, AppName)
}
