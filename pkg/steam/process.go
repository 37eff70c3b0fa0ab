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

package steam

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo identifies a running client process and the account it
// belongs to.
type ProcessInfo struct {
	PID int32
	UID int
}

// ProcessFinder reports whether a named process is currently running.
type ProcessFinder interface {
	FindByName(name string) (ProcessInfo, bool, error)
}

// GopsutilFinder locates processes by scanning the system process table.
type GopsutilFinder struct{}

var _ ProcessFinder = (*GopsutilFinder)(nil)

// FindByName returns the first process whose comm name matches name.
// Comm names are capped at 15 bytes by the kernel, so longer names never
// match.
func (*GopsutilFinder) FindByName(name string) (ProcessInfo, bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return ProcessInfo{}, false, fmt.Errorf("failed to list processes: %w", err)
	}

	for _, proc := range procs {
		procName, err := proc.Name()
		if err != nil {
			// Process may have exited mid-scan
			continue
		}
		if procName != name {
			continue
		}
		uids, err := proc.Uids()
		if err != nil || len(uids) == 0 {
			continue
		}
		return ProcessInfo{PID: proc.Pid, UID: int(uids[0])}, true, nil
	}

	return ProcessInfo{}, false, nil
}
