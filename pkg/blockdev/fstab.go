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

package blockdev

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const uuidSourcePrefix = "UUID="

// isUUIDInFstab reports whether a table in fstab(5) format declares a
// mount whose source is the given filesystem UUID. Both the UUID= key
// and the value compare case-insensitively; comment and blank lines are
// skipped.
func isUUIDInFstab(r io.Reader, uuid string) (bool, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		source := fields[0]
		if len(source) <= len(uuidSourcePrefix) {
			continue
		}
		if !strings.EqualFold(source[:len(uuidSourcePrefix)], uuidSourcePrefix) {
			continue
		}
		if strings.EqualFold(source[len(uuidSourcePrefix):], uuid) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to scan fstab: %w", err)
	}
	return false, nil
}
