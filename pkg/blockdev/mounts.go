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

// findMountPoint scans a mounts table in /proc/mounts format and returns
// the target of the first entry whose source is the given device node.
func findMountPoint(r io.Reader, node string) (string, bool, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if decodeMountField(fields[0]) != node {
			continue
		}
		return decodeMountField(fields[1]), true, nil
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("failed to scan mounts table: %w", err)
	}
	return "", false, nil
}

// decodeMountField expands the octal escapes the kernel writes into
// /proc/mounts fields: \040 space, \011 tab, \012 newline, \134
// backslash. Library volumes regularly carry labels with spaces, so
// their mount paths arrive escaped.
func decodeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}
