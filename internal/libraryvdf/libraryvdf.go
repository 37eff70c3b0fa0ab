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

// Package libraryvdf owns the marker file Steam uses to recognize a
// directory as a game library.
package libraryvdf

import (
	"fmt"
	"io"
	"os"

	"github.com/andygrunwald/vdf"
)

// FileName is the marker file name Steam expects at a library root.
const FileName = "libraryfolder.vdf"

// Content is the fixed stanza written into new marker files. Steam fills
// the fields in on first use; they start empty.
const Content = "\"libraryfolder\"\n{\n\t\"contentid\"\t\t\"\"\n\t\"label\"\t\t\"\"\n}\n"

// Write creates the marker file with the fixed stanza and explicit 0644
// bits so the desktop user can read it.
func Write(path string) error {
	//nolint:gosec // Marker must be world-readable for the desktop session
	if err := os.WriteFile(path, []byte(Content), 0o644); err != nil {
		return fmt.Errorf("failed to write library marker: %w", err)
	}
	return nil
}

// Validate checks that an existing marker parses as VDF and carries the
// expected top-level stanza. Existing markers are never rewritten, so a
// malformed one is only worth a warning to whoever reads the logs.
func Validate(r io.Reader) error {
	m, err := vdf.NewParser(r).Parse()
	if err != nil {
		return fmt.Errorf("failed to parse library marker: %w", err)
	}
	if _, ok := m["libraryfolder"]; !ok {
		return fmt.Errorf("library marker missing %q stanza", "libraryfolder")
	}
	return nil
}
