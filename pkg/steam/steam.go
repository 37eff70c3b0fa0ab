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

// Package steam announces library volumes to a running Steam client
// over its steam:// URL command channel.
package steam

import "strings"

// LibraryCommand is a URL command understood by the client's library
// folder handler.
type LibraryCommand string

const (
	// CmdAddLibraryFolder registers a mount point as a Steam library.
	CmdAddLibraryFolder LibraryCommand = "addlibraryfolder"
	// CmdRemoveLibraryFolder unregisters a mount point.
	CmdRemoveLibraryFolder LibraryCommand = "removelibraryfolder"
)

const hexDigits = "0123456789abcdef"

// EncodePath percent-encodes every byte of s, including unreserved
// ASCII. The client accepts the conservative form, and it guarantees the
// result is a single URL path segment no matter what the input contains.
func EncodePath(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := range len(s) {
		b.WriteByte('%')
		b.WriteByte(hexDigits[s[i]>>4])
		b.WriteByte(hexDigits[s[i]&0x0f])
	}
	return b.String()
}

// BuildLibraryURL builds the steam:// URL that delivers a library
// command for the given mount path.
func BuildLibraryURL(cmd LibraryCommand, path string) string {
	return "steam://" + string(cmd) + "/" + EncodePath(path)
}
