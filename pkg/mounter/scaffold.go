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
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/steamos-automount/internal/libraryvdf"
	"github.com/rs/zerolog/log"
)

const (
	steamAppsDir = "steamapps"
	symlinkName  = "SteamLibrary"
	lostFoundDir = "lost+found"
)

// scaffoldLibrary lays down the artifacts Steam expects at a library
// root. Every step checks for presence before creating anything and
// never overwrites what already exists, so repeat runs are no-ops. The
// volume is already mounted by the time this runs; problems here are
// logged, not returned.
func scaffoldLibrary(mountPath string, uid, gid int) {
	removeLostFound(mountPath)
	ensureSteamAppsDir(mountPath)
	ensureLibrarySymlink(mountPath)
	ensureMarker(mountPath)
	chownTree(mountPath, uid, gid)
}

// removeLostFound drops the mkfs-created lost+found directory. A game
// library presented to users should not start with fsck leftovers.
func removeLostFound(mountPath string) {
	path := filepath.Join(mountPath, lostFoundDir)
	if _, err := os.Lstat(path); err != nil {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove lost+found")
		return
	}
	log.Debug().Str("path", path).Msg("removed lost+found")
}

func ensureSteamAppsDir(mountPath string) {
	path := filepath.Join(mountPath, steamAppsDir)
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := os.Mkdir(path, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		log.Warn().Err(err).Str("path", path).Msg("failed to create steamapps directory")
	}
}

// ensureLibrarySymlink creates the desktop-mode compatibility link that
// points back at the mount root.
func ensureLibrarySymlink(mountPath string) {
	path := filepath.Join(mountPath, symlinkName)
	if _, err := os.Lstat(path); err == nil {
		return
	}
	if err := os.Symlink(mountPath, path); err != nil && !errors.Is(err, os.ErrExist) {
		log.Warn().Err(err).Str("path", path).Msg("failed to create library symlink")
	}
}

func ensureMarker(mountPath string) {
	path := filepath.Join(mountPath, libraryvdf.FileName)
	//nolint:gosec // Safe: path is rooted at the freshly mounted volume
	file, err := os.Open(path)
	if err == nil {
		defer func() { _ = file.Close() }()
		if valErr := libraryvdf.Validate(file); valErr != nil {
			log.Warn().Err(valErr).
				Str("path", path).
				Msg("existing library marker is malformed, leaving it untouched")
		}
		return
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("failed to check library marker")
		return
	}
	if err := libraryvdf.Write(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to write library marker")
	}
}

// chownTree hands the whole tree to the desktop user. Per-entry failures
// are logged and skipped so one bad file cannot stop the rest of the
// tree from being fixed up.
func chownTree(root string, uid, gid int) {
	walkErr := filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry during ownership pass")
			return nil
		}
		if err := os.Lchown(path, uid, gid); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to change ownership")
		}
		return nil
	})
	if walkErr != nil {
		log.Warn().Err(walkErr).Str("path", root).Msg("ownership pass failed")
	}
}
