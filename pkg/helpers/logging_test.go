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

package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // mutates the global logger
func TestInitLogging(t *testing.T) {
	t.Run("creates_log_directory", func(t *testing.T) {
		logDir := filepath.Join(t.TempDir(), "logs", "nested")

		err := InitLogging(logDir, nil)

		require.NoError(t, err)
		info, statErr := os.Stat(logDir)
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	})

	t.Run("works_when_directory_exists", func(t *testing.T) {
		logDir := t.TempDir()

		err := InitLogging(logDir, nil)

		assert.NoError(t, err)
	})

	t.Run("fails_when_directory_is_a_file", func(t *testing.T) {
		parent := t.TempDir()
		blocker := filepath.Join(parent, "logs")
		require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o600))

		err := InitLogging(blocker, nil)

		assert.Error(t, err)
	})
}
