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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaparooProject/steamos-automount/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const SchemaVersion = 1

type Values struct {
	Mount        Mount   `toml:"mount,omitempty"`
	Library      Library `toml:"library,omitempty"`
	Steam        Steam   `toml:"steam,omitempty"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

type Mount struct {
	Options              string   `toml:"options,omitempty"`
	AsUser               string   `toml:"as_user,omitempty"`
	LockDir              string   `toml:"lock_dir,omitempty"`
	SupportedFilesystems []string `toml:"supported_filesystems,omitempty,multiline"`
	SettleTimeout        int      `toml:"settle_timeout,omitempty"`
}

type Library struct {
	OwnerUID int `toml:"owner_uid"`
	OwnerGID int `toml:"owner_gid"`
}

type Steam struct {
	Process       string `toml:"process,omitempty"`
	HelperProcess string `toml:"helper_process,omitempty"`
	ReadyTimeout  int    `toml:"ready_timeout,omitempty"`
	StartupDelay  int    `toml:"startup_delay,omitempty"`
}

// BaseDefaults matches the stock SteamOS setup: the format tool only
// produces ext4, drives are mounted for the deck user, and Steam is the
// peer being notified.
var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Mount: Mount{
		SupportedFilesystems: []string{"ext4"},
		Options:              "rw,noatime",
		AsUser:               "deck",
		SettleTimeout:        30,
	},
	Library: Library{
		OwnerUID: 1000,
		OwnerGID: 1000,
	},
	Steam: Steam{
		Process:       "steam",
		HelperProcess: "steamwebhelper",
		ReadyTimeout:  10,
		StartupDelay:  6,
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from configDir, creating it with defaults
// on first run. A broken or unwritable config never stops an invocation:
// this tool runs from udev events and must handle the device with stock
// settings rather than fail, so load problems are logged and defaults used.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath != "" {
		log.Debug().Msgf("env config path: %s", cfgPath)
	} else {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			log.Warn().Err(err).Msg("cannot create config directory, using defaults")
			return &cfg, nil
		}
		if err := cfg.Save(); err != nil {
			log.Warn().Err(err).Msg("cannot save default config, using defaults")
		}
		return &cfg, nil
	}

	if err := cfg.Load(); err != nil {
		log.Warn().Err(err).Msg("config load failed, using defaults")
		cfg.mu.Lock()
		cfg.vals = defaults
		cfg.mu.Unlock()
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	if err := toml.Unmarshal(data, &newVals); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		return fmt.Errorf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema, SchemaVersion,
		)
	}

	c.vals = sanitize(newVals, c.defaults)
	return nil
}

// sanitize reverts individually invalid fields to their defaults. Invalid
// values come from hand-edited files; dropping the single bad field keeps
// the rest of the user's config in effect.
//
//nolint:gocritic // config structs copied for immutability
func sanitize(vals, defaults Values) Values {
	if len(vals.Mount.SupportedFilesystems) == 0 {
		log.Warn().Msg("empty supported_filesystems, reverting to default")
		vals.Mount.SupportedFilesystems = defaults.Mount.SupportedFilesystems
	}
	if vals.Mount.SettleTimeout <= 0 {
		log.Warn().Msg("non-positive settle_timeout, reverting to default")
		vals.Mount.SettleTimeout = defaults.Mount.SettleTimeout
	}
	if vals.Library.OwnerUID < 0 || vals.Library.OwnerGID < 0 {
		log.Warn().Msg("negative library owner, reverting to default")
		vals.Library = defaults.Library
	}
	if vals.Steam.ReadyTimeout <= 0 {
		log.Warn().Msg("non-positive ready_timeout, reverting to default")
		vals.Steam.ReadyTimeout = defaults.Steam.ReadyTimeout
	}
	if vals.Steam.StartupDelay < 0 {
		log.Warn().Msg("negative startup_delay, reverting to default")
		vals.Steam.StartupDelay = defaults.Steam.StartupDelay
	}
	return vals
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SupportedFilesystems() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fs := make([]string, len(c.vals.Mount.SupportedFilesystems))
	copy(fs, c.vals.Mount.SupportedFilesystems)
	return fs
}

func (c *Instance) MountOptions() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Mount.Options
}

func (c *Instance) MountAsUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Mount.AsUser
}

// LockDir returns the configured lock directory, falling back to the
// standard runtime-state location when unset.
func (c *Instance) LockDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Mount.LockDir != "" {
		return c.vals.Mount.LockDir
	}
	return DefaultLockDir()
}

func (c *Instance) SettleTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Mount.SettleTimeout) * time.Second
}

// LibraryOwner returns the uid/gid that owns everything under a mounted
// library.
func (c *Instance) LibraryOwner() (uid, gid int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Library.OwnerUID, c.vals.Library.OwnerGID
}

func (c *Instance) SteamProcess() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.Process
}

func (c *Instance) SteamHelperProcess() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.HelperProcess
}

func (c *Instance) HelperReadyTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Steam.ReadyTimeout) * time.Second
}

func (c *Instance) StartupDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Steam.StartupDelay) * time.Second
}
