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

package automount

import (
	"context"
	"errors"

	"github.com/ZaparooProject/steamos-automount/pkg/blockdev"
	"github.com/ZaparooProject/steamos-automount/pkg/config"
	"github.com/ZaparooProject/steamos-automount/pkg/devicelock"
	"github.com/ZaparooProject/steamos-automount/pkg/mounter"
	"github.com/ZaparooProject/steamos-automount/pkg/steam"
	"github.com/rs/zerolog/log"
)

// mountResolver reports where a device is currently mounted.
type mountResolver interface {
	CurrentMountPoint(ctx context.Context, dev blockdev.Device) (string, bool, error)
}

// volumeMounter mounts a device and reports the resulting path.
type volumeMounter interface {
	Mount(ctx context.Context, dev blockdev.Device) (mounter.Result, error)
}

// peerNotifier announces library changes to the running client.
type peerNotifier interface {
	Notify(ctx context.Context, dev blockdev.Device, cmd steam.LibraryCommand, fallbackPath string)
	AwaitStartup(ctx context.Context) bool
}

// Dispatcher runs one action for one device behind the device lock.
type Dispatcher struct {
	cfg      *config.Instance
	probe    mountResolver
	mounter  volumeMounter
	notifier peerNotifier
}

// NewDispatcher wires a dispatcher from the mount pipeline components.
func NewDispatcher(
	cfg *config.Instance,
	probe mountResolver,
	mountSvc volumeMounter,
	notifier peerNotifier,
) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		probe:    probe,
		mounter:  mountSvc,
		notifier: notifier,
	}
}

// Run executes one action for deviceName and reports the invocation
// status. Invalid input terminates before the lock is taken, so a bad
// invocation never creates device state. The lock is held for the whole
// action and released on every return path; when another invocation
// already holds it, Run gives up immediately instead of queueing behind
// an event that may no longer describe reality.
func (d *Dispatcher) Run(ctx context.Context, action Action, deviceName string) Status {
	var flow func(context.Context, blockdev.Device) Status
	switch action {
	case ActionMount:
		flow = d.mount
	case ActionUnmount:
		flow = d.unmount
	case ActionRetrigger:
		flow = d.retrigger
	default:
		log.Error().Str("action", string(action)).Msg("unknown action")
		return StatusUsage
	}

	dev, err := blockdev.NewDevice(deviceName)
	if err != nil {
		log.Error().Err(err).Str("device", deviceName).Msg("invalid device name")
		return StatusUsage
	}

	guard, err := devicelock.Acquire(d.cfg.LockDir(), dev.Name())
	if err != nil {
		if errors.Is(err, devicelock.ErrLockBusy) {
			log.Info().
				Str("device", dev.Name()).
				Msg("another invocation holds the device lock, giving up")
			return StatusLockBusy
		}
		log.Error().Err(err).Str("device", dev.Name()).Msg("failed to acquire device lock")
		return StatusError
	}
	defer guard.Release()

	log.Info().
		Str("action", string(action)).
		Str("device", dev.Node()).
		Msg("handling device event")
	return flow(ctx, dev)
}

func (d *Dispatcher) mount(ctx context.Context, dev blockdev.Device) Status {
	result, err := d.mounter.Mount(ctx, dev)
	if err != nil {
		if errors.Is(err, mounter.ErrUnsupportedFilesystem) {
			log.Error().Err(err).Msg("refusing to mount")
			return StatusUnsupportedFilesystem
		}
		log.Error().Err(err).Str("device", dev.Node()).Msg("mount failed")
		return StatusError
	}
	if result.SkippedFstab {
		// The volume is statically declared; the OS owns it and the
		// client must not treat it as a removable library.
		return StatusOK
	}

	d.notifier.Notify(ctx, dev, steam.CmdAddLibraryFolder, result.MountPath)
	return StatusOK
}

func (d *Dispatcher) unmount(ctx context.Context, dev blockdev.Device) Status {
	path, mounted, err := d.probe.CurrentMountPoint(ctx, dev)
	if err != nil {
		log.Error().Err(err).Str("device", dev.Node()).Msg("failed to read mount table")
		return StatusError
	}
	if !mounted {
		log.Info().Str("device", dev.Node()).Msg("not mounted, nothing to do")
		return StatusOK
	}

	// The mount service tears the mount down on its own; this pass only
	// tells the client the library is gone.
	d.notifier.Notify(ctx, dev, steam.CmdRemoveLibraryFolder, path)
	return StatusOK
}

func (d *Dispatcher) retrigger(ctx context.Context, dev blockdev.Device) Status {
	path, mounted, err := d.probe.CurrentMountPoint(ctx, dev)
	if err != nil {
		log.Error().Err(err).Str("device", dev.Node()).Msg("failed to read mount table")
		return StatusError
	}
	if !mounted {
		log.Info().Str("device", dev.Node()).Msg("not mounted, nothing to re-announce")
		return StatusOK
	}

	// A retrigger races the client's own startup, so give its command
	// channel time to come up. The announcement goes out even when the
	// helper never showed.
	d.notifier.AwaitStartup(ctx)
	d.notifier.Notify(ctx, dev, steam.CmdAddLibraryFolder, path)
	return StatusOK
}
