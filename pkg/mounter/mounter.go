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

// Package mounter drives the privileged mount of a library volume and
// prepares the result for Steam: fstab and filesystem gating, udev
// settle, the UDisks2 mount call, and the on-disk library scaffold.
package mounter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/steamos-automount/pkg/blockdev"
	"github.com/ZaparooProject/steamos-automount/pkg/config"
	"github.com/ZaparooProject/steamos-automount/pkg/helpers/command"
	"github.com/ZaparooProject/steamos-automount/pkg/udisks"
	"github.com/rs/zerolog/log"
)

// ErrUnsupportedFilesystem is returned when the volume carries a
// filesystem the automounter does not accept. Only filesystems the
// companion format tool produces are mounted automatically.
var ErrUnsupportedFilesystem = errors.New("unsupported filesystem")

// Result reports a completed mount pass.
type Result struct {
	// MountPath is where the volume ended up mounted. Empty when the
	// mount was skipped.
	MountPath string
	// SkippedFstab is true when the volume is declared in fstab and
	// mounting was left to the OS.
	SkippedFstab bool
}

// volumeProbe is the slice of blockdev.Probe the mount flow needs.
type volumeProbe interface {
	Metadata(ctx context.Context, dev blockdev.Device) (blockdev.VolumeMetadata, error)
	IsKnownInFstab(uuid string) (bool, error)
}

// volumeMounter is the slice of the udisks client the mount flow needs.
type volumeMounter interface {
	Mount(ctx context.Context, deviceName string, opts udisks.MountOptions) (string, error)
}

// Service mounts library volumes and applies the library scaffold.
type Service struct {
	probe    volumeProbe
	mounter  volumeMounter
	executor command.Executor
	cfg      *config.Instance
}

// NewService wires a mount service from its collaborators.
func NewService(
	cfg *config.Instance,
	probe volumeProbe,
	mounter volumeMounter,
	executor command.Executor,
) *Service {
	return &Service{
		cfg:      cfg,
		probe:    probe,
		mounter:  mounter,
		executor: executor,
	}
}

// Mount runs the full mount pass for a device: skip if fstab already
// declares the volume, reject unsupported filesystems, wait for udev to
// settle, mount through UDisks2 and lay down the library scaffold.
// Scaffold and ownership problems after a successful mount are logged
// but do not fail the pass; the mount is never rolled back.
func (s *Service) Mount(ctx context.Context, dev blockdev.Device) (Result, error) {
	meta, err := s.probe.Metadata(ctx, dev)
	if err != nil {
		return Result{}, fmt.Errorf("failed to probe %s: %w", dev.Node(), err)
	}

	if meta.UUID != nil {
		known, fstabErr := s.probe.IsKnownInFstab(*meta.UUID)
		if fstabErr != nil {
			log.Warn().Err(fstabErr).
				Str("device", dev.Name()).
				Msg("fstab check failed, treating volume as undeclared")
		} else if known {
			log.Info().
				Str("device", dev.Name()).
				Str("uuid", *meta.UUID).
				Msg("volume is declared in fstab, leaving the mount to the OS")
			return Result{SkippedFstab: true}, nil
		}
	}

	fsType := ""
	if meta.FSType != nil {
		fsType = *meta.FSType
	}
	if !s.filesystemSupported(fsType) {
		return Result{}, fmt.Errorf("%w: %s has filesystem %q", ErrUnsupportedFilesystem, dev.Node(), fsType)
	}

	// This invocation is itself triggered by an in-flight device event;
	// the mount daemon must see a fully populated device record.
	if err := s.settle(ctx); err != nil {
		return Result{}, err
	}

	mountPath, err := s.mounter.Mount(ctx, dev.Name(), udisks.MountOptions{
		Options:           s.cfg.MountOptions(),
		AsUser:            s.cfg.MountAsUser(),
		NoUserInteraction: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to mount %s: %w", dev.Node(), err)
	}

	log.Info().
		Str("device", dev.Name()).
		Str("path", mountPath).
		Msg("volume mounted")

	uid, gid := s.cfg.LibraryOwner()
	scaffoldLibrary(mountPath, uid, gid)

	return Result{MountPath: mountPath}, nil
}

func (s *Service) filesystemSupported(fsType string) bool {
	for _, supported := range s.cfg.SupportedFilesystems() {
		if strings.EqualFold(supported, fsType) {
			return true
		}
	}
	return false
}

func (s *Service) settle(ctx context.Context) error {
	timeout := fmt.Sprintf("--timeout=%d", int(s.cfg.SettleTimeout().Seconds()))
	if err := s.executor.Run(ctx, "udevadm", "settle", timeout); err != nil {
		return fmt.Errorf("udevadm settle failed: %w", err)
	}
	return nil
}
