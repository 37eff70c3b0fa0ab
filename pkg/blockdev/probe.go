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
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ZaparooProject/steamos-automount/pkg/udisks"
	"github.com/rs/zerolog/log"
)

// VolumeMetadata is a read-only snapshot of a volume's identifying
// attributes, taken once per invocation while the device lock is held.
// Nil fields mean the attribute is absent (e.g. an unlabeled volume),
// which stays distinguishable from present-but-empty.
type VolumeMetadata struct {
	UUID   *string
	Label  *string
	FSType *string
}

// udisksSource reads volume state from the UDisks2 daemon. Satisfied by
// *udisks.Client.
type udisksSource interface {
	BlockInfo(ctx context.Context, deviceName string) (udisks.BlockInfo, error)
	MountPoints(ctx context.Context, deviceName string) ([]string, error)
}

// Probe answers questions about a device's volume state.
type Probe struct {
	source     udisksSource
	mountsPath string
	fstabPath  string
}

// Option configures a Probe.
type Option func(*Probe)

// WithMountsPath sets a custom mounts table path (for testing).
func WithMountsPath(path string) Option {
	return func(p *Probe) {
		p.mountsPath = path
	}
}

// WithFstabPath sets a custom static mount table path (for testing).
func WithFstabPath(path string) Option {
	return func(p *Probe) {
		p.fstabPath = path
	}
}

// NewProbe returns a Probe backed by the given daemon client and, by
// default, the standard /proc/mounts and /etc/fstab tables.
func NewProbe(source udisksSource, opts ...Option) *Probe {
	p := &Probe{
		source:     source,
		mountsPath: "/proc/mounts",
		fstabPath:  "/etc/fstab",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentMountPoint resolves where the device is mounted right now. The
// kernel mount table is authoritative; when it cannot be read the probe
// falls back to asking the daemon for the filesystem's mount points. A
// device with no mount point is a normal outcome reported as ok=false,
// not an error.
func (p *Probe) CurrentMountPoint(ctx context.Context, dev Device) (string, bool, error) {
	//nolint:gosec // Safe: defaults to /proc/mounts, overridden only in tests
	file, err := os.Open(p.mountsPath)
	if err != nil {
		log.Debug().Err(err).Msg("mounts table unreadable, asking the mount daemon")
		return p.daemonMountPoint(ctx, dev)
	}
	defer func() { _ = file.Close() }()

	return findMountPoint(file, dev.Node())
}

func (p *Probe) daemonMountPoint(ctx context.Context, dev Device) (string, bool, error) {
	points, err := p.source.MountPoints(ctx, dev.Name())
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve mount point: %w", err)
	}
	if len(points) == 0 {
		return "", false, nil
	}
	return points[0], true, nil
}

// Metadata reads the volume's identifying attributes from the block
// device. Attributes the daemon reports as empty surface as nil.
func (p *Probe) Metadata(ctx context.Context, dev Device) (VolumeMetadata, error) {
	info, err := p.source.BlockInfo(ctx, dev.Name())
	if err != nil {
		return VolumeMetadata{}, fmt.Errorf("failed to read volume metadata: %w", err)
	}

	return VolumeMetadata{
		UUID:   optional(info.UUID),
		Label:  optional(info.Label),
		FSType: optional(info.FSType),
	}, nil
}

// IsKnownInFstab reports whether the static mount table already declares
// a volume with this UUID, in which case automounting it would fight the
// OS's own declarative mount. A missing fstab declares nothing.
func (p *Probe) IsKnownInFstab(uuid string) (bool, error) {
	if uuid == "" {
		return false, nil
	}

	//nolint:gosec // Safe: defaults to /etc/fstab, overridden only in tests
	file, err := os.Open(p.fstabPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open fstab: %w", err)
	}
	defer func() { _ = file.Close() }()

	return isUUIDInFstab(file, uuid)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
