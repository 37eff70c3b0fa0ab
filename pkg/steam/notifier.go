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

package steam

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/steamos-automount/pkg/blockdev"
	"github.com/ZaparooProject/steamos-automount/pkg/config"
	"github.com/ZaparooProject/steamos-automount/pkg/helpers/command"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// mountResolver reports where a device is currently mounted.
type mountResolver interface {
	CurrentMountPoint(ctx context.Context, dev blockdev.Device) (string, bool, error)
}

// Notifier delivers library folder events to the running Steam client.
// Every method is best-effort: the client not running is an expected
// state, and delivery is fire-and-forget.
type Notifier struct {
	cfg      *config.Instance
	resolver mountResolver
	finder   ProcessFinder
	executor command.Executor
	clock    clockwork.Clock
}

// NewNotifier creates a Notifier that locates the client via finder and
// dispatches URLs through executor.
func NewNotifier(
	cfg *config.Instance,
	resolver mountResolver,
	finder ProcessFinder,
	executor command.Executor,
) *Notifier {
	return &Notifier{
		cfg:      cfg,
		resolver: resolver,
		finder:   finder,
		executor: executor,
		clock:    clockwork.NewRealClock(),
	}
}

// SetClock sets the clock for testing. Must be called before using the
// Notifier.
func (n *Notifier) SetClock(clock clockwork.Clock) {
	n.clock = clock
}

// Notify tells the client that a library folder appeared or disappeared.
// The announced path is the device's current mount point, falling back
// to fallbackPath when the device is no longer in the mount table (the
// removal case). A non-running client and a failed delivery are both
// logged no-ops.
func (n *Notifier) Notify(ctx context.Context, dev blockdev.Device, cmd LibraryCommand, fallbackPath string) {
	client, running, err := n.finder.FindByName(n.cfg.SteamProcess())
	if err != nil {
		log.Warn().Err(err).Msg("failed to scan for steam, skipping notification")
		return
	}
	if !running {
		log.Debug().
			Str("device", dev.Node()).
			Str("command", string(cmd)).
			Msg("steam is not running, skipping notification")
		return
	}

	path := fallbackPath
	if current, ok, err := n.resolver.CurrentMountPoint(ctx, dev); err != nil {
		log.Warn().Err(err).Str("device", dev.Node()).Msg("failed to resolve mount point for notification")
	} else if ok {
		path = current
	}
	if path == "" {
		log.Warn().
			Str("device", dev.Node()).
			Str("command", string(cmd)).
			Msg("no mount point to announce, skipping notification")
		return
	}

	url := BuildLibraryURL(cmd, path)
	args := sessionArgs(client.UID, n.cfg.SteamProcess(), url)
	log.Debug().Str("url", url).Int("uid", client.UID).Msg("notifying steam")
	// TODO: the client answers NAK on its stdout channel while the URL
	// handler is still starting; switch to Output and retry on that
	// until steam exits or the command is accepted.
	if err := n.executor.Run(ctx, "systemd-run", args...); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("steam notification failed")
	}
}

// WaitForHelper polls once a second until the client's helper process
// appears or the timeout elapses. The helper hosts the URL handler, so
// its presence is the closest available readiness signal. Gives up
// silently so callers proceed either way.
func (n *Notifier) WaitForHelper(ctx context.Context, timeout time.Duration) bool {
	deadline := n.clock.Now().Add(timeout)
	for {
		if _, running, err := n.finder.FindByName(n.cfg.SteamHelperProcess()); err == nil && running {
			return true
		}
		if !n.clock.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-n.clock.After(time.Second):
		}
	}
}

// AwaitStartup runs the configured startup grace period before a
// re-announcement: wait for the helper process, then give the command
// channel time to come up. The extra delay applies even when the helper
// never appeared, since the announcement is sent regardless.
func (n *Notifier) AwaitStartup(ctx context.Context) bool {
	ready := n.WaitForHelper(ctx, n.cfg.HelperReadyTimeout())
	if !ready {
		log.Warn().Msg("steam helper did not appear, announcing anyway")
	}
	select {
	case <-ctx.Done():
	case <-n.clock.After(n.cfg.StartupDelay()):
	}
	return ready
}

// sessionArgs wraps argv in a systemd-run invocation that executes it
// inside the user's desktop session rather than the daemon's root
// context.
func sessionArgs(uid int, argv ...string) []string {
	args := []string{
		fmt.Sprintf("--machine=%d@.host", uid),
		"--user",
		"--collect",
		"--wait",
		"--pipe",
	}
	return append(args, argv...)
}
