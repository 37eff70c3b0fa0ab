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

// Package automount dispatches device events: one invocation takes the
// per-device lock, runs a single mount, unmount or retrigger pass to
// completion and exits.
package automount

import (
	"errors"
	"fmt"
)

// Action is the operation requested by a device event rule.
type Action string

const (
	// ActionMount mounts a newly attached volume and announces it.
	ActionMount Action = "mount"
	// ActionUnmount announces that a volume went away.
	ActionUnmount Action = "unmount"
	// ActionRetrigger re-announces an already-mounted volume to a
	// client that started after the mount happened.
	ActionRetrigger Action = "retrigger"
)

// ErrUsage reports an action token the dispatcher does not understand.
var ErrUsage = errors.New("unknown action")

// ParseAction validates a command line token against the known actions.
func ParseAction(token string) (Action, error) {
	switch action := Action(token); action {
	case ActionMount, ActionUnmount, ActionRetrigger:
		return action, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUsage, token)
	}
}

// Status classifies the outcome of one invocation.
type Status int

const (
	// StatusOK covers success and every benign no-op.
	StatusOK Status = iota
	// StatusError is any generic failure.
	StatusError
	// StatusLockBusy means another invocation holds the device lock.
	StatusLockBusy
	// StatusUnsupportedFilesystem means the volume's filesystem is not
	// one this tool auto-mounts.
	StatusUnsupportedFilesystem
	// StatusUsage means the invocation arguments were invalid.
	StatusUsage
)

// String returns a short description for logs.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusLockBusy:
		return "lock busy"
	case StatusUnsupportedFilesystem:
		return "unsupported filesystem"
	case StatusUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// ExitCode maps a Status onto the process exit code. The triggering
// event rule only distinguishes three values: success, generic failure
// and unsupported filesystem.
func (s Status) ExitCode() int {
	switch s {
	case StatusOK:
		return 0
	case StatusUnsupportedFilesystem:
		return 2
	case StatusError, StatusLockBusy, StatusUsage:
		return 1
	default:
		return 1
	}
}
